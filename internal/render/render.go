// Package render turns a search session into the texts and inline keyboards
// of the browsing screens: type selection, result pages, and statistics.
package render

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-telegram/bot/models"

	"pansobot/internal/action"
	"pansobot/internal/domain"
	"pansobot/internal/session"
)

// PageSize is the number of resources shown per page.
const PageSize = 5

// maxTitleRunes caps the rendered resource title length.
const maxTitleRunes = 60

// ErrNoResources is returned when a page is requested for a provider type
// the session has no hits for, e.g. after a newer search replaced the
// session the button was rendered from.
var ErrNoResources = errors.New("no resources of the requested type")

// titleSanitizer substitutes formatting-significant characters in titles so
// arbitrary resource names cannot break message rendering.
var titleSanitizer = strings.NewReplacer(
	"*", "×",
	"_", " ",
	"`", "'",
	"[", "(",
	"]", ")",
)

// markdownEscaper backslash-escapes characters Telegram treats as markup.
var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
)

// sortedTypes returns the session's provider types with at least one hit,
// in stable order. Result maps decode with random iteration order, so the
// screens would otherwise shuffle between renders.
func sortedTypes(sess domain.Session) []string {
	types := make([]string, 0, len(sess.ResultsByType))
	for resourceType, resources := range sess.ResultsByType {
		if len(resources) > 0 {
			types = append(types, resourceType)
		}
	}
	sort.Strings(types)
	return types
}

// TypeSelection renders the screen listing every provider type with a
// nonzero hit count, two buttons per row, plus the statistics action.
func TypeSelection(sess domain.Session, userID int64) (string, *models.InlineKeyboardMarkup) {
	text := fmt.Sprintf(
		"🔍 搜索『%s』结果\n\n📊 总计: %d 个资源\n\n📁 请选择资源类型查看详情:",
		sess.Keyword, sess.Total,
	)

	var keyboard [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton

	for _, resourceType := range sortedTypes(sess) {
		count := len(sess.ResultsByType[resourceType])
		row = append(row, models.InlineKeyboardButton{
			Text:         fmt.Sprintf("%s(%d)", domain.DisplayName(resourceType), count),
			CallbackData: action.SelectType(resourceType, userID),
		})
		if len(row) == 2 {
			keyboard = append(keyboard, row)
			row = nil
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}

	keyboard = append(keyboard, []models.InlineKeyboardButton{{
		Text:         "📊 显示所有类型统计",
		CallbackData: action.Stats(userID),
	}})

	return text, &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

// PageCount returns the number of pages needed for n resources.
func PageCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + PageSize - 1) / PageSize
}

// ClampPage normalises a page index into [0, PageCount(n)-1]. Stale
// navigation buttons can carry an index beyond the current session's range;
// clamping keeps those taps on a valid page instead of slicing past the end.
func ClampPage(page, n int) int {
	last := PageCount(n) - 1
	if last < 0 {
		last = 0
	}
	if page < 0 {
		return 0
	}
	if page > last {
		return last
	}
	return page
}

// Page renders one page of a provider type's resources and registers a
// reveal entry for every magnet/thunder link on the page. Registration is
// idempotent: re-rendering the same page overwrites the same keys with the
// same URLs.
func Page(ctx context.Context, store session.Store, sess domain.Session, resourceType string, page int, userID int64) (string, *models.InlineKeyboardMarkup, error) {
	resources := sess.Resources(resourceType)
	if len(resources) == 0 {
		return "", nil, ErrNoResources
	}

	page = ClampPage(page, len(resources))
	start := page * PageSize
	end := start + PageSize
	if end > len(resources) {
		end = len(resources)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "🔍 %s资源 - 『%s』\n\n", domain.DisplayName(resourceType), sess.Keyword)
	fmt.Fprintf(&text, "📄 第 %d/%d 页 | 共 %d 个资源\n\n", page+1, PageCount(len(resources)), len(resources))

	var keyboard [][]models.InlineKeyboardButton

	for i, resource := range resources[start:end] {
		number := start + i + 1

		fmt.Fprintf(&text, "%d. %s\n", number, sanitizeTitle(resource.DisplayTitle()))

		if resource.URL != "" {
			fmt.Fprintf(&text, "   %s %s\n", linkIcon(resource.URL), resource.URL)
		}
		if resource.Password != "" {
			fmt.Fprintf(&text, "   🔐 密码: %s\n", markdownEscaper.Replace(resource.Password))
		}

		var info []string
		if date := resource.Date(); date != "" {
			info = append(info, "⏰ "+date)
		}
		if resource.Source != "" {
			info = append(info, sourceTag(resource.Source))
		}
		if len(info) > 0 {
			fmt.Fprintf(&text, "   %s\n", strings.Join(info, " | "))
		}
		text.WriteString("\n")

		if isRevealable(resource.URL) {
			key := action.Reveal(userID, page, number)
			if err := store.PutReveal(ctx, userID, key, resource.URL); err != nil {
				return "", nil, fmt.Errorf("register reveal entry: %w", err)
			}
			keyboard = append(keyboard, []models.InlineKeyboardButton{{
				Text:         fmt.Sprintf("Link-%d", number),
				CallbackData: key,
			}})
		}
	}

	var nav []models.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, models.InlineKeyboardButton{
			Text:         "⬅️ 上一页",
			CallbackData: action.Page(resourceType, page-1, userID),
		})
	}
	if end < len(resources) {
		nav = append(nav, models.InlineKeyboardButton{
			Text:         "下一页 ➡️",
			CallbackData: action.Page(resourceType, page+1, userID),
		})
	}
	if len(nav) > 0 {
		keyboard = append(keyboard, nav)
	}

	keyboard = append(keyboard, []models.InlineKeyboardButton{{
		Text:         "🔙 返回类型选择",
		CallbackData: action.BackToTypes(userID),
	}})

	return text.String(), &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}, nil
}

// Stats renders the per-type hit counts for the session.
func Stats(sess domain.Session, userID int64) (string, *models.InlineKeyboardMarkup) {
	var text strings.Builder
	fmt.Fprintf(&text, "🔍 搜索『%s』统计\n\n", sess.Keyword)
	fmt.Fprintf(&text, "📊 总计: %d 个资源\n\n", sess.Total)
	text.WriteString("📁 资源类型分布:\n")

	for _, resourceType := range sortedTypes(sess) {
		fmt.Fprintf(&text, "• %s: %d 个资源\n", domain.DisplayName(resourceType), len(sess.ResultsByType[resourceType]))
	}

	keyboard := [][]models.InlineKeyboardButton{{{
		Text:         "🔙 返回类型选择",
		CallbackData: action.BackToTypes(userID),
	}}}

	return text.String(), &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

// QuickMenu renders the quick-search provider picker.
func QuickMenu() (string, *models.InlineKeyboardMarkup) {
	text := "⚡ 快速搜索\n\n请选择要搜索的网盘类型：\n\n选择后直接发送关键词即可搜索该类型的资源"

	var keyboard [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton

	for _, entry := range domain.QuickSearchMenu {
		row = append(row, models.InlineKeyboardButton{
			Text:         entry.Label,
			CallbackData: action.QuickSearch(entry.Type),
		})
		if len(row) == 2 {
			keyboard = append(keyboard, row)
			row = nil
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}

	keyboard = append(keyboard, []models.InlineKeyboardButton{{
		Text:         "🔙 返回主菜单",
		CallbackData: action.BackToMain(),
	}})

	return text, &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

// sanitizeTitle truncates a resource title and substitutes characters that
// would break message formatting.
func sanitizeTitle(title string) string {
	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		title = string(runes[:maxTitleRunes]) + "..."
	}
	return titleSanitizer.Replace(title)
}

// linkIcon picks the icon for a link line by URL scheme.
func linkIcon(url string) string {
	switch {
	case strings.HasPrefix(url, "magnet:"):
		return "🧲"
	case strings.HasPrefix(url, "thunder://"):
		return "⚡"
	default:
		return "🔗"
	}
}

// sourceTag renders a source with its prefix-based icon, prefix stripped
// and remainder escaped.
func sourceTag(source string) string {
	switch {
	case strings.HasPrefix(source, "tg:"):
		return "📡 " + markdownEscaper.Replace(strings.TrimPrefix(source, "tg:"))
	case strings.HasPrefix(source, "plugin:"):
		return "🔌 " + markdownEscaper.Replace(strings.TrimPrefix(source, "plugin:"))
	default:
		return "📡 " + markdownEscaper.Replace(source)
	}
}

// isRevealable reports whether a URL gets its own reveal button. Magnet and
// thunder links are long enough that users want them as a standalone
// copyable message.
func isRevealable(url string) bool {
	return strings.HasPrefix(url, "magnet:") || strings.HasPrefix(url, "thunder://")
}
