package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"pansobot/internal/domain"
	"pansobot/internal/pansou"
	"pansobot/internal/render"
	"pansobot/internal/session"
)

// performSearch runs one search and turns the result into the first
// browsing screen. The "searching" placeholder message is edited in place
// with the outcome, so the user sees a single evolving message.
func (h *Handler) performSearch(ctx context.Context, chatID int64, userID int64, keyword string) {
	log := h.log.WithFields(logrus.Fields{"user_id": userID, "keyword": keyword})

	// A provider chosen on the quick-search screen scopes exactly one
	// following search.
	quickType, err := h.store.TakeQuickType(ctx, userID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		log.WithError(err).Error("Failed to read pending quick-search type")
	}

	var placeholder string
	if quickType != "" {
		placeholder = fmt.Sprintf("🔍 正在搜索%s资源: %s...", domain.DisplayName(quickType), keyword)
	} else {
		placeholder = fmt.Sprintf("🔍 正在搜索: %s...", keyword)
	}
	msg := h.send(ctx, chatID, placeholder, nil)
	if msg == nil {
		return
	}

	result, err := h.search.Search(ctx, keyword)
	if err != nil {
		log.WithError(err).Error("Search failed")
		h.edit(ctx, chatID, msg.ID, searchErrorText(err), nil)
		return
	}

	if quickType != "" {
		h.showQuickResult(ctx, chatID, msg.ID, userID, keyword, quickType, result)
		return
	}
	h.showTypeSelection(ctx, chatID, msg.ID, userID, keyword, result)
}

// showTypeSelection stores the session and renders the type-selection
// screen for an unscoped search.
func (h *Handler) showTypeSelection(ctx context.Context, chatID int64, messageID int, userID int64, keyword string, result domain.SearchResult) {
	if result.Total == 0 {
		h.edit(ctx, chatID, messageID, fmt.Sprintf("🔍 未找到关于『%s』的资源", keyword), nil)
		return
	}

	sess := domain.Session{
		Keyword:       keyword,
		ResultsByType: result.MergedByType,
		Total:         result.Total,
	}
	if err := h.store.Put(ctx, userID, sess); err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("Failed to store session")
		h.edit(ctx, chatID, messageID, "❌ 显示搜索结果时出错", nil)
		return
	}

	text, markup := render.TypeSelection(sess, userID)
	h.edit(ctx, chatID, messageID, text, markup)
}

// showQuickResult stores a session scoped to one provider type and renders
// its first page directly.
func (h *Handler) showQuickResult(ctx context.Context, chatID int64, messageID int, userID int64, keyword, resourceType string, result domain.SearchResult) {
	resources := result.MergedByType[resourceType]
	if len(resources) == 0 {
		h.edit(ctx, chatID, messageID,
			fmt.Sprintf("🔍 未找到%s关于『%s』的资源", domain.DisplayName(resourceType), keyword), nil)
		return
	}

	sess := domain.Session{
		Keyword:       keyword,
		ResultsByType: map[string][]domain.Resource{resourceType: resources},
		Total:         len(resources),
	}
	if err := h.store.Put(ctx, userID, sess); err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("Failed to store session")
		h.edit(ctx, chatID, messageID, "❌ 显示搜索结果时出错", nil)
		return
	}

	text, markup, err := render.Page(ctx, h.store, sess, resourceType, 0, userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("Failed to render result page")
		h.edit(ctx, chatID, messageID, "❌ 显示搜索结果时出错", nil)
		return
	}
	h.edit(ctx, chatID, messageID, text, markup)
}

// searchErrorText translates the search error taxonomy into the short
// user-facing notices.
func searchErrorText(err error) string {
	var statusErr *pansou.StatusError
	var apiErr *pansou.APIError

	switch {
	case errors.Is(err, pansou.ErrNoToken):
		return "❌ 搜索失败：无法获取Token"
	case errors.As(err, &statusErr):
		return fmt.Sprintf("❌ 搜索失败，状态码: %d", statusErr.StatusCode)
	case errors.As(err, &apiErr):
		return fmt.Sprintf("❌ API返回错误: %s", apiErr.Message)
	default:
		return "❌ 搜索时发生错误，请稍后重试"
	}
}
