package render

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pansobot/internal/action"
	"pansobot/internal/domain"
	"pansobot/internal/session"
)

func newTestStore(t *testing.T) session.Store {
	t.Helper()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)

	store, err := session.NewBadgerStore(0, log)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func magnetResources(n int) []domain.Resource {
	resources := make([]domain.Resource, n)
	for i := range resources {
		resources[i] = domain.Resource{
			Note:     fmt.Sprintf("Resource %d", i+1),
			URL:      fmt.Sprintf("magnet:?xt=urn:btih:%04d", i+1),
			Source:   "tg:movies",
			Datetime: "2024-05-01T10:00:00Z",
		}
	}
	return resources
}

func buttonTexts(markup *models.InlineKeyboardMarkup) []string {
	var texts []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			texts = append(texts, btn.Text)
		}
	}
	return texts
}

func findButton(markup *models.InlineKeyboardMarkup, text string) (models.InlineKeyboardButton, bool) {
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			if btn.Text == text {
				return btn, true
			}
		}
	}
	return models.InlineKeyboardButton{}, false
}

func TestTypeSelection(t *testing.T) {
	sess := domain.Session{
		Keyword: "ironman",
		ResultsByType: map[string][]domain.Resource{
			"magnet": magnetResources(4),
			"baidu": {
				{Title: "钢铁侠1", URL: "https://pan.baidu.com/s/1"},
				{Title: "钢铁侠2", URL: "https://pan.baidu.com/s/2"},
				{Title: "钢铁侠3", URL: "https://pan.baidu.com/s/3"},
			},
			"quark": nil,
		},
		Total: 7,
	}

	text, markup := TypeSelection(sess, 123)

	assert.Contains(t, text, "ironman")
	assert.Contains(t, text, "总计: 7 个资源")

	texts := buttonTexts(markup)
	assert.Contains(t, texts, "磁力链接(4)")
	assert.Contains(t, texts, "百度云盘(3)")
	assert.NotContains(t, strings.Join(texts, " "), "夸克", "Types with zero hits must not get a button")

	magnetBtn, ok := findButton(markup, "磁力链接(4)")
	require.True(t, ok)
	assert.Equal(t, action.SelectType("magnet", 123), magnetBtn.CallbackData)

	statsBtn, ok := findButton(markup, "📊 显示所有类型统计")
	require.True(t, ok)
	assert.Equal(t, action.Stats(123), statsBtn.CallbackData)
}

func TestPageCoversEveryResourceOnce(t *testing.T) {
	store := newTestStore(t)
	sess := domain.Session{
		Keyword:       "ironman",
		ResultsByType: map[string][]domain.Resource{"magnet": magnetResources(12)},
		Total:         12,
	}

	seen := make(map[string]int)
	pages := PageCount(12)
	require.Equal(t, 3, pages)

	var lastNumber int
	for page := 0; page < pages; page++ {
		text, _, err := Page(context.Background(), store, sess, "magnet", page, 1)
		require.NoError(t, err)

		for i := 1; i <= 12; i++ {
			title := fmt.Sprintf("Resource %d", i)
			if strings.Contains(text, title+"\n") {
				seen[title]++
				assert.Greater(t, i, lastNumber, "Resources must appear in original order across pages")
				lastNumber = i
			}
		}
	}

	require.Len(t, seen, 12, "Every resource must appear on some page")
	for title, count := range seen {
		assert.Equal(t, 1, count, "%s must appear exactly once", title)
	}
}

func TestPageNavigationButtons(t *testing.T) {
	store := newTestStore(t)
	sess := domain.Session{
		Keyword:       "ironman",
		ResultsByType: map[string][]domain.Resource{"magnet": magnetResources(12)},
		Total:         12,
	}
	ctx := context.Background()

	_, first, err := Page(ctx, store, sess, "magnet", 0, 1)
	require.NoError(t, err)
	_, hasPrev := findButton(first, "⬅️ 上一页")
	_, hasNext := findButton(first, "下一页 ➡️")
	assert.False(t, hasPrev, "Page 0 must not offer a previous button")
	assert.True(t, hasNext)

	_, middle, err := Page(ctx, store, sess, "magnet", 1, 1)
	require.NoError(t, err)
	prevBtn, hasPrev := findButton(middle, "⬅️ 上一页")
	nextBtn, hasNext := findButton(middle, "下一页 ➡️")
	assert.True(t, hasPrev)
	assert.True(t, hasNext)
	assert.Equal(t, action.Page("magnet", 0, 1), prevBtn.CallbackData)
	assert.Equal(t, action.Page("magnet", 2, 1), nextBtn.CallbackData)

	_, last, err := Page(ctx, store, sess, "magnet", 2, 1)
	require.NoError(t, err)
	_, hasPrev = findButton(last, "⬅️ 上一页")
	_, hasNext = findButton(last, "下一页 ➡️")
	assert.True(t, hasPrev)
	assert.False(t, hasNext, "The last page must not offer a next button")

	backBtn, ok := findButton(last, "🔙 返回类型选择")
	require.True(t, ok)
	assert.Equal(t, action.BackToTypes(1), backBtn.CallbackData)
}

func TestPageSinglePageHasNoNavigation(t *testing.T) {
	store := newTestStore(t)
	sess := domain.Session{
		Keyword:       "ironman",
		ResultsByType: map[string][]domain.Resource{"magnet": magnetResources(4)},
		Total:         4,
	}

	text, markup, err := Page(context.Background(), store, sess, "magnet", 0, 1)
	require.NoError(t, err)

	assert.Contains(t, text, "第 1/1 页")
	_, hasPrev := findButton(markup, "⬅️ 上一页")
	_, hasNext := findButton(markup, "下一页 ➡️")
	assert.False(t, hasPrev)
	assert.False(t, hasNext)
}

func TestPageClampsOutOfRangeIndex(t *testing.T) {
	store := newTestStore(t)
	sess := domain.Session{
		Keyword:       "ironman",
		ResultsByType: map[string][]domain.Resource{"magnet": magnetResources(12)},
		Total:         12,
	}
	ctx := context.Background()

	text, _, err := Page(ctx, store, sess, "magnet", 99, 1)
	require.NoError(t, err)
	assert.Contains(t, text, "第 3/3 页", "An index past the end must clamp to the last page")

	text, _, err = Page(ctx, store, sess, "magnet", -5, 1)
	require.NoError(t, err)
	assert.Contains(t, text, "第 1/3 页", "A negative index must clamp to the first page")
}

func TestPageUnknownTypeFails(t *testing.T) {
	store := newTestStore(t)
	sess := domain.Session{
		Keyword:       "ironman",
		ResultsByType: map[string][]domain.Resource{"magnet": magnetResources(2)},
		Total:         2,
	}

	_, _, err := Page(context.Background(), store, sess, "baidu", 0, 1)
	assert.ErrorIs(t, err, ErrNoResources)
}

func TestPageRevealRoundTrip(t *testing.T) {
	store := newTestStore(t)
	userID := int64(42)
	sess := domain.Session{
		Keyword: "ironman",
		ResultsByType: map[string][]domain.Resource{"magnet": {
			{Note: "Magnet hit", URL: "magnet:?xt=urn:btih:aaaa"},
			{Note: "Thunder hit", URL: "thunder://QUFodHRwOi8v"},
			{Note: "Plain hit", URL: "https://pan.baidu.com/s/1"},
		}},
		Total: 3,
	}
	ctx := context.Background()

	_, markup, err := Page(ctx, store, sess, "magnet", 0, userID)
	require.NoError(t, err)

	// Long-form links each get a reveal button whose key resolves back to
	// exactly that URL; plain links get none.
	btn1, ok := findButton(markup, "Link-1")
	require.True(t, ok)
	url, err := store.GetReveal(ctx, userID, btn1.CallbackData)
	require.NoError(t, err)
	assert.Equal(t, "magnet:?xt=urn:btih:aaaa", url)

	btn2, ok := findButton(markup, "Link-2")
	require.True(t, ok)
	url, err = store.GetReveal(ctx, userID, btn2.CallbackData)
	require.NoError(t, err)
	assert.Equal(t, "thunder://QUFodHRwOi8v", url)

	_, ok = findButton(markup, "Link-3")
	assert.False(t, ok, "http links must not get a reveal button")

	// Re-rendering overwrites the same keys with the same URLs.
	_, _, err = Page(ctx, store, sess, "magnet", 0, userID)
	require.NoError(t, err)
	url, err = store.GetReveal(ctx, userID, btn1.CallbackData)
	require.NoError(t, err)
	assert.Equal(t, "magnet:?xt=urn:btih:aaaa", url)
}

func TestPageItemRendering(t *testing.T) {
	store := newTestStore(t)
	longTitle := strings.Repeat("甲", 70)
	sess := domain.Session{
		Keyword: "test",
		ResultsByType: map[string][]domain.Resource{"baidu": {
			{
				Note:     longTitle,
				URL:      "https://pan.baidu.com/s/1",
				Password: "ab_12",
				Source:   "plugin:pansearch",
				Datetime: "2024-05-01T10:00:00Z",
			},
			{
				Note:   "with *special* [markup]_chars`",
				URL:    "magnet:?xt=urn:btih:bb",
				Source: "tg:movies",
			},
		}},
		Total: 2,
	}

	text, _, err := Page(context.Background(), store, sess, "baidu", 0, 1)
	require.NoError(t, err)

	assert.Contains(t, text, strings.Repeat("甲", 60)+"...", "Long titles are truncated to 60 runes with an ellipsis")
	assert.NotContains(t, text, strings.Repeat("甲", 61))

	assert.Contains(t, text, "🔗 https://pan.baidu.com/s/1")
	assert.Contains(t, text, "🔐 密码: ab\\_12")
	assert.Contains(t, text, "⏰ 2024-05-01")
	assert.Contains(t, text, "🔌 pansearch")

	assert.Contains(t, text, "with ×special× (markup) chars'", "Markup characters in titles must be substituted")
	assert.Contains(t, text, "🧲 magnet:?xt=urn:btih:bb")
	assert.Contains(t, text, "📡 movies")
}

func TestStats(t *testing.T) {
	sess := domain.Session{
		Keyword: "ironman",
		ResultsByType: map[string][]domain.Resource{
			"magnet": magnetResources(4),
			"baidu":  {{Title: "t1"}, {Title: "t2"}, {Title: "t3"}},
		},
		Total: 7,
	}

	text, markup := Stats(sess, 123)

	assert.Contains(t, text, "搜索『ironman』统计")
	assert.Contains(t, text, "总计: 7 个资源")
	assert.Contains(t, text, "• 磁力链接: 4 个资源")
	assert.Contains(t, text, "• 百度云盘: 3 个资源")

	back, ok := findButton(markup, "🔙 返回类型选择")
	require.True(t, ok)
	assert.Equal(t, action.BackToTypes(123), back.CallbackData)
}

func TestQuickMenu(t *testing.T) {
	text, markup := QuickMenu()

	assert.Contains(t, text, "快速搜索")

	btn, ok := findButton(markup, "百度云盘")
	require.True(t, ok)
	assert.Equal(t, action.QuickSearch("baidu"), btn.CallbackData)

	back, ok := findButton(markup, "🔙 返回主菜单")
	require.True(t, ok)
	assert.Equal(t, action.BackToMain(), back.CallbackData)
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, 0, ClampPage(0, 12))
	assert.Equal(t, 2, ClampPage(2, 12))
	assert.Equal(t, 2, ClampPage(3, 12))
	assert.Equal(t, 2, ClampPage(100, 12))
	assert.Equal(t, 0, ClampPage(-1, 12))
	assert.Equal(t, 0, ClampPage(5, 0))
}
