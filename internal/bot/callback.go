package bot

import (
	"context"
	"errors"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"pansobot/internal/action"
	"pansobot/internal/domain"
	"pansobot/internal/render"
	"pansobot/internal/session"
)

const (
	expiredText      = "❌ 会话已过期，请重新搜索"
	callbackFailText = "❌ 处理按钮时出错"
)

// callbackHandler decodes and dispatches every inline-button tap. A
// malformed token or a missing session produces a notice in the chat; no
// user input can take the dispatch loop down.
func (h *Handler) callbackHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	log := h.log.WithFields(logrus.Fields{"user_id": cq.From.ID, "data": cq.Data})

	// Stop the client-side spinner regardless of what happens next.
	if _, err := b.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: cq.ID,
	}); err != nil {
		log.WithError(err).Warn("Failed to answer callback query")
	}

	msg := cq.Message.Message
	if msg == nil {
		log.Warn("Callback for inaccessible message, ignoring")
		return
	}
	chatID := msg.Chat.ID
	messageID := msg.ID

	if !h.cfg.Allowed(cq.From.ID) {
		log.Info("Denied callback from user outside allow-list")
		h.send(ctx, chatID, deniedText, nil)
		return
	}

	act, err := action.Decode(cq.Data)
	if err != nil {
		log.WithError(err).Warn("Malformed callback token")
		h.edit(ctx, chatID, messageID, callbackFailText, nil)
		return
	}

	switch act.Kind {
	case action.KindSelectType:
		h.showPage(ctx, chatID, messageID, act.UserID, act.ResourceType, 0)

	case action.KindPage:
		h.showPage(ctx, chatID, messageID, act.UserID, act.ResourceType, act.Page)

	case action.KindStats:
		sess, ok := h.sessionOrExpire(ctx, chatID, messageID, act.UserID)
		if !ok {
			return
		}
		text, markup := render.Stats(sess, act.UserID)
		h.edit(ctx, chatID, messageID, text, markup)

	case action.KindBackToTypes:
		sess, ok := h.sessionOrExpire(ctx, chatID, messageID, act.UserID)
		if !ok {
			return
		}
		text, markup := render.TypeSelection(sess, act.UserID)
		h.edit(ctx, chatID, messageID, text, markup)

	case action.KindQuickSearch:
		h.chooseQuickType(ctx, chatID, messageID, cq.From.ID, act.ResourceType)

	case action.KindReveal:
		h.revealLink(ctx, chatID, act, cq.Data)

	case action.KindBackToMain:
		h.edit(ctx, chatID, messageID, "已返回主菜单", nil)
	}
}

// sessionOrExpire loads the addressed user's session, rendering the
// session-expired notice on a miss.
func (h *Handler) sessionOrExpire(ctx context.Context, chatID int64, messageID int, userID int64) (domain.Session, bool) {
	sess, err := h.store.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			h.log.WithError(err).WithField("user_id", userID).Error("Failed to load session")
		}
		h.edit(ctx, chatID, messageID, expiredText, nil)
		return domain.Session{}, false
	}
	return sess, true
}

// showPage renders one page of one provider type into the existing message.
func (h *Handler) showPage(ctx context.Context, chatID int64, messageID int, userID int64, resourceType string, page int) {
	sess, ok := h.sessionOrExpire(ctx, chatID, messageID, userID)
	if !ok {
		return
	}

	text, markup, err := render.Page(ctx, h.store, sess, resourceType, page, userID)
	if err != nil {
		if errors.Is(err, render.ErrNoResources) {
			// The session was replaced by a search without this type.
			h.edit(ctx, chatID, messageID, fmt.Sprintf("❌ 未找到 %s 类型的资源", resourceType), nil)
			return
		}
		h.log.WithError(err).WithField("user_id", userID).Error("Failed to render page")
		h.edit(ctx, chatID, messageID, callbackFailText, nil)
		return
	}
	h.edit(ctx, chatID, messageID, text, markup)
}

// chooseQuickType records the provider the user's next keyword search will
// be scoped to.
func (h *Handler) chooseQuickType(ctx context.Context, chatID int64, messageID int, userID int64, resourceType string) {
	if err := h.store.PutQuickType(ctx, userID, resourceType); err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("Failed to store quick-search type")
		h.edit(ctx, chatID, messageID, callbackFailText, nil)
		return
	}

	display := domain.DisplayName(resourceType)
	h.edit(ctx, chatID, messageID,
		fmt.Sprintf("✅ 已选择: %s\n\n现在请直接发送搜索关键词，我将只搜索%s的资源", display, display), nil)
}

// revealLink sends a stored magnet/thunder link as its own plain message so
// it can be copied whole.
func (h *Handler) revealLink(ctx context.Context, chatID int64, act action.Action, key string) {
	url, err := h.store.GetReveal(ctx, act.UserID, key)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			h.send(ctx, chatID, "❌ 链接不存在，请重新搜索", nil)
			return
		}
		h.log.WithError(err).WithFields(logrus.Fields{"user_id": act.UserID, "key": key}).Error("Failed to load reveal entry")
		h.send(ctx, chatID, callbackFailText, nil)
		return
	}

	h.send(ctx, chatID, url, nil)
}
