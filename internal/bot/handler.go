package bot

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"pansobot/internal/config"
	"pansobot/internal/pansou"
	"pansobot/internal/render"
	"pansobot/internal/session"
)

// Main-menu reply keyboard labels. The same strings come back as message
// text when a user taps them, so the text handler dispatches on them.
const (
	menuSearch = "🔍 开始搜索"
	menuHelp   = "📋 使用帮助"
	menuQuick  = "⚡ 快速搜索"
	menuStatus = "📊 机器人状态"
)

const deniedText = "❌ 您无权使用此机器人"

// Handler holds dependencies for the Telegram bot handlers.
type Handler struct {
	bot    *tgbot.Bot
	cfg    config.Config
	store  session.Store
	search *pansou.Client
	log    logrus.FieldLogger
}

// NewHandler creates a new bot handler instance.
func NewHandler(cfg config.Config, store session.Store, search *pansou.Client, logger logrus.FieldLogger) (*Handler, error) {
	log := logger.WithField("component", "bot_handler")

	b, err := tgbot.New(cfg.BotToken)
	if err != nil {
		log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	h := &Handler{
		bot:    b,
		cfg:    cfg,
		store:  store,
		search: search,
		log:    log,
	}

	h.registerHandlers()

	log.Info("Telegram bot handler initialized")
	return h, nil
}

// registerHandlers sets up the command, message, and callback handlers.
func (h *Handler) registerHandlers() {
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, h.startHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/help", tgbot.MatchTypeExact, h.helpHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/stats", tgbot.MatchTypeExact, h.statusHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/search", tgbot.MatchTypePrefix, h.searchCommandHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "", tgbot.MatchTypeContains, h.textHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, "", tgbot.MatchTypePrefix, h.callbackHandler)
}

// Start begins polling for updates from Telegram.
// This function blocks until the context is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling...")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped.")
}

// mainMenu is the persistent reply keyboard shown under the input field.
func mainMenu() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: menuSearch}, {Text: menuHelp}},
			{{Text: menuQuick}, {Text: menuStatus}},
		},
		ResizeKeyboard: true,
	}
}

// permitted applies the allow-list gate. A denied user gets a fixed notice
// and no further processing; no network call has happened at this point.
func (h *Handler) permitted(ctx context.Context, chatID int64, userID int64) bool {
	if h.cfg.Allowed(userID) {
		return true
	}
	h.log.WithField("user_id", userID).Info("Denied user outside allow-list")
	h.send(ctx, chatID, deniedText, nil)
	return false
}

func (h *Handler) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) *models.Message {
	msg, err := h.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		h.log.WithError(err).WithField("chat_id", chatID).Error("Failed to send message")
		return nil
	}
	return msg
}

func (h *Handler) edit(ctx context.Context, chatID int64, messageID int, text string, markup models.ReplyMarkup) {
	_, err := h.bot.EditMessageText(ctx, &tgbot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		h.log.WithError(err).WithField("chat_id", chatID).Error("Failed to edit message")
	}
}

// startHandler handles the /start command.
func (h *Handler) startHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	if !h.permitted(ctx, update.Message.Chat.ID, userID) {
		return
	}
	h.log.WithField("user_id", userID).Info("Received /start command")

	welcome := "🔍 盘搜机器人\n\n直接发送关键词即可搜索资源\n\n例如：\n• 钢铁侠\n• 天下第一\n\n支持所有常见的搜索关键词！"
	h.send(ctx, update.Message.Chat.ID, welcome, mainMenu())
}

// helpHandler handles the /help command and the help menu button.
func (h *Handler) helpHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if !h.permitted(ctx, update.Message.Chat.ID, update.Message.From.ID) {
		return
	}

	help := "🤖 使用帮助\n\n" +
		"🔍 搜索方法:\n" +
		"1. 直接发送关键词\n" +
		"2. 使用 /search 关键词 命令\n" +
		"3. 点击『⚡ 快速搜索』选择特定网盘\n\n" +
		"📝 示例:\n" +
		"钢铁侠\n" +
		"天下第一\n\n" +
		"📋 功能特点:\n" +
		"• 按资源类型分类显示\n" +
		"• 支持分页浏览\n" +
		"• 显示完整资源链接\n" +
		"• 快速搜索特定网盘\n" +
		"• 一键复制磁力和迅雷链接\n\n" +
		"⚡ 搜索后会显示资源类型按钮，点击查看详情"
	h.send(ctx, update.Message.Chat.ID, help, mainMenu())
}

// statusHandler handles the /stats command and the status menu button.
func (h *Handler) statusHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if !h.permitted(ctx, update.Message.Chat.ID, update.Message.From.ID) {
		return
	}

	arch := "AMD64"
	if runtime.GOARCH == "arm64" {
		arch = "ARM64"
	}

	status := fmt.Sprintf(
		"📊 机器人状态\n\n"+
			"✅ 运行正常\n"+
			"🔗 API: 已连接\n"+
			"🏗️ 架构: %s\n\n"+
			"⚡ 支持快速搜索以下网盘:\n"+
			"• 115网盘\n• 阿里云盘\n• 百度云盘\n• 迅雷云盘\n"+
			"• 夸克网盘\n• Pikpak\n• 天翼云盘\n• 磁力链接",
		arch,
	)
	h.send(ctx, update.Message.Chat.ID, status, mainMenu())
}

// searchCommandHandler handles "/search <keyword>".
func (h *Handler) searchCommandHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	if !h.permitted(ctx, update.Message.Chat.ID, userID) {
		return
	}

	keyword := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/search"))
	if keyword == "" {
		h.send(ctx, update.Message.Chat.ID, "请提供搜索关键词，例如：/search 钢铁侠", nil)
		return
	}

	h.performSearch(ctx, update.Message.Chat.ID, userID, keyword)
}

// textHandler treats any plain text message as a search keyword, after
// dispatching the main-menu button labels.
func (h *Handler) textHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	if !h.permitted(ctx, chatID, userID) {
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	h.log.WithFields(logrus.Fields{"user_id": userID, "text": text}).Debug("Received message")

	switch text {
	case menuSearch:
		h.startHandler(ctx, b, update)
		return
	case menuHelp:
		h.helpHandler(ctx, b, update)
		return
	case menuQuick:
		quickText, markup := render.QuickMenu()
		h.send(ctx, chatID, quickText, markup)
		return
	case menuStatus:
		h.statusHandler(ctx, b, update)
		return
	}

	// Handler lookup in go-telegram/bot is not ordered, so a command can
	// land here instead of its registered handler. Route the known ones
	// and ignore the rest rather than searching for them.
	if strings.HasPrefix(text, "/") {
		switch {
		case text == "/start":
			h.startHandler(ctx, b, update)
		case text == "/help":
			h.helpHandler(ctx, b, update)
		case text == "/stats":
			h.statusHandler(ctx, b, update)
		case strings.HasPrefix(text, "/search"):
			h.searchCommandHandler(ctx, b, update)
		}
		return
	}

	h.performSearch(ctx, chatID, userID, text)
}
