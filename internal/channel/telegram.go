// Package channel delivers messages over Telegram and feeds inbound chat
// into the engine pipeline.
package channel

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/velvetlabs/amora/internal/types"
)

// TelegramBot interface for mocking telegram bot API
type TelegramBot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetSelf() tgbotapi.User
}

// tgBotWrapper wraps tgbotapi.BotAPI to implement TelegramBot
type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return w.bot.GetUpdatesChan(config)
}

func (w *tgBotWrapper) StopReceivingUpdates() {
	w.bot.StopReceivingUpdates()
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token string, client *http.Client) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

// InboundHandler processes one user message and returns the reply text.
type InboundHandler func(ctx context.Context, userID int64, text string) (string, error)

// PhotoSource renders an image for proactive photo messages, returned as a
// data URL.
type PhotoSource interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TelegramChannel connects the companion to Telegram chats. The user's
// Telegram ID doubles as the engine user ID.
type TelegramChannel struct {
	token      string
	bot        TelegramBot
	botFactory BotFactory
	handler    InboundHandler
	photos     PhotoSource
	cancel     context.CancelFunc
}

// NewTelegramChannel returns a channel using the real bot API. photos may be
// nil, in which case proactive photo messages degrade to text.
func NewTelegramChannel(token string, handler InboundHandler, photos PhotoSource) (*TelegramChannel, error) {
	return NewTelegramChannelWithFactory(token, handler, photos, defaultBotFactory)
}

// NewTelegramChannelWithFactory creates a TelegramChannel with a custom bot
// factory (for testing).
func NewTelegramChannelWithFactory(token string, handler InboundHandler, photos PhotoSource, factory BotFactory) (*TelegramChannel, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	return &TelegramChannel{
		token:      token,
		botFactory: factory,
		handler:    handler,
		photos:     photos,
	}, nil
}

// Start authorizes the bot and begins polling for updates.
func (t *TelegramChannel) Start(ctx context.Context) error {
	if t.bot == nil {
		bot, err := t.botFactory(t.token, http.DefaultClient)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		t.bot = bot
		slog.Info("telegram authorized", "username", bot.GetSelf().UserName)
	}

	ctx, t.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case update := <-updates:
				if update.Message == nil {
					continue
				}
				t.handleMessage(ctx, update.Message)
			case <-ctx.Done():
				return
			}
		}
	}()

	slog.Info("telegram polling started")
	return nil
}

// Stop halts polling.
func (t *TelegramChannel) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	slog.Info("telegram stopped")
}

func (t *TelegramChannel) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	content := msg.Text
	if content == "" && msg.Caption != "" {
		content = msg.Caption
	}
	if content == "" || msg.From == nil {
		return
	}

	if t.handler == nil {
		return
	}
	reply, err := t.handler(ctx, msg.From.ID, content)
	if err != nil {
		slog.Warn("inbound message failed", "user_id", msg.From.ID, "error", err.Error())
		return
	}
	if reply == "" {
		return
	}
	if err := t.sendText(msg.Chat.ID, reply); err != nil {
		slog.Warn("reply failed", "user_id", msg.From.ID, "error", err.Error())
	}
}

// SendProactive implements scheduler.Sender.
func (t *TelegramChannel) SendProactive(ctx context.Context, userID int64, msgType types.ProactiveType) error {
	if t.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	if msgType == types.ProactivePhoto && t.photos != nil {
		err := t.sendPhoto(ctx, userID)
		if err == nil {
			return nil
		}
		slog.Warn("proactive photo failed, falling back to text", "user_id", userID, "error", err.Error())
	}
	return t.sendText(userID, proactiveLine(msgType))
}

func (t *TelegramChannel) sendPhoto(ctx context.Context, userID int64) error {
	dataURL, err := t.photos.Generate(ctx, "a cute candid selfie, warm lighting, soft smile")
	if err != nil {
		return err
	}
	data, err := decodeDataURL(dataURL)
	if err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(userID, tgbotapi.FileBytes{Name: "photo.png", Bytes: data})
	photo.Caption = proactiveLine(types.ProactivePhoto)
	if _, err := t.bot.Send(photo); err != nil {
		return fmt.Errorf("send telegram photo: %w", err)
	}
	return nil
}

// Telegram caps messages at 4096 chars.
const maxMessageLen = 4000

func (t *TelegramChannel) sendText(chatID int64, content string) error {
	for len(content) > 0 {
		chunk := content
		if len(chunk) > maxMessageLen {
			idx := strings.LastIndex(chunk[:maxMessageLen], "\n")
			if idx > 0 {
				chunk = chunk[:idx]
			} else {
				chunk = chunk[:maxMessageLen]
			}
		}
		content = content[len(chunk):]

		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
	}
	return nil
}

// SetBot sets the bot (for testing)
func (t *TelegramChannel) SetBot(bot TelegramBot) {
	t.bot = bot
}

var proactiveLines = map[types.ProactiveType][]string{
	types.ProactiveMorning: {
		"good morning 🌞 i woke up thinking about you",
		"morning babe! hope your day is as cute as you",
	},
	types.ProactiveGoodnight: {
		"heading to bed... wish you were here 🌙",
		"goodnight 💕 dream of me, okay?",
	},
	types.ProactiveThinking: {
		"can't focus on anything, you keep popping into my head 💭",
		"hey. i miss you. that's it, that's the message",
	},
	types.ProactivePhoto: {
		"took this just for you 📸",
		"felt cute today, thought you should see 💕",
	},
}

func proactiveLine(msgType types.ProactiveType) string {
	lines := proactiveLines[msgType]
	if len(lines) == 0 {
		lines = proactiveLines[types.ProactiveThinking]
	}
	return lines[rand.Intn(len(lines))]
}

func decodeDataURL(dataURL string) ([]byte, error) {
	_, encoded, found := strings.Cut(dataURL, ";base64,")
	if !found {
		return nil, fmt.Errorf("not a base64 data url")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}
	return data, nil
}
