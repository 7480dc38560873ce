package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/LepisevKalisey/tgproxy/internal/models"
)

// API is the slice of tgbotapi.BotAPI the gateway needs. Every outbound
// call goes through MakeRequest because the v5 library has no typed configs
// for forum-topic endpoints or the message_thread_id parameter.
type API interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// RetryPolicy bounds how transient transport failures are absorbed.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
}

// Gateway wraps the Bot API with bounded exponential-backoff retry. Only
// failures classified as transient (rate limit, server-side 5xx) are
// retried; everything else propagates on the first attempt.
type Gateway struct {
	api    API
	logger *zap.Logger
	policy RetryPolicy
	sleep  func(time.Duration)
}

func New(api API, policy RetryPolicy, logger *zap.Logger) *Gateway {
	return &Gateway{
		api:    api,
		logger: logger,
		policy: policy,
		sleep:  time.Sleep,
	}
}

// IsTransient reports whether the error is a rate-limit or server-side
// failure worth retrying.
func IsTransient(err error) bool {
	var tgErr *tgbotapi.Error
	if !errors.As(err, &tgErr) {
		return false
	}
	return tgErr.Code == 429 || tgErr.Code >= 500
}

// IsUnreachable reports whether delivery failed because the recipient
// blocked the bot or never started a private conversation with it.
func IsUnreachable(err error) bool {
	var tgErr *tgbotapi.Error
	if !errors.As(err, &tgErr) {
		return false
	}
	if tgErr.Code == 403 {
		return true
	}
	return tgErr.Code == 400 && strings.Contains(strings.ToLower(tgErr.Message), "chat not found")
}

func (g *Gateway) request(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	delay := g.policy.BaseDelay
	for attempt := 0; ; attempt++ {
		resp, err := g.api.MakeRequest(endpoint, params)
		if err == nil {
			return resp, nil
		}
		if attempt >= g.policy.MaxRetries || !IsTransient(err) {
			return resp, err
		}
		g.logger.Warn("Transient Telegram API error, retrying",
			zap.Error(err),
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay))
		g.sleep(delay)
		delay = time.Duration(float64(delay) * g.policy.Multiplier)
	}
}

// SendText sends a plain text message. threadID 0 targets the chat itself
// rather than a forum topic.
func (g *Gateway) SendText(chatID, threadID int64, text string) error {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero64("message_thread_id", threadID)
	params.AddNonEmpty("text", text)

	if _, err := g.request("sendMessage", params); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendContent re-sends a single piece of message content by its type,
// preserving the caption where the type supports one.
func (g *Gateway) SendContent(chatID, threadID int64, content models.Content) error {
	if content.Kind == models.TextContent {
		return g.SendText(chatID, threadID, content.Text)
	}

	var endpoint, field string
	switch content.Kind {
	case models.PhotoContent:
		endpoint, field = "sendPhoto", "photo"
	case models.DocumentContent:
		endpoint, field = "sendDocument", "document"
	case models.AudioContent:
		endpoint, field = "sendAudio", "audio"
	case models.VideoContent:
		endpoint, field = "sendVideo", "video"
	case models.VoiceContent:
		endpoint, field = "sendVoice", "voice"
	case models.StickerContent:
		endpoint, field = "sendSticker", "sticker"
	default:
		return fmt.Errorf("unsupported content kind: %s", content.Kind)
	}

	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero64("message_thread_id", threadID)
	params.AddNonEmpty(field, content.FileID)
	if content.Kind != models.StickerContent {
		params.AddNonEmpty("caption", content.Caption)
	}

	if _, err := g.request(endpoint, params); err != nil {
		return fmt.Errorf("failed to send %s: %w", content.Kind, err)
	}
	return nil
}

// Copy relays a message verbatim via copyMessage.
func (g *Gateway) Copy(chatID, threadID, fromChatID int64, messageID int) error {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero64("message_thread_id", threadID)
	params.AddNonZero64("from_chat_id", fromChatID)
	params.AddNonZero("message_id", messageID)

	if _, err := g.request("copyMessage", params); err != nil {
		return fmt.Errorf("failed to copy message: %w", err)
	}
	return nil
}

// CreateTopic opens a new forum topic and returns its platform-assigned
// thread id.
func (g *Gateway) CreateTopic(chatID int64, name string) (int64, error) {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", chatID)
	params.AddNonEmpty("name", name)

	resp, err := g.request("createForumTopic", params)
	if err != nil {
		return 0, fmt.Errorf("failed to create topic: %w", err)
	}

	var topic struct {
		MessageThreadID int64 `json:"message_thread_id"`
	}
	if err := json.Unmarshal(resp.Result, &topic); err != nil {
		return 0, fmt.Errorf("failed to decode created topic: %w", err)
	}
	if topic.MessageThreadID == 0 {
		return 0, fmt.Errorf("created topic has no thread id")
	}
	return topic.MessageThreadID, nil
}

// RenameTopic changes a forum topic's display name.
func (g *Gateway) RenameTopic(chatID, threadID int64, name string) error {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero64("message_thread_id", threadID)
	params.AddNonEmpty("name", name)

	if _, err := g.request("editForumTopic", params); err != nil {
		return fmt.Errorf("failed to rename topic: %w", err)
	}
	return nil
}

// SetWebhook registers the webhook URL with its secret token.
func (g *Gateway) SetWebhook(url, secret string) error {
	params := make(tgbotapi.Params)
	params.AddNonEmpty("url", url)
	params.AddNonEmpty("secret_token", secret)

	if _, err := g.request("setWebhook", params); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}
