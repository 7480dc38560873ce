package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LepisevKalisey/tgproxy/internal/gateway"
	"github.com/LepisevKalisey/tgproxy/internal/models"
	"github.com/LepisevKalisey/tgproxy/internal/storage"
)

const welcomeText = `👋 Добро пожаловать!

Я помогу вам связаться со службой поддержки. Просто отправьте мне сообщение, и я перешлю его нашим специалистам.

Поддерживаемые типы сообщений:
- Текст
- Фото
- Документы
- Аудио
- Видео
- Голосовые сообщения
- Стикеры`

const unreachableText = "⚠️ Бот не может написать пользователю. Попросите клиента отправить /start."

// ThreadResolver returns the thread for a user, creating it on first
// contact.
type ThreadResolver interface {
	ResolveOrCreate(ctx context.Context, user *models.User) (*models.Thread, error)
}

// Deliverer is the outbound delivery surface the router drives.
type Deliverer interface {
	SendText(chatID, threadID int64, text string) error
	SendContent(chatID, threadID int64, content models.Content) error
	Copy(chatID, threadID, fromChatID int64, messageID int) error
	RenameTopic(chatID, threadID int64, name string) error
}

// Router classifies every inbound message and drives the resolver and the
// gateway to produce the forwarding action. It holds no per-session state;
// everything persistent lives in the store.
type Router struct {
	store      storage.Storage
	resolver   ThreadResolver
	deliverer  Deliverer
	throttle   *CardThrottle
	logger     *zap.Logger
	groupID    int64
	adminIDs   map[int64]struct{}
	titleLimit int
	now        func() time.Time
}

func NewRouter(store storage.Storage, resolver ThreadResolver, deliverer Deliverer, throttle *CardThrottle, groupID int64, adminIDs []int64, titleLimit int, logger *zap.Logger) *Router {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Router{
		store:      store,
		resolver:   resolver,
		deliverer:  deliverer,
		throttle:   throttle,
		logger:     logger,
		groupID:    groupID,
		adminIDs:   admins,
		titleLimit: titleLimit,
		now:        time.Now,
	}
}

// HandleMessage routes one inbound message to its destination.
func (r *Router) HandleMessage(ctx context.Context, msg *models.Message) {
	if msg == nil || msg.From == nil {
		return
	}

	logger := r.logger.With(zap.String("event_id", uuid.New().String()))

	switch {
	case msg.Chat.Type == "private":
		r.handlePrivate(ctx, logger, msg)
	case msg.Chat.ID == r.groupID && msg.IsTopicMessage && !msg.From.IsBot:
		if msg.IsCommand() {
			r.handleCommand(ctx, logger, msg)
			return
		}
		r.relayToUser(ctx, logger, msg)
	}
}

func (r *Router) handlePrivate(ctx context.Context, logger *zap.Logger, msg *models.Message) {
	user := msg.Sender()

	if msg.IsCommand() && msg.Command() == "start" {
		if err := r.deliverer.SendText(msg.Chat.ID, 0, welcomeText); err != nil {
			logger.Error("Failed to send welcome message",
				zap.Error(err),
				zap.Int64("user_id", user.ID))
		}
		return
	}

	if err := r.store.UpsertUser(ctx, user); err != nil {
		logger.Error("Failed to upsert user",
			zap.Error(err),
			zap.Int64("user_id", user.ID))
		return
	}

	thread, err := r.resolver.ResolveOrCreate(ctx, user)
	if err != nil {
		logger.Error("Failed to resolve thread",
			zap.Error(err),
			zap.Int64("user_id", user.ID))
		return
	}

	if r.throttle.Allow(user.ID, r.now()) {
		card := fmt.Sprintf("👤 %s | id=%d", user.DisplayName(), user.ID)
		if err := r.deliverer.SendText(thread.GroupID, thread.ThreadID, card); err != nil {
			logger.Warn("Failed to send user card",
				zap.Error(err),
				zap.Int64("thread_id", thread.ThreadID))
		}
	}

	copyErr := r.deliverer.Copy(thread.GroupID, thread.ThreadID, msg.Chat.ID, msg.MessageID)
	if copyErr == nil {
		return
	}
	logger.Warn("Failed to copy message, falling back by content type",
		zap.Error(copyErr),
		zap.Int64("user_id", user.ID),
		zap.Int64("thread_id", thread.ThreadID))

	if content, ok := contentOf(msg); ok {
		err := r.deliverer.SendContent(thread.GroupID, thread.ThreadID, content)
		if err == nil {
			return
		}
		logger.Error("Fallback delivery failed",
			zap.Error(err),
			zap.Int64("user_id", user.ID),
			zap.String("content_kind", string(content.Kind)))
	}

	// Best-effort notice; its own failure is only logged.
	notice := fmt.Sprintf("❌ Не удалось переслать сообщение от пользователя %d", user.ID)
	if err := r.deliverer.SendText(thread.GroupID, thread.ThreadID, notice); err != nil {
		logger.Error("Failed to send forwarding-failure notice",
			zap.Error(err),
			zap.Int64("thread_id", thread.ThreadID))
	}
}

func (r *Router) relayToUser(ctx context.Context, logger *zap.Logger, msg *models.Message) {
	thread, err := r.store.GetThreadByID(ctx, msg.ThreadID)
	if err != nil {
		logger.Error("Failed to look up thread",
			zap.Error(err),
			zap.Int64("thread_id", msg.ThreadID))
		return
	}
	if thread == nil || thread.IsArchived {
		return
	}

	content, ok := contentOf(msg)
	if !ok {
		return
	}

	if err := r.deliverer.SendContent(thread.UserID, 0, content); err != nil {
		if gateway.IsUnreachable(err) {
			if err := r.deliverer.SendText(thread.GroupID, thread.ThreadID, unreachableText); err != nil {
				logger.Error("Failed to send unreachable warning",
					zap.Error(err),
					zap.Int64("thread_id", thread.ThreadID))
			}
			return
		}
		logger.Error("Failed to relay message to user",
			zap.Error(err),
			zap.Int64("user_id", thread.UserID),
			zap.Int64("thread_id", thread.ThreadID))
	}
}

func (r *Router) handleCommand(ctx context.Context, logger *zap.Logger, msg *models.Message) {
	if _, isAdmin := r.adminIDs[msg.From.ID]; !isAdmin {
		return
	}

	thread, err := r.store.GetThreadByID(ctx, msg.ThreadID)
	if err != nil {
		logger.Error("Failed to look up thread for command",
			zap.Error(err),
			zap.Int64("thread_id", msg.ThreadID))
		return
	}
	if thread == nil {
		return
	}

	switch msg.Command() {
	case "id":
		reply := fmt.Sprintf("👤 id=%d", thread.UserID)
		if err := r.deliverer.SendText(thread.GroupID, thread.ThreadID, reply); err != nil {
			logger.Error("Failed to reply with user id",
				zap.Error(err),
				zap.Int64("thread_id", thread.ThreadID))
		}
	case "rename":
		r.renameThread(ctx, logger, msg, thread)
	case "close":
		thread.IsArchived = true
		if err := r.store.SaveThread(ctx, thread); err != nil {
			logger.Error("Failed to archive thread",
				zap.Error(err),
				zap.Int64("thread_id", thread.ThreadID))
			return
		}
		if err := r.deliverer.SendText(thread.GroupID, thread.ThreadID, "Тема закрыта."); err != nil {
			logger.Error("Failed to acknowledge close",
				zap.Error(err),
				zap.Int64("thread_id", thread.ThreadID))
		}
	}
}

func (r *Router) renameThread(ctx context.Context, logger *zap.Logger, msg *models.Message, thread *models.Thread) {
	title := strings.TrimSpace(msg.CommandArguments())
	if title == "" {
		return
	}
	title = models.TruncateTitle(title, r.titleLimit)

	if err := r.deliverer.RenameTopic(thread.GroupID, thread.ThreadID, title); err != nil {
		logger.Error("Failed to rename topic",
			zap.Error(err),
			zap.Int64("thread_id", thread.ThreadID))
		return
	}

	thread.Title = title
	if err := r.store.SaveThread(ctx, thread); err != nil {
		logger.Error("Failed to save renamed thread",
			zap.Error(err),
			zap.Int64("thread_id", thread.ThreadID))
	}
}
