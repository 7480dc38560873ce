package bot

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/LepisevKalisey/tgproxy/internal/gateway"
	"github.com/LepisevKalisey/tgproxy/internal/models"
	"github.com/LepisevKalisey/tgproxy/internal/relay"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Bot receives Telegram webhook updates over HTTP and dispatches each
// message to the relay router. Authenticity is checked against the webhook
// secret token; everything past that boundary is the router's job.
type Bot struct {
	router     *relay.Router
	gw         *gateway.Gateway
	logger     *zap.Logger
	webhookURL string
	secret     string
	server     *echo.Echo
}

func New(router *relay.Router, gw *gateway.Gateway, webhookURL, secret string, logger *zap.Logger) *Bot {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	b := &Bot{
		router:     router,
		gw:         gw,
		logger:     logger,
		webhookURL: webhookURL,
		secret:     secret,
		server:     e,
	}

	e.GET("/healthz", b.handleHealth)
	e.POST("/tg/webhook", b.handleWebhook)

	return b
}

// Start registers the webhook with Telegram and serves updates until the
// listener fails.
func (b *Bot) Start(addr string) error {
	if err := b.gw.SetWebhook(b.webhookURL, b.secret); err != nil {
		return err
	}
	b.logger.Info("Webhook registered", zap.String("url", b.webhookURL))

	return b.server.Start(addr)
}

func (b *Bot) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (b *Bot) handleWebhook(c echo.Context) error {
	if c.Request().Header.Get(secretTokenHeader) != b.secret {
		b.logger.Warn("Invalid webhook secret token")
		return c.NoContent(http.StatusForbidden)
	}

	var update models.Update
	if err := c.Bind(&update); err != nil {
		b.logger.Warn("Failed to decode update", zap.Error(err))
		return c.NoContent(http.StatusBadRequest)
	}

	if update.Message != nil {
		go b.router.HandleMessage(context.Background(), update.Message)
	}

	return c.NoContent(http.StatusOK)
}
