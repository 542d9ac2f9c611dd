package handler

import (
	"context"
	"sync"

	"uranai/internal/app"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Sender is the part of the bot API the handler talks to
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// Handler manages all bot interactions
type Handler struct {
	ctx      context.Context
	sender   Sender
	registry *app.Registry
	logger   *zap.Logger

	// Rendered wizard message per chat
	views    map[int64]*chatView
	viewsMux sync.Mutex
}

// NewHandler creates a new handler instance. Views stop rendering when ctx is done.
func NewHandler(ctx context.Context, sender Sender, registry *app.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		ctx:      ctx,
		sender:   sender,
		registry: registry,
		logger:   logger,
		views:    make(map[int64]*chatView),
	}
}

// RegisterHandlers registers all bot handlers
func (h *Handler) RegisterHandlers(bot *tele.Bot) {
	// Commands
	bot.Handle("/start", h.handleStart)

	// Text messages
	bot.Handle(tele.OnText, h.handleText)

	// Every inline button is routed through one callback handler
	bot.Handle(tele.OnCallback, h.handleCallback)
}

// viewFor returns the view of the chat, creating and starting it on first use
func (h *Handler) viewFor(ctrl *app.Controller) *chatView {
	h.viewsMux.Lock()
	defer h.viewsMux.Unlock()

	v, ok := h.views[ctrl.ChatID]
	if !ok {
		v = newChatView(ctrl, h.sender, h.logger)
		h.views[ctrl.ChatID] = v
		go v.run(h.ctx)
	}
	return v
}
