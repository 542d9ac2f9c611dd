package handler

import (
	"uranai/internal/middleware"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handleStart handles /start command. The wizard is re-posted as a new message
// at the bottom of the chat.
func (h *Handler) handleStart(c tele.Context) error {
	ctrl, ok := middleware.Controller(c)
	if !ok {
		return nil
	}

	h.logger.Info("User started bot",
		zap.Int64("chat_id", ctrl.ChatID),
		zap.String("username", c.Sender().Username),
	)

	ctrl.ResetInput()
	v := h.viewFor(ctrl)
	v.detach()
	v.notify()
	return nil
}
