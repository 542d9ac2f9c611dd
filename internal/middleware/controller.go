package middleware

import (
	"uranai/internal/app"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const controllerKey = "controller"

// ControllerMiddleware attaches the chat's controller to the context
func ControllerMiddleware(registry *app.Registry, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil {
				logger.Debug("Update without chat ignored")
				return nil
			}

			ctrl, err := registry.Get(chat.ID)
			if err != nil {
				logger.Error("Failed to create controller in middleware",
					zap.Int64("chat_id", chat.ID),
					zap.Error(err),
				)
				return c.Send("エラーが発生しました。しばらくしてから再度お試しください。")
			}

			c.Set(controllerKey, ctrl)
			return next(c)
		}
	}
}

// Controller returns the controller attached by ControllerMiddleware
func Controller(c tele.Context) (*app.Controller, bool) {
	ctrl, ok := c.Get(controllerKey).(*app.Controller)
	return ctrl, ok
}
