package handler

import (
	"context"
	"strings"
	"sync"

	"uranai/internal/app"
	"uranai/internal/domain"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// chatView keeps the chat's wizard message in step with the controller state.
// Store changes only signal wake; the run loop renders the latest state so a
// burst of changes costs one edit.
type chatView struct {
	chatID int64
	ctrl   *app.Controller
	sender Sender
	logger *zap.Logger
	wake   chan struct{}

	mu   sync.Mutex
	last *tele.Message
	sig  string
}

func newChatView(ctrl *app.Controller, sender Sender, logger *zap.Logger) *chatView {
	return &chatView{
		chatID: ctrl.ChatID,
		ctrl:   ctrl,
		sender: sender,
		logger: logger.With(zap.Int64("chat_id", ctrl.ChatID)),
		wake:   make(chan struct{}, 1),
	}
}

// run renders on every wake until ctx is done
func (v *chatView) run(ctx context.Context) {
	unsubscribe := v.ctrl.Store.Subscribe(func(prev, next domain.AppState) {
		v.notify()
	})
	defer unsubscribe()

	v.notify()
	for {
		select {
		case <-ctx.Done():
			return
		case <-v.wake:
			if err := v.flush(); err != nil {
				v.logger.Warn("Failed to render view", zap.Error(err))
			}
		}
	}
}

// notify asks the run loop to render
func (v *chatView) notify() {
	select {
	case v.wake <- struct{}{}:
	default:
	}
}

// detach forgets the current message so the next render sends a new one below
// whatever the user typed
func (v *chatView) detach() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = nil
	v.sig = ""
}

// flush renders the current state, editing the last message when there is one
func (v *chatView) flush() error {
	current := render(v.ctrl.Store.Get(), v.ctrl.Input())
	sig := current.signature()

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.last != nil && sig == v.sig {
		return nil
	}

	if v.last != nil {
		msg, err := v.sender.Edit(v.last, current.text, current.options()...)
		if err == nil {
			if msg != nil {
				v.last = msg
			}
			v.sig = sig
			return nil
		}
		if isNotModified(err) {
			v.sig = sig
			return nil
		}
		v.logger.Warn("Failed to edit message, sending new", zap.Error(err))
	}

	msg, err := v.sender.Send(tele.ChatID(v.chatID), current.text, current.options()...)
	if err != nil {
		return err
	}
	v.last = msg
	v.sig = sig
	return nil
}

// isNotModified reports whether an edit failed only because nothing changed
func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
