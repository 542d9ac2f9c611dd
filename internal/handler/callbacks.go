package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"uranai/internal/app"
	"uranai/internal/domain"
	"uranai/internal/entitlement"
	"uranai/internal/flow"
	"uranai/internal/middleware"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

var errBadPayload = errors.New("malformed callback payload")

// cleanCallbackData removes all non-printable characters from callback data
func cleanCallbackData(data string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(data))
}

// parseCallback splits a callback into action and payload. Buttons without a
// registered handler arrive with the raw "\faction|payload" data.
func parseCallback(unique, data string) (string, string) {
	data = cleanCallbackData(data)
	if unique != "" {
		return unique, data
	}
	action, payload, _ := strings.Cut(data, "|")
	return action, payload
}

// handleCallback handles ALL callback queries
func (h *Handler) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		h.logger.Warn("handleCallback: callback is nil")
		return nil
	}
	ctrl, ok := middleware.Controller(c)
	if !ok {
		return c.Respond()
	}

	action, payload := parseCallback(callback.Unique, callback.Data)
	h.logger.Debug("handleCallback: Processing callback",
		zap.String("action", action),
		zap.String("payload", payload),
		zap.Int64("chat_id", ctrl.ChatID),
	)

	err := dispatch(h.ctx, ctrl, action, payload)
	h.viewFor(ctrl).notify()

	switch {
	case err == nil:
		return c.Respond()
	case errors.Is(err, flow.ErrInvalidTransition), errors.Is(err, errBadPayload):
		return c.Respond(&tele.CallbackResponse{Text: "この操作は現在できません。"})
	case errors.Is(err, flow.ErrUnknownProfile):
		return c.Respond(&tele.CallbackResponse{Text: "この人は見つかりませんでした。"})
	}

	ctrl.Report(err)
	return c.Respond()
}

// dispatch runs the controller action behind a button
func dispatch(ctx context.Context, ctrl *app.Controller, action, payload string) error {
	switch action {
	case actPurpose:
		return ctrl.Machine.ChoosePurpose(domain.Purpose(payload))
	case actToggle:
		id, err := strconv.Atoi(payload)
		if err != nil {
			return errBadPayload
		}
		return ctrl.Machine.ToggleProfile(id)
	case actConfirm:
		return ctrl.Machine.ConfirmSelection()
	case actBack:
		return ctrl.Machine.Back()
	case actType:
		return ctrl.Machine.SelectFortuneType(domain.FortuneType(payload))
	case actSubmit:
		return ctrl.Machine.Submit()
	case actTouch:
		return ctrl.Machine.TouchCard()
	case actNav:
		return ctrl.Machine.Navigate(domain.Screen(payload))

	case actLogin, actRegister:
		s := ctrl.Store.Get()
		if s.Screen != domain.ScreenSplash || s.Session.Present {
			return flow.ErrInvalidTransition
		}
		kind := domain.ModalLogin
		if action == actRegister {
			kind = domain.ModalRegister
		}
		ctrl.Modals.Show(kind, nil)
		ctrl.SetInput(domain.InputState{Step: domain.StepWaitingEmail, Modal: kind})
		return nil
	case actLogout:
		ctrl.ResetInput()
		return ctrl.Account.Logout(ctx)

	case actAddPerson:
		screen := ctrl.Store.Get().Screen
		if screen != domain.ScreenPersonSelect && screen != domain.ScreenMyPage {
			return flow.ErrInvalidTransition
		}
		if ctrl.OpenAddPerson() {
			ctrl.SetInput(domain.InputState{
				Step:    domain.StepWaitingNickname,
				ForPair: screen == domain.ScreenPersonSelect,
			})
		}
		return nil
	case actPerson:
		id, err := strconv.Atoi(payload)
		if err != nil {
			return errBadPayload
		}
		return ctrl.OpenConfirmPerson(id)
	case actDeletePerson:
		return ctrl.DeleteConfirmedProfile(ctx)
	case actCloseModal:
		ctrl.Modals.Hide()
		ctrl.ResetInput()
		return nil

	case actShare:
		return ctrl.Actions.Share()
	case actAskMore:
		s := ctrl.Store.Get()
		if s.Screen != domain.ScreenResult || s.Result.Status != domain.ResultReady {
			return flow.ErrInvalidTransition
		}
		if err := entitlement.CanConsumeAction(s.Entitlement.TicketBalance, s.Entitlement.IsPremium).Err(); err != nil {
			return err
		}
		ctrl.SetInput(domain.InputState{Step: domain.StepWaitingFollowUp})
		return nil
	}
	return errBadPayload
}
