package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"uranai/internal/app"
	"uranai/internal/domain"
	"uranai/internal/flow"
	"uranai/internal/middleware"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// skipMark leaves an optional field empty
const skipMark = "-"

const registerNotice = "📧 確認メールを送信しました。メール内のリンクを開いてからログインしてください。"

// handleText handles all text messages based on the pending input step
func (h *Handler) handleText(c tele.Context) error {
	text := strings.TrimSpace(c.Text())

	// Ignore commands (starting with /)
	if strings.HasPrefix(text, "/") {
		return nil
	}
	ctrl, ok := middleware.Controller(c)
	if !ok {
		return nil
	}

	// Passwords do not stay in the chat history
	if ctrl.Input().Step == domain.StepWaitingPassword {
		if err := h.sender.Delete(c.Message()); err != nil {
			h.logger.Warn("Failed to delete password message", zap.Error(err))
		}
	}

	reply, err := processText(h.ctx, ctrl, text)
	switch {
	case errors.Is(err, flow.ErrInvalidTransition):
		reply = "この操作は現在できません。"
	case err != nil:
		ctrl.Report(err)
	}

	v := h.viewFor(ctrl)
	if reply != "" {
		if _, sendErr := h.sender.Send(tele.ChatID(ctrl.ChatID), reply); sendErr != nil {
			h.logger.Warn("Failed to send reply", zap.Error(sendErr))
		}
	}
	v.detach()
	v.notify()
	return nil
}

// processText feeds text into the pending input step and returns an optional
// one-off reply for the chat
func processText(ctx context.Context, ctrl *app.Controller, text string) (string, error) {
	in := ctrl.Input()

	switch in.Step {
	case domain.StepWaitingEmail:
		if text == "" {
			return "", domain.NewValidationError("メールアドレスを入力してください。")
		}
		in.Email = text
		in.Step = domain.StepWaitingPassword
		ctrl.SetInput(in)
		return "", nil

	case domain.StepWaitingPassword:
		return submitCredentials(ctx, ctrl, in, text)

	case domain.StepWaitingNickname:
		if text == "" {
			return "", domain.NewValidationError("ニックネームを入力してください。")
		}
		in.Draft.Nickname = text
		in.Step = domain.StepWaitingName
		ctrl.SetInput(in)
		return "", nil

	case domain.StepWaitingName:
		in.Draft.NameHiragana = optional(text)
		in.Step = domain.StepWaitingBirthDate
		ctrl.SetInput(in)
		return "", nil

	case domain.StepWaitingBirthDate:
		date := optional(text)
		if date == "" && in.ForPair {
			return "", domain.NewValidationError("相性占いには生年月日が必要です。")
		}
		if date != "" {
			if _, err := time.Parse(domain.DateLayout, date); err != nil {
				return "", domain.NewValidationError("生年月日は YYYY-MM-DD の形式で入力してください。")
			}
		}
		in.Draft.BirthDate = date
		in.Step = domain.StepWaitingBirthTime
		ctrl.SetInput(in)
		return "", nil

	case domain.StepWaitingBirthTime:
		birthTime := optional(text)
		if birthTime != "" {
			if _, err := time.Parse(domain.TimeLayout, birthTime); err != nil {
				return "", domain.NewValidationError("出生時刻は HH:MM の形式で入力してください。")
			}
		}
		in.Draft.BirthTime = birthTime
		in.Step = domain.StepWaitingBirthPlace
		ctrl.SetInput(in)
		return "", nil

	case domain.StepWaitingBirthPlace:
		if place := optional(text); place != "" {
			in.Draft.BirthLocation = &domain.Place{Place: place}
		}
		return createProfile(ctx, ctrl, in)

	case domain.StepWaitingFollowUp:
		if err := ctrl.Actions.AskMore(text); err != nil {
			return "", err
		}
		ctrl.ResetInput()
		return "", nil
	}

	// Free text on the input screen is the consultation
	if ctrl.Store.Get().Screen == domain.ScreenInput {
		return "", ctrl.Machine.SetConsultation(text)
	}
	return "ボタンから操作を選んでください。", nil
}

func submitCredentials(ctx context.Context, ctrl *app.Controller, in domain.InputState, password string) (string, error) {
	var err error
	if in.Modal == domain.ModalRegister {
		err = ctrl.Account.Register(ctx, in.Email, password)
	} else {
		err = ctrl.Account.Login(ctx, in.Email, password)
	}
	if err != nil {
		// Start over from the email so a typo in either field can be fixed
		ctrl.SetInput(domain.InputState{Step: domain.StepWaitingEmail, Modal: in.Modal})
		return "", err
	}

	ctrl.ResetInput()
	if in.Modal == domain.ModalRegister {
		return registerNotice, nil
	}
	return "", nil
}

func createProfile(ctx context.Context, ctrl *app.Controller, in domain.InputState) (string, error) {
	profile, err := ctrl.Profiles.Create(ctx, in.Draft, in.ForPair)
	if err != nil {
		if domain.IsKind(err, domain.KindValidation) {
			// The draft is rejected as a whole; ask again from the top
			ctrl.SetInput(domain.InputState{Step: domain.StepWaitingNickname, ForPair: in.ForPair})
		}
		return "", err
	}

	ctrl.Modals.Hide()
	ctrl.ResetInput()
	if in.ForPair {
		// Rejected when the screen moved on meanwhile; the machine logs it
		_ = ctrl.Machine.ToggleProfile(profile.ID)
	}
	return "", nil
}

func optional(text string) string {
	text = strings.TrimSpace(text)
	if text == skipMark {
		return ""
	}
	return text
}
