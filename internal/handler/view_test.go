package handler

import (
	"testing"

	"uranai/internal/domain"
	"uranai/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buttons(v view) []string {
	var out []string
	if v.markup == nil {
		return out
	}
	for _, row := range v.markup.InlineKeyboard {
		for _, btn := range row {
			if btn.Data == "" {
				out = append(out, btn.Unique)
				continue
			}
			out = append(out, btn.Unique+"|"+btn.Data)
		}
	}
	return out
}

func idle() domain.InputState {
	return domain.InputState{Step: domain.StepIdle}
}

func TestRender_Splash(t *testing.T) {
	s := domain.NewAppState()

	v := render(s, idle())
	assert.Contains(t, v.text, "読み込み中")
	assert.Nil(t, v.options())

	s.AuthChecked = true
	v = render(s, idle())
	assert.Equal(t, []string{actLogin, actRegister}, buttons(v))
	assert.Len(t, v.options(), 1)
}

func TestRender_HomePlanLine(t *testing.T) {
	s := domain.NewAppState()
	s.Screen = domain.ScreenHome
	s.Entitlement = domain.Entitlement{TicketBalance: 3}

	v := render(s, idle())
	assert.Contains(t, v.text, "チケット: 3枚")
	assert.Equal(t, []string{"purpose|personal", "purpose|compatibility", "nav|mypage"}, buttons(v))

	s.Entitlement.IsPremium = true
	assert.Contains(t, render(s, idle()).text, "プレミアム会員")
}

func TestRender_PersonSelectMarksSelection(t *testing.T) {
	s := domain.NewAppState()
	s.Screen = domain.ScreenPersonSelect
	s.Profiles = []domain.Profile{testutil.NewTestProfile(1, "たろう"), testutil.NewTestProfile(2, "はなこ")}
	s.Selection = domain.Selection{Purpose: domain.PurposeCompatibility, ProfileIDs: []int{2}}

	v := render(s, idle())

	assert.Contains(t, v.text, "（1/2）")
	assert.Equal(t, []string{"toggle|1", "toggle|2", actAddPerson, actBack, actConfirm}, buttons(v))
	require.Len(t, v.markup.InlineKeyboard, 4)
	assert.Contains(t, v.markup.InlineKeyboard[0][0].Text, "⬜️")
	assert.Contains(t, v.markup.InlineKeyboard[1][0].Text, "✅")
}

func TestRender_FortuneTypeLocks(t *testing.T) {
	s := domain.NewAppState()
	s.Screen = domain.ScreenFortuneType

	v := render(s, idle())
	require.Len(t, v.markup.InlineKeyboard, 5)
	assert.Contains(t, v.markup.InlineKeyboard[3][0].Text, "🔒")
	assert.NotContains(t, v.markup.InlineKeyboard[0][0].Text, "🔒")

	s.Entitlement.IsPremium = true
	v = render(s, idle())
	assert.NotContains(t, v.markup.InlineKeyboard[3][0].Text, "🔒")
}

func TestRender_LoadingHasNoButtons(t *testing.T) {
	s := domain.NewAppState()
	s.Screen = domain.ScreenHoroscopeLoading
	s.Selection.FortuneType = domain.FortuneHoroscope

	v := render(s, idle())

	assert.Contains(t, v.text, "占っています")
	assert.Nil(t, v.options())
}

func TestRender_Result(t *testing.T) {
	s := domain.NewAppState()
	s.Screen = domain.ScreenResult
	s.Result = domain.DivinationResult{
		Key:    domain.FetchKey{FortuneType: domain.FortuneTarot, Purpose: domain.PurposePersonal, ProfileIDs: []int{1}},
		Status: domain.ResultLoading,
	}

	assert.Contains(t, render(s, idle()).text, "取得しています")

	s.Result.Status = domain.ResultReady
	s.Result.Payload = testutil.NewTestPayload(domain.FortuneTarot, domain.PurposePersonal, "新しい出会いがあります。")
	v := render(s, idle())
	assert.Contains(t, v.text, "新しい出会いがあります。")
	assert.Equal(t, []string{actShare, actAskMore, "nav|home"}, buttons(v))

	v = render(s, domain.InputState{Step: domain.StepWaitingFollowUp})
	assert.Contains(t, v.text, inputPrompts[domain.StepWaitingFollowUp])
	assert.Equal(t, []string{"nav|home"}, buttons(v))
}

func TestRender_ModalReplacesScreen(t *testing.T) {
	s := domain.NewAppState()
	s.Screen = domain.ScreenHome
	s.Modal = domain.ModalState{Kind: domain.ModalPremium, Payload: &domain.ModalPayload{Message: "プレミアム限定です"}}

	v := render(s, idle())

	assert.Contains(t, v.text, "プレミアム限定です")
	assert.NotContains(t, v.text, "ホーム")
	assert.Equal(t, []string{actCloseModal}, buttons(v))
}

func TestRender_LoginModalFollowsInput(t *testing.T) {
	s := domain.NewAppState()
	s.AuthChecked = true
	s.Modal = domain.ModalState{Kind: domain.ModalLogin}

	v := render(s, domain.InputState{Step: domain.StepWaitingPassword, Modal: domain.ModalLogin})
	assert.Contains(t, v.text, inputPrompts[domain.StepWaitingPassword])

	s.Modal.Payload = &domain.ModalPayload{Message: "パスワードが正しくありません。"}
	v = render(s, domain.InputState{Step: domain.StepWaitingEmail, Modal: domain.ModalLogin})
	assert.Contains(t, v.text, "⚠️ パスワードが正しくありません。")
	assert.Contains(t, v.text, inputPrompts[domain.StepWaitingEmail])
}

func TestRender_ConfirmPerson(t *testing.T) {
	s := domain.NewAppState()
	s.Screen = domain.ScreenMyPage
	s.Profiles = []domain.Profile{testutil.NewTestProfile(1, "たろう")}
	s.Modal = domain.ModalState{Kind: domain.ModalConfirmPerson, Payload: &domain.ModalPayload{ProfileID: 1}}

	v := render(s, idle())

	assert.Contains(t, v.text, "たろう")
	assert.Contains(t, v.text, "1990-01-01")
	assert.Contains(t, v.text, "東京都中央区")
	assert.Equal(t, []string{actDeletePerson, actCloseModal}, buttons(v))
}

func TestRender_ErrorLine(t *testing.T) {
	s := domain.NewAppState()
	s.Screen = domain.ScreenHome
	s.Error = "通信エラーが発生しました。"

	v := render(s, idle())

	assert.Contains(t, v.text, "⚠️ 通信エラーが発生しました。\n\n🏠 ホーム")
}

func TestViewSignature(t *testing.T) {
	s := domain.NewAppState()
	s.Screen = domain.ScreenHome

	a := render(s, idle())
	b := render(s, idle())
	assert.Equal(t, a.signature(), b.signature())

	s.Entitlement.TicketBalance = 1
	assert.NotEqual(t, a.signature(), render(s, idle()).signature())
}
