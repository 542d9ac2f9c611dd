package handler

import (
	"fmt"
	"strconv"
	"strings"

	"uranai/internal/domain"

	tele "gopkg.in/telebot.v3"
)

// Callback actions
const (
	actPurpose      = "purpose"
	actToggle       = "toggle"
	actConfirm      = "confirm"
	actBack         = "back"
	actType         = "type"
	actSubmit       = "submit"
	actTouch        = "touch"
	actNav          = "nav"
	actLogin        = "login"
	actRegister     = "register"
	actLogout       = "logout"
	actAddPerson    = "add_person"
	actPerson       = "person"
	actDeletePerson = "delete_person"
	actCloseModal   = "close_modal"
	actShare        = "share"
	actAskMore      = "ask_more"
)

// view is one rendered screen
type view struct {
	text   string
	markup *tele.ReplyMarkup
}

// signature identifies a view so identical renders are not sent twice
func (v view) signature() string {
	var b strings.Builder
	b.WriteString(v.text)
	if v.markup != nil {
		for _, row := range v.markup.InlineKeyboard {
			for _, btn := range row {
				b.WriteString("|" + btn.Unique + ":" + btn.Data + ":" + btn.Text)
			}
		}
	}
	return b.String()
}

var purposeLabels = map[domain.Purpose]string{
	domain.PurposePersonal:      "🙋 自分を占う",
	domain.PurposeCompatibility: "💞 相性を占う",
}

var fortuneLabels = map[domain.FortuneType]string{
	domain.FortuneNumerology:    "🔢 数秘術",
	domain.FortuneHoroscope:     "🌟 星占い",
	domain.FortuneTarot:         "🃏 タロット",
	domain.FortuneComprehensive: "🔮 総合占い",
}

var fortuneOrder = []domain.FortuneType{
	domain.FortuneNumerology,
	domain.FortuneHoroscope,
	domain.FortuneTarot,
	domain.FortuneComprehensive,
}

var inputPrompts = map[domain.InputStep]string{
	domain.StepWaitingEmail:      "メールアドレスを入力してください。",
	domain.StepWaitingPassword:   "パスワードを入力してください。",
	domain.StepWaitingNickname:   "ニックネームを入力してください。",
	domain.StepWaitingName:       "お名前（ひらがな）を入力してください。",
	domain.StepWaitingBirthDate:  "生年月日を YYYY-MM-DD 形式で入力してください。",
	domain.StepWaitingBirthTime:  "出生時刻を HH:MM 形式で入力してください（不明なら「-」）。",
	domain.StepWaitingBirthPlace: "出生地を入力してください（不明なら「-」）。",
	domain.StepWaitingFollowUp:   "追加で聞きたいことを入力してください。",
}

// options returns the send options of v. A view without buttons sends no
// markup so an edit removes the previous keyboard.
func (v view) options() []interface{} {
	if v.markup == nil || len(v.markup.InlineKeyboard) == 0 {
		return nil
	}
	return []interface{}{v.markup}
}

// render builds the view of the current state. An open modal replaces the screen.
func render(s domain.AppState, in domain.InputState) view {
	var v view
	if s.Modal.Open() {
		v = renderModal(s, in)
	} else {
		v = renderScreen(s, in)
	}
	if s.Error != "" {
		v.text = "⚠️ " + s.Error + "\n\n" + v.text
	}
	return v
}

func renderScreen(s domain.AppState, in domain.InputState) view {
	markup := &tele.ReplyMarkup{}

	switch s.Screen {
	case domain.ScreenSplash:
		if !s.AuthChecked || s.Session.Present {
			return view{text: "🔮 uranAI\n\n読み込み中...", markup: markup}
		}
		markup.Inline(markup.Row(
			markup.Data("🔑 ログイン", actLogin),
			markup.Data("📝 新規登録", actRegister),
		))
		return view{text: "🔮 uranAI へようこそ\n\nログインして占いを始めましょう。", markup: markup}

	case domain.ScreenHome:
		markup.Inline(
			markup.Row(markup.Data(purposeLabels[domain.PurposePersonal], actPurpose, string(domain.PurposePersonal))),
			markup.Row(markup.Data(purposeLabels[domain.PurposeCompatibility], actPurpose, string(domain.PurposeCompatibility))),
			markup.Row(markup.Data("👤 マイページ", actNav, string(domain.ScreenMyPage))),
		)
		return view{text: "🏠 ホーム\n\n" + planLine(s.Entitlement) + "\n\n占いの目的を選んでください。", markup: markup}

	case domain.ScreenPersonSelect:
		sel := s.Selection
		rows := make([]tele.Row, 0, len(s.Profiles)+2)
		for _, p := range s.Profiles {
			mark := "⬜️"
			if sel.Contains(p.ID) {
				mark = "✅"
			}
			rows = append(rows, markup.Row(markup.Data(mark+" "+p.Nickname, actToggle, strconv.Itoa(p.ID))))
		}
		rows = append(rows,
			markup.Row(markup.Data("➕ 人を追加", actAddPerson)),
			markup.Row(markup.Data("◀️ 戻る", actBack), markup.Data("次へ ▶️", actConfirm)),
		)
		markup.Inline(rows...)
		text := fmt.Sprintf("👥 占う人を選んでください（%d/%d）", len(sel.ProfileIDs), sel.Purpose.SelectionCap())
		if len(s.Profiles) == 0 {
			text += "\n\nまだ誰も登録されていません。"
		}
		return view{text: text, markup: markup}

	case domain.ScreenFortuneType:
		rows := make([]tele.Row, 0, len(fortuneOrder)+1)
		for _, t := range fortuneOrder {
			label := fortuneLabels[t]
			if t.PremiumOnly() && !s.Entitlement.IsPremium {
				label += " 🔒"
			}
			rows = append(rows, markup.Row(markup.Data(label, actType, string(t))))
		}
		rows = append(rows, markup.Row(markup.Data("◀️ 戻る", actBack)))
		markup.Inline(rows...)
		return view{text: "🔮 占い方法を選んでください。", markup: markup}

	case domain.ScreenInput:
		markup.Inline(markup.Row(markup.Data("🔮 占う", actSubmit)))
		text := fmt.Sprintf("✍️ %s\n\n相談内容があれば入力してください（任意）。", fortuneLabels[s.Selection.FortuneType])
		if s.Selection.ConsultationText != "" {
			text += "\n\n相談内容: " + s.Selection.ConsultationText
		}
		return view{text: text, markup: markup}

	case domain.ScreenTarotTouch:
		markup.Inline(markup.Row(markup.Data("🃏 カードを引く", actTouch)))
		return view{text: "🃏 心を落ち着けて、カードに触れてください。", markup: markup}

	case domain.ScreenNumerologyLoading, domain.ScreenHoroscopeLoading,
		domain.ScreenTarotLoading, domain.ScreenComprehensiveLoading:
		return view{text: fmt.Sprintf("%s で占っています...", fortuneLabels[s.Selection.FortuneType]), markup: markup}

	case domain.ScreenResult:
		return renderResult(s, in, markup)

	case domain.ScreenMyPage:
		rows := make([]tele.Row, 0, len(s.Profiles)+3)
		for _, p := range s.Profiles {
			rows = append(rows, markup.Row(markup.Data("👤 "+p.Nickname, actPerson, strconv.Itoa(p.ID))))
		}
		rows = append(rows,
			markup.Row(markup.Data("➕ 人を追加", actAddPerson)),
			markup.Row(markup.Data("🏠 ホーム", actNav, string(domain.ScreenHome)), markup.Data("🚪 ログアウト", actLogout)),
		)
		markup.Inline(rows...)
		text := "👤 マイページ\n\n" + planLine(s.Entitlement) + fmt.Sprintf("\n登録済みの人: %d人", len(s.Profiles))
		return view{text: text, markup: markup}
	}

	return view{text: "🔮 uranAI", markup: markup}
}

func renderResult(s domain.AppState, in domain.InputState, markup *tele.ReplyMarkup) view {
	home := markup.Data("🏠 ホーム", actNav, string(domain.ScreenHome))

	switch s.Result.Status {
	case domain.ResultReady:
		if in.Step == domain.StepWaitingFollowUp {
			markup.Inline(markup.Row(home))
			return view{text: "❓ " + inputPrompts[domain.StepWaitingFollowUp], markup: markup}
		}
		markup.Inline(
			markup.Row(markup.Data("📤 シェア", actShare), markup.Data("❓ もっと聞く", actAskMore)),
			markup.Row(home),
		)
		text := "✨ " + fortuneLabels[s.Result.Key.FortuneType] + " の結果\n\n" + s.Result.Payload.AIText()
		return view{text: text, markup: markup}
	case domain.ResultError:
		markup.Inline(markup.Row(home))
		return view{text: "結果を取得できませんでした。", markup: markup}
	}
	return view{text: "🔮 結果を取得しています...", markup: markup}
}

func renderModal(s domain.AppState, in domain.InputState) view {
	markup := &tele.ReplyMarkup{}
	closeBtn := markup.Data("✖️ 閉じる", actCloseModal)

	var text string
	switch s.Modal.Kind {
	case domain.ModalLogin, domain.ModalRegister:
		title := "🔑 ログイン"
		if s.Modal.Kind == domain.ModalRegister {
			title = "📝 新規登録"
		}
		text = title + "\n\n" + promptFor(in, domain.StepWaitingEmail)
		markup.Inline(markup.Row(markup.Data("✖️ キャンセル", actCloseModal)))
	case domain.ModalPremium:
		text = "💎 プレミアムプラン\n\n" + modalMessage(s.Modal, "この機能はプレミアムプラン限定です。")
		markup.Inline(markup.Row(closeBtn))
	case domain.ModalTicket:
		text = "🎫 チケット不足\n\n" + modalMessage(s.Modal, "この機能を利用するにはチケットが1枚必要です。")
		markup.Inline(markup.Row(closeBtn))
	case domain.ModalAddPerson:
		text = "➕ 人を追加\n\n" + promptFor(in, domain.StepWaitingNickname)
		markup.Inline(markup.Row(markup.Data("✖️ キャンセル", actCloseModal)))
	case domain.ModalConfirmPerson:
		text = renderPerson(s)
		markup.Inline(markup.Row(markup.Data("🗑 削除", actDeletePerson), closeBtn))
	default:
		markup.Inline(markup.Row(closeBtn))
	}

	if s.Modal.Payload != nil && s.Modal.Payload.Message != "" &&
		(s.Modal.Kind == domain.ModalLogin || s.Modal.Kind == domain.ModalRegister) {
		text = "⚠️ " + s.Modal.Payload.Message + "\n\n" + text
	}
	return view{text: text, markup: markup}
}

func renderPerson(s domain.AppState) string {
	if s.Modal.Payload == nil {
		return "👤"
	}
	p, ok := domain.FindProfile(s.Profiles, s.Modal.Payload.ProfileID)
	if !ok {
		return "👤 この人は削除されました。"
	}

	lines := []string{
		"👤 " + p.Nickname,
		"",
		"なまえ: " + p.NameHiragana,
		"生年月日: " + orDash(p.BirthDate),
		"出生時刻: " + orDash(p.BirthTime),
	}
	place := ""
	if p.BirthLocation != nil {
		place = p.BirthLocation.Place
	}
	lines = append(lines, "出生地: "+orDash(place))
	return strings.Join(lines, "\n")
}

func promptFor(in domain.InputState, fallback domain.InputStep) string {
	if prompt, ok := inputPrompts[in.Step]; ok {
		return prompt
	}
	return inputPrompts[fallback]
}

func modalMessage(m domain.ModalState, fallback string) string {
	if m.Payload != nil && m.Payload.Message != "" {
		return m.Payload.Message
	}
	return fallback
}

func planLine(e domain.Entitlement) string {
	if e.IsPremium {
		return "💎 プレミアム会員"
	}
	return fmt.Sprintf("🎫 チケット: %d枚", e.TicketBalance)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
