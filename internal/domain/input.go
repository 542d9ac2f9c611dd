package domain

// InputStep is the free-text field a chat is currently expected to type
type InputStep string

const (
	StepIdle              InputStep = "idle"
	StepWaitingEmail      InputStep = "waiting_email"
	StepWaitingPassword   InputStep = "waiting_password"
	StepWaitingNickname   InputStep = "waiting_nickname"
	StepWaitingName       InputStep = "waiting_name"
	StepWaitingBirthDate  InputStep = "waiting_birth_date"
	StepWaitingBirthTime  InputStep = "waiting_birth_time"
	StepWaitingBirthPlace InputStep = "waiting_birth_place"
	StepWaitingQuestion   InputStep = "waiting_question"
	StepWaitingFollowUp   InputStep = "waiting_follow_up"
)

// InputState holds temporary data while a chat fills in a form
type InputState struct {
	Step    InputStep
	Modal   ModalKind // login or register while collecting credentials
	Email   string
	Draft   ProfileInput
	ForPair bool // profile is created from the compatibility flow
}
