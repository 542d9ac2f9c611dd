package domain

// ModalKind identifies which modal is open
type ModalKind string

const (
	ModalNone          ModalKind = ""
	ModalLogin         ModalKind = "login"
	ModalRegister      ModalKind = "register"
	ModalPremium       ModalKind = "premium"
	ModalTicket        ModalKind = "ticket"
	ModalAddPerson     ModalKind = "addPerson"
	ModalConfirmPerson ModalKind = "confirmPerson"
)

// ModalPayload carries optional data for the open modal
type ModalPayload struct {
	ProfileID int
	Message   string
}

// ModalState is the single modal slot
type ModalState struct {
	Kind    ModalKind
	Payload *ModalPayload
}

// Open reports whether any modal is visible
func (m ModalState) Open() bool {
	return m.Kind != ModalNone
}
