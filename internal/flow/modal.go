package flow

import (
	"uranai/internal/domain"
	"uranai/internal/store"
)

// Modals is the single-slot modal controller. Showing a modal replaces the open one.
type Modals struct {
	store *store.Store
}

// NewModals creates a modal controller over st
func NewModals(st *store.Store) *Modals {
	return &Modals{store: st}
}

// Show opens kind, replacing any open modal
func (m *Modals) Show(kind domain.ModalKind, payload *domain.ModalPayload) {
	m.store.Set(store.WithModal(kind, payload))
}

// Hide closes the open modal
func (m *Modals) Hide() {
	m.store.Set(store.WithModal(domain.ModalNone, nil))
}

// SetMessage replaces the message of the open modal, if it is kind
func (m *Modals) SetMessage(kind domain.ModalKind, message string) bool {
	return m.store.Transact(func(s *domain.AppState) bool {
		if s.Modal.Kind != kind {
			return false
		}
		payload := domain.ModalPayload{Message: message}
		if s.Modal.Payload != nil {
			payload.ProfileID = s.Modal.Payload.ProfileID
		}
		s.Modal.Payload = &payload
		return true
	})
}
