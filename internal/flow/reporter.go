package flow

import (
	"errors"
	"sync"
	"time"

	"uranai/internal/domain"
	"uranai/internal/store"

	"go.uber.org/zap"
)

// Reporter is the sink for every failure. It decides between the shared error
// slot, an upsell modal, an inline auth message and a redirect home.
type Reporter struct {
	store   *store.Store
	modals  *Modals
	machine *Machine
	display time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

// NewReporter creates a reporter whose messages clear after display
func NewReporter(st *store.Store, modals *Modals, machine *Machine, display time.Duration, logger *zap.Logger) *Reporter {
	return &Reporter{
		store:   st,
		modals:  modals,
		machine: machine,
		display: display,
		logger:  logger,
	}
}

// Report routes err. A nil error is ignored.
func (r *Reporter) Report(err error) {
	if err == nil {
		return
	}

	var e *domain.Error
	if !errors.As(err, &e) {
		r.logger.Error("Unexpected error", zap.Error(err))
		r.Show(domain.UserMessage(err))
		return
	}

	switch e.Kind {
	case domain.KindEntitlement:
		kind := domain.ModalTicket
		if e.Reason == domain.ReasonPremiumRequired {
			kind = domain.ModalPremium
		}
		r.modals.Show(kind, &domain.ModalPayload{Message: e.Message})
	case domain.KindDataIntegrity:
		r.logger.Warn("Selection references a missing profile", zap.Error(err))
		r.machine.Redirect(domain.ScreenHome)
		r.Show(e.Message)
	case domain.KindInvariant:
		r.logger.DPanic("Invariant violated", zap.Error(err))
	case domain.KindAuth:
		modal := r.store.Get().Modal.Kind
		if modal == domain.ModalLogin || modal == domain.ModalRegister {
			r.modals.SetMessage(modal, e.Message)
			return
		}
		r.Show(e.Message)
	default:
		r.logger.Warn("Operation failed", zap.String("code", e.Code), zap.Error(err))
		r.Show(e.Message)
	}
}

// Show puts message in the error slot and clears it after the display time
// unless another message replaced it meanwhile
func (r *Reporter) Show(message string) {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.display, func() {
		r.clearIf(gen)
	})
	r.mu.Unlock()

	r.store.Set(store.WithError(message))
}

// Clear empties the error slot
func (r *Reporter) Clear() {
	r.mu.Lock()
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()

	r.store.Set(store.WithError(""))
}

// Stop cancels the pending auto-clear
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Reporter) clearIf(gen uint64) {
	r.mu.Lock()
	current := r.gen == gen
	r.mu.Unlock()
	if !current {
		return
	}
	r.store.Set(store.WithError(""))
}
