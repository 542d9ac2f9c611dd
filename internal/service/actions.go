package service

import (
	"strings"

	"uranai/internal/domain"
	"uranai/internal/entitlement"
	"uranai/internal/flow"
	"uranai/internal/metrics"
	"uranai/internal/store"

	"go.uber.org/zap"
)

// ResultActions are the ticket-consuming actions of the result screen
type ResultActions struct {
	store   *store.Store
	fetcher *DivinationFetcher
	metrics metrics.Recorder
	logger  *zap.Logger
}

// NewResultActions creates the result actions
func NewResultActions(st *store.Store, fetcher *DivinationFetcher, recorder metrics.Recorder, logger *zap.Logger) *ResultActions {
	return &ResultActions{
		store:   st,
		fetcher: fetcher,
		metrics: recorder,
		logger:  logger,
	}
}

// Share spends a ticket to share the ready result
func (a *ResultActions) Share() error {
	return a.consume("share", nil)
}

// AskMore spends a ticket to ask a follow-up question about the same selection
func (a *ResultActions) AskMore(question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.NewValidationError("質問を入力してください。")
	}

	err := a.consume("ask_more", func(s *domain.AppState) {
		s.Selection.ConsultationText = question
	})
	if err != nil {
		return err
	}

	a.fetcher.Refresh()
	return nil
}

// consume checks the gate and takes one ticket in the same transaction as apply
func (a *ResultActions) consume(action string, apply func(s *domain.AppState)) error {
	var err error
	a.store.Transact(func(s *domain.AppState) bool {
		if s.Screen != domain.ScreenResult || s.Result.Status != domain.ResultReady {
			err = flow.ErrInvalidTransition
			return false
		}
		e := s.Entitlement
		if err = entitlement.CanConsumeAction(e.TicketBalance, e.IsPremium).Err(); err != nil {
			return false
		}
		if !e.IsPremium {
			var balance int
			if balance, err = entitlement.ConsumeTicket(e.TicketBalance); err != nil {
				return false
			}
			s.Entitlement.TicketBalance = balance
		}
		if apply != nil {
			apply(s)
		}
		return true
	})
	if err != nil {
		return err
	}

	a.metrics.RecordTicketConsumed(action)
	a.logger.Info("Ticket action performed", zap.String("action", action))
	return nil
}
