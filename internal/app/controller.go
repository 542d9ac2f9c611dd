// Package app composes one wizard controller per chat.
package app

import (
	"context"
	"sync"
	"time"

	"uranai/internal/domain"
	"uranai/internal/entitlement"
	"uranai/internal/flow"
	"uranai/internal/metrics"
	"uranai/internal/persist"
	"uranai/internal/repository"
	"uranai/internal/service"
	"uranai/internal/store"

	"go.uber.org/zap"
)

// Backends are the external collaborators of one controller
type Backends struct {
	Provider   service.AuthProvider
	Profiles   service.ProfileAPI
	Divination service.DivinationAPI
	Account    service.AccountAPI
}

// Settings tune the controller's timers
type Settings struct {
	ErrorDisplay    time.Duration
	LoadingDuration time.Duration
	Auth            service.AuthTimeouts
	RedirectURL     string
}

// Storage is where a controller keeps its durable records
type Storage struct {
	States repository.StateRepository
	Tokens repository.TokenRepository
	Key    string
}

// Controller is the wizard of one chat: its state, flow, services and
// background workers
type Controller struct {
	ChatID   int64
	Store    *store.Store
	Machine  *flow.Machine
	Modals   *flow.Modals
	Reporter *flow.Reporter
	Profiles *service.ProfileService
	Account  *service.AccountService
	Actions  *service.ResultActions

	fetcher *service.DivinationFetcher
	auth    *service.AuthSynchronizer
	loading *flow.LoadingTimer
	syncer  *persist.Syncer
	logger  *zap.Logger

	mu      sync.Mutex
	input   domain.InputState
	cancel  context.CancelFunc
	started bool
}

// NewController wires a controller for chatID
func NewController(
	chatID int64,
	backends Backends,
	storage Storage,
	settings Settings,
	recorder metrics.Recorder,
	logger *zap.Logger,
) *Controller {
	logger = logger.With(zap.Int64("chat_id", chatID))

	st := store.New(domain.NewAppState())
	machine := flow.NewMachine(st, logger)
	modals := flow.NewModals(st)
	reporter := flow.NewReporter(st, modals, machine, settings.ErrorDisplay, logger)

	persisted := persist.NewStore(storage.States, storage.Key, logger)
	tokens := persist.NewTokenCache(storage.Tokens, storage.Key, logger)
	syncer := persist.NewSyncer(st, persisted, logger)

	profiles := service.NewProfileService(backends.Profiles, st, logger)
	account := service.NewAccountService(backends.Provider, backends.Account, st, modals, settings.RedirectURL, logger)
	fetcher := service.NewDivinationFetcher(backends.Divination, st, machine, reporter, recorder, logger)
	actions := service.NewResultActions(st, fetcher, recorder, logger)
	auth := service.NewAuthSynchronizer(
		backends.Provider, persisted, tokens, syncer,
		st, machine, profiles, account,
		reporter, recorder, settings.Auth, logger,
	)

	return &Controller{
		ChatID:   chatID,
		Store:    st,
		Machine:  machine,
		Modals:   modals,
		Reporter: reporter,
		Profiles: profiles,
		Account:  account,
		Actions:  actions,
		fetcher:  fetcher,
		auth:     auth,
		loading:  flow.NewLoadingTimer(st, machine, settings.LoadingDuration),
		syncer:   syncer,
		logger:   logger,
		input:    domain.InputState{Step: domain.StepIdle},
	}
}

// Start launches the background workers. Watchers subscribe before the auth
// check so they observe the landing screen.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true

	ctx, c.cancel = context.WithCancel(ctx)
	c.syncer.Start(ctx)
	c.loading.Start()
	c.fetcher.Start(ctx)
	c.auth.Start(ctx)
	c.logger.Info("Controller started")
}

// Stop shuts the workers down and flushes the persisted state
func (c *Controller) Stop() {
	c.mu.Lock()
	started := c.started
	cancel := c.cancel
	c.started = false
	c.mu.Unlock()
	if !started {
		return
	}

	cancel()
	c.auth.Wait()
	c.fetcher.Stop()
	c.loading.Stop()
	c.Reporter.Stop()
	<-c.syncer.Done()
	c.logger.Info("Controller stopped")
}

// Report sends err to the shared error handling
func (c *Controller) Report(err error) {
	c.Reporter.Report(err)
}

// Input returns the pending text-input step
func (c *Controller) Input() domain.InputState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SetInput replaces the pending text-input step
func (c *Controller) SetInput(in domain.InputState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = in
}

// ResetInput clears the pending text-input step
func (c *Controller) ResetInput() {
	c.SetInput(domain.InputState{Step: domain.StepIdle})
}

// OpenAddPerson opens the add-person modal, or the premium modal once the free
// profile cap is reached
func (c *Controller) OpenAddPerson() bool {
	s := c.Store.Get()
	if err := entitlement.CanAddProfile(len(s.Profiles), s.Entitlement.IsPremium).Err(); err != nil {
		c.Reporter.Report(err)
		return false
	}
	c.Modals.Show(domain.ModalAddPerson, nil)
	return true
}

// OpenConfirmPerson opens the profile detail modal on mypage
func (c *Controller) OpenConfirmPerson(id int) error {
	s := c.Store.Get()
	if s.Screen != domain.ScreenMyPage {
		return flow.ErrInvalidTransition
	}
	if _, ok := domain.FindProfile(s.Profiles, id); !ok {
		return flow.ErrUnknownProfile
	}
	c.Modals.Show(domain.ModalConfirmPerson, &domain.ModalPayload{ProfileID: id})
	return nil
}

// DeleteConfirmedProfile deletes the profile shown in the confirm modal
func (c *Controller) DeleteConfirmedProfile(ctx context.Context) error {
	modal := c.Store.Get().Modal
	if modal.Kind != domain.ModalConfirmPerson || modal.Payload == nil {
		return flow.ErrInvalidTransition
	}
	if err := c.Profiles.Delete(ctx, modal.Payload.ProfileID); err != nil {
		return err
	}
	c.Modals.Hide()
	return nil
}
