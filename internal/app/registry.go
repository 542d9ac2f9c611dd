package app

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Factory builds the controller of a chat
type Factory func(chatID int64) (*Controller, error)

// Registry owns the controllers of all chats. Controllers are created and
// started on first use and live until Close.
type Registry struct {
	ctx     context.Context
	factory Factory
	logger  *zap.Logger

	controllers map[int64]*Controller
	mu          sync.RWMutex
}

// NewRegistry creates a registry; controllers run under ctx
func NewRegistry(ctx context.Context, factory Factory, logger *zap.Logger) *Registry {
	return &Registry{
		ctx:         ctx,
		factory:     factory,
		logger:      logger,
		controllers: make(map[int64]*Controller),
	}
}

// Get returns the running controller of chatID, creating it if needed
func (r *Registry) Get(chatID int64) (*Controller, error) {
	r.mu.RLock()
	ctrl, exists := r.controllers[chatID]
	r.mu.RUnlock()
	if exists {
		return ctrl, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ctrl, exists := r.controllers[chatID]; exists {
		return ctrl, nil
	}

	ctrl, err := r.factory(chatID)
	if err != nil {
		r.logger.Error("Failed to create controller", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, err
	}
	ctrl.Start(r.ctx)
	r.controllers[chatID] = ctrl
	return ctrl, nil
}

// Len returns the number of live controllers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.controllers)
}

// Close stops every controller
func (r *Registry) Close() {
	r.mu.Lock()
	controllers := r.controllers
	r.controllers = make(map[int64]*Controller)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, ctrl := range controllers {
		wg.Add(1)
		go func(ctrl *Controller) {
			defer wg.Done()
			ctrl.Stop()
		}(ctrl)
	}
	wg.Wait()
	r.logger.Info("All controllers stopped", zap.Int("count", len(controllers)))
}
