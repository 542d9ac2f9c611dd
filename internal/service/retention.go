package service

import (
	"context"

	"uranai/internal/repository"

	"go.uber.org/zap"
)

// RetentionService purges persisted records nobody has touched for a while
type RetentionService struct {
	states repository.StateRepository
	tokens repository.TokenRepository
	days   int
	logger *zap.Logger
}

// NewRetentionService creates a new retention service
func NewRetentionService(states repository.StateRepository, tokens repository.TokenRepository, days int, logger *zap.Logger) *RetentionService {
	return &RetentionService{
		states: states,
		tokens: tokens,
		days:   days,
		logger: logger,
	}
}

// CleanupOldData removes app states and cached tokens older than the retention period
func (s *RetentionService) CleanupOldData(ctx context.Context) error {
	s.logger.Info("Starting cleanup of old records", zap.Int("retention_days", s.days))

	states, err := s.states.CleanOldStates(ctx, s.days)
	if err != nil {
		s.logger.Error("Failed to cleanup old app states", zap.Error(err))
		return err
	}

	tokens, err := s.tokens.CleanOldTokens(ctx, s.days)
	if err != nil {
		s.logger.Error("Failed to cleanup old session tokens", zap.Error(err))
		return err
	}

	s.logger.Info("Cleanup completed successfully",
		zap.Int64("app_states", states),
		zap.Int64("session_tokens", tokens),
	)
	return nil
}
