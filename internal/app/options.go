package service

import (
	"github.com/planly/planly/internal/adapters/events"
	"github.com/planly/planly/internal/adapters/repository"
	"github.com/planly/planly/internal/domain/scoring"
	"github.com/planly/planly/internal/domain/week"
	"github.com/planly/planly/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the goal store backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithResolver sets the week resolver.
func WithResolver(r *week.Resolver) Option {
	return func(s *Service) {
		s.resolver = r
	}
}

// WithEngine sets the scoring engine.
func WithEngine(e *scoring.Engine) Option {
	return func(s *Service) {
		s.engine = e
	}
}

// WithPolicy sets the goal eligibility policy.
func WithPolicy(p Policy) Option {
	return func(s *Service) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithPublisher sets the downstream score event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithBaseMinutes overrides the weekly time budget.
func WithBaseMinutes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.baseMinutes = n
		}
	}
}

// WithPublishQueueSize bounds the score event queue.
func WithPublishQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.publishQueueSize = n
		}
	}
}

// WithPublishWorkers sets the number of publish workers.
func WithPublishWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.publishWorkers = n
		}
	}
}

// WithMaxLeaderboardUsers caps how many users one leaderboard request covers.
func WithMaxLeaderboardUsers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLeaderboardUsers = n
		}
	}
}

// WithLogger sets the logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}
