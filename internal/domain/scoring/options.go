package scoring

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithParams replaces the whole parameter set at once.
func WithParams(p Params) Option {
	return func(e *Engine) {
		e.params = p
	}
}

// WithAlpha sets the saved-time weighting of the completion bonus.
func WithAlpha(v float64) Option {
	return func(e *Engine) {
		if v >= 0 {
			e.params.Alpha = v
		}
	}
}

// WithBeta sets the surplus-unplanned weighting of the completion bonus.
func WithBeta(v float64) Option {
	return func(e *Engine) {
		if v >= 0 {
			e.params.Beta = v
		}
	}
}

// WithBonusMax caps the completion bonus.
func WithBonusMax(v float64) Option {
	return func(e *Engine) {
		if v >= 0 {
			e.params.BonusMax = v
		}
	}
}

// WithDeficitWeights sets kappa (worked >= allowance) and lambda (worked
// below allowance) for the uncovered-deficit penalty.
func WithDeficitWeights(kappa, lambda float64) Option {
	return func(e *Engine) {
		if kappa >= 0 && lambda >= 0 {
			e.params.Kappa = kappa
			e.params.Lambda = lambda
		}
	}
}

// WithIdleWeight sets mu, the idle-slack penalty weight for unfinished items.
func WithIdleWeight(v float64) Option {
	return func(e *Engine) {
		if v >= 0 {
			e.params.Mu = v
		}
	}
}

// WithScoreCap sets the raw-score ceiling.
func WithScoreCap(v float64) Option {
	return func(e *Engine) {
		if v > 0 {
			e.params.ScoreCap = v
		}
	}
}

// WithIncompletePenalty sets the flat incompletion charge.
func WithIncompletePenalty(v float64) Option {
	return func(e *Engine) {
		if v >= 0 {
			e.params.IncompletePenalty = v
		}
	}
}
