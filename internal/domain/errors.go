package domain

import "errors"

// Model errors. All are caller errors and are never retried.
var (
	// ErrInvalidScenario is returned when a Scenario violates a range or cross-field rule.
	ErrInvalidScenario = errors.New("invalid scenario")

	// ErrNegativeQuantity is returned when an order quantity is below zero.
	ErrNegativeQuantity = errors.New("order quantity must be >= 0")

	// ErrNegativeDemand is returned when a realized demand is below zero.
	ErrNegativeDemand = errors.New("demand must be >= 0")

	// ErrInvalidTrialCount is returned when a run is requested with n <= 0 trials.
	ErrInvalidTrialCount = errors.New("trial count must be > 0")
)
