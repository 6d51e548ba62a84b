package models

import "errors"

// Custom errors
var (
	ErrInvalidPredictionType        = errors.New("invalid prediction type")
	ErrEmptyCategory                = errors.New("prediction category is required")
	ErrNonNumericValue              = errors.New("value is not numeric")
	ErrNegativeSigma                = errors.New("ema sigma must be non-negative")
	ErrUnknownTriggerType           = errors.New("unknown revision trigger type")
	ErrNotFound                     = errors.New("record not found")
	ErrDuplicateKey                 = errors.New("duplicate key violation")
	ErrEffectivenessAlreadyRecorded = errors.New("effectiveness score already recorded")
)
