package ads

import "errors"

var (
	ErrNoEligibleAds     = errors.New("no eligible ads for placement")
	ErrInvalidPlacement  = errors.New("invalid placement")
	ErrAdNotFound        = errors.New("ad not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidPattern    = errors.New("invalid insertion pattern")
	ErrInvalidMode       = errors.New("invalid feed mode")
	ErrInvalidAd         = errors.New("invalid ad")
)
