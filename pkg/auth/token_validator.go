package auth

import (
	"context"
	"errors"
)

// TokenValidator abstracts bearer token validation.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
	Name() string
}

// ErrNoValidatorMatched is returned when no validator can validate the token
var ErrNoValidatorMatched = errors.New("no validator could validate the token")

// CompositeTokenValidator tries each validator in order. It lets a server
// accept tokens signed under a rotated-out secret until they expire.
type CompositeTokenValidator struct {
	validators []TokenValidator
}

func NewCompositeTokenValidator(validators ...TokenValidator) *CompositeTokenValidator {
	return &CompositeTokenValidator{validators: validators}
}

// ValidateToken returns the first success, or the last error.
func (c *CompositeTokenValidator) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	if len(c.validators) == 0 {
		return nil, ErrNoValidatorMatched
	}

	var lastErr error
	for _, v := range c.validators {
		claims, err := v.ValidateToken(ctx, token)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *CompositeTokenValidator) Name() string {
	return "composite"
}

func (c *CompositeTokenValidator) AddValidator(v TokenValidator) {
	c.validators = append(c.validators, v)
}
