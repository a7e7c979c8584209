package domain

import (
	"context"
	"errors"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAuthInvalid         = errors.New("credential rejected")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrRateLimited         = errors.New("rate limited")
	ErrMalformedResponse   = errors.New("malformed response")
	ErrNoViableCandidate   = errors.New("no viable candidate")
	ErrQuotaExhausted      = errors.New("trade quota exhausted")
	ErrCooldown            = errors.New("trade quota cooling down")
	ErrLockHeld            = errors.New("lock already held")
	ErrRobuxOffer          = errors.New("offer carries robux")
	ErrUnknownItem         = errors.New("item missing from catalog")
)

// FailureKind groups errors by how an actor loop should react to them.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureAuth pauses the actor for a long time and raises one alert.
	FailureAuth
	// FailureTransient retries after a short fixed delay.
	FailureTransient
	// FailureRateLimited forces the quota gate into cooldown.
	FailureRateLimited
	// FailureSkip drops the current item and continues the pass.
	FailureSkip
	// FailureEmpty is a normal outcome with nothing to act on.
	FailureEmpty
	// FailureShutdown means the context was cancelled.
	FailureShutdown
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureAuth:
		return "auth"
	case FailureTransient:
		return "transient"
	case FailureRateLimited:
		return "rate_limited"
	case FailureSkip:
		return "skip"
	case FailureEmpty:
		return "empty"
	case FailureShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Unrecognised errors are treated as transient.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, context.Canceled):
		return FailureShutdown
	case errors.Is(err, ErrAuthInvalid):
		return FailureAuth
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrQuotaExhausted), errors.Is(err, ErrCooldown):
		return FailureRateLimited
	case errors.Is(err, ErrMalformedResponse), errors.Is(err, ErrRobuxOffer), errors.Is(err, ErrUnknownItem), errors.Is(err, ErrNotFound):
		return FailureSkip
	case errors.Is(err, ErrNoViableCandidate):
		return FailureEmpty
	default:
		return FailureTransient
	}
}
