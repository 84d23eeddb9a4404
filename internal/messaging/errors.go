package messaging

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies transport failures so callers can branch on them
// without inspecting platform-specific error text.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindRateLimited
	KindPeerUnreachable
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindPeerUnreachable:
		return "peer_unreachable"
	default:
		return "other"
	}
}

// DeliveryError is returned by Platform implementations for every failed call.
type DeliveryError struct {
	Kind       ErrorKind
	RetryAfter time.Duration // set when Kind == KindRateLimited
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Kind == KindRateLimited {
		return fmt.Sprintf("%s (retry after %s): %v", e.Kind, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func RateLimited(after time.Duration, err error) error {
	return &DeliveryError{Kind: KindRateLimited, RetryAfter: after, Err: err}
}

func PeerUnreachable(err error) error {
	return &DeliveryError{Kind: KindPeerUnreachable, Err: err}
}

// Classify returns the kind of err and, for rate limits, the required wait.
// Errors that are not DeliveryErrors are KindOther.
func Classify(err error) (ErrorKind, time.Duration) {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind, de.RetryAfter
	}
	return KindOther, 0
}
