// Package retry re-runs catalog requests that failed for transient reasons.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/handsomefox/cinebrowse/internal/logger"
)

// Policy bounds the attempts made for one call.
type Policy struct {
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxElapsed     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 250 * time.Millisecond,
		MaxElapsed:     8 * time.Second,
	}
}

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// Do calls op until it succeeds, fails permanently, or the policy runs out.
// Only errors accepted by IsRetryable are retried.
func Do[T any](ctx context.Context, p Policy, log *slog.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 1
	}
	expo := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		expo.InitialInterval = p.InitialBackoff
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(p.MaxAttempts),
	}
	if p.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(p.MaxElapsed))
	}
	if log != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			log.Warn("retrying catalog request", logger.Error(err), slog.Duration("wait", wait))
		}))
	}

	return backoff.Retry(ctx, func() (T, error) {
		res, err := op(ctx)
		if err != nil && !IsRetryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}, opts...)
}

// IsRetryable accepts network timeouts, refused or reset connections, and
// upstream 5xx or 429 answers. Context cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
