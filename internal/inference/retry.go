// Package inference holds the Inferencer backends and the retry decorator shared by all of them.
package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"grantalign/internal/domain"
)

// ErrTransient marks backend failures worth retrying: timeouts, throttling, 5xx.
var ErrTransient = errors.New("transient inference failure")

// TransientError wraps a retryable failure, optionally carrying the server's Retry-After hint.
type TransientError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Is(target error) bool { return target == ErrTransient }

// Transient wraps err as retryable.
func Transient(err error) error { return &TransientError{Err: err} }

// StatusError converts a non-2xx HTTP response into an error, transient for 429 and 5xx.
func StatusError(backend string, resp *http.Response) error {
	err := fmt.Errorf("%s: %s", backend, resp.Status)
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
		return err
	}
	te := &TransientError{Err: err}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, perr := strconv.Atoi(ra); perr == nil {
			te.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return te
}

// IsRetryableStatus reports whether an HTTP status code should be retried.
func IsRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Retrying retries transient failures of the wrapped Inferencer with exponential backoff.
type Retrying struct {
	inner      domain.Inferencer
	maxRetries int
	logger     *zap.Logger
	wait       func(ctx context.Context, d time.Duration) error
}

// NewRetrying wraps inner. maxRetries counts retries after the first attempt.
func NewRetrying(inner domain.Inferencer, maxRetries int, logger *zap.Logger) *Retrying {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{inner: inner, maxRetries: maxRetries, logger: logger, wait: sleepCtx}
}

// Name reports the wrapped backend.
func (r *Retrying) Name() string { return domain.NameOf(r.inner) }

// Infer implements domain.Inferencer.
func (r *Retrying) Infer(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	for attempt := 0; ; attempt++ {
		out, err := r.inner.Infer(ctx, prompt, maxOutputTokens)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, ErrTransient) || attempt >= r.maxRetries {
			return "", err
		}
		d := retryDelay(attempt)
		var te *TransientError
		if errors.As(err, &te) && te.RetryAfter > 0 {
			d = te.RetryAfter
		}
		r.logger.Debug("retrying inference", zap.Int("attempt", attempt+1), zap.Duration("delay", d), zap.Error(err))
		if werr := r.wait(ctx, d); werr != nil {
			return "", werr
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// maxBackoffShift is the first shift whose delay reaches the cap.
const maxBackoffShift = 5

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << min(attempt, maxBackoffShift)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
