package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/decred/slog"
)

const (
	defaultAttempts = 5
	defaultBackoff  = time.Second
)

type RetryConfig struct {
	Attempts int
	Backoff  time.Duration
	Log      slog.Logger
}

// Retrying retries every call of the wrapped Service. Business errors
// (unknown user, insufficient funds, duplicates) are returned at once.
// When all attempts fail the error wraps ErrReconnectFailed.
type Retrying struct {
	next Service
	cfg  RetryConfig
}

func NewRetrying(next Service, cfg RetryConfig) *Retrying {
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultAttempts
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	return &Retrying{next: next, cfg: cfg}
}

func permanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, context.Canceled)
}

func retry[T any](ctx context.Context, r *Retrying, op string, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero T
		last error
	)
	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if permanent(err) {
			return zero, err
		}
		last = err
		r.cfg.Log.Warnf("%s failed (attempt %d/%d): %v", op, attempt, r.cfg.Attempts, err)
		if attempt == r.cfg.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%w: %s: %v", ErrReconnectFailed, op, ctx.Err())
		case <-time.After(r.cfg.Backoff):
		}
	}
	r.cfg.Log.Errorf("%s gave up after %d attempts: %v", op, r.cfg.Attempts, last)
	return zero, fmt.Errorf("%w: %s: %v", ErrReconnectFailed, op, last)
}

func retryErr(ctx context.Context, r *Retrying, op string, fn func(context.Context) error) error {
	_, err := retry(ctx, r, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (r *Retrying) GetUser(ctx context.Context, userID string) (User, error) {
	return retry(ctx, r, "get user", func(ctx context.Context) (User, error) {
		return r.next.GetUser(ctx, userID)
	})
}

func (r *Retrying) Deposit(ctx context.Context, tableID, userID string, amount int64) error {
	return retryErr(ctx, r, "deposit", func(ctx context.Context) error {
		return r.next.Deposit(ctx, tableID, userID, amount)
	})
}

func (r *Retrying) Leave(ctx context.Context, tableID, userID string, amount int64) error {
	return retryErr(ctx, r, "leave", func(ctx context.Context) error {
		return r.next.Leave(ctx, tableID, userID, amount)
	})
}

func (r *Retrying) EndRound(ctx context.Context, report RoundReport) (RoundResult, error) {
	return retry(ctx, r, "end round", func(ctx context.Context) (RoundResult, error) {
		return r.next.EndRound(ctx, report)
	})
}

func (r *Retrying) SubmitSidebet(ctx context.Context, bet Sidebet) error {
	return retryErr(ctx, r, "submit sidebet", func(ctx context.Context) error {
		return r.next.SubmitSidebet(ctx, bet)
	})
}

func (r *Retrying) SubmitSidebetResult(ctx context.Context, res SidebetResult) error {
	return retryErr(ctx, r, "submit sidebet result", func(ctx context.Context) error {
		return r.next.SubmitSidebetResult(ctx, res)
	})
}

func (r *Retrying) SubmitInsurance(ctx context.Context, ins Insurance) error {
	return retryErr(ctx, r, "submit insurance", func(ctx context.Context) error {
		return r.next.SubmitInsurance(ctx, ins)
	})
}

func (r *Retrying) WinInsurance(ctx context.Context, insuranceID string, payout int64) error {
	return retryErr(ctx, r, "win insurance", func(ctx context.Context) error {
		return r.next.WinInsurance(ctx, insuranceID, payout)
	})
}

func (r *Retrying) TransferBalance(ctx context.Context, fromUserID, toUserID string, amount int64) error {
	return retryErr(ctx, r, "transfer balance", func(ctx context.Context) error {
		return r.next.TransferBalance(ctx, fromUserID, toUserID, amount)
	})
}

func (r *Retrying) GetGlobalBalance(ctx context.Context, userID string) (int64, error) {
	return retry(ctx, r, "get global balance", func(ctx context.Context) (int64, error) {
		return r.next.GetGlobalBalance(ctx, userID)
	})
}

func (r *Retrying) Close() error {
	return r.next.Close()
}
