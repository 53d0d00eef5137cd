package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/decred/slog"
)

var (
	ErrNotFound          = errors.New("ledger: not found")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrDuplicate         = errors.New("ledger: duplicate record")
	ErrInvalidAmount     = errors.New("ledger: invalid amount")
	// ErrReconnectFailed is returned once every retry of a call has failed.
	ErrReconnectFailed = errors.New("ledger: reconnect failed")
)

// Status tells the table what to do after a round was recorded.
type Status int

const (
	StatusOK Status = iota
	// StatusPause stops dealing: a single survivor remains.
	StatusPause
	// StatusDeleteTable tears the table down.
	StatusDeleteTable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPause:
		return "pause"
	case StatusDeleteTable:
		return "delete"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

// RoundPlayer is one seat's line in a settled hand.
type RoundPlayer struct {
	UserID string `json:"user_id"`
	Seat   int    `json:"seat"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
	Bet    int64  `json:"bet"`
	Win    int64  `json:"win"`
	Tip    int64  `json:"tip"`
}

// RoundReport is what the table sends after settling a hand.
type RoundReport struct {
	TableID      string        `json:"table_id"`
	Round        int64         `json:"round"`
	HandID       string        `json:"hand_id"`
	Rake         int64         `json:"rake"`
	Players      []RoundPlayer `json:"players"`
	Log          []string      `json:"log"`
	TournamentID string        `json:"tournament_id,omitempty"`
}

type RoundResult struct {
	Status        Status   `json:"status"`
	Tables        []string `json:"tables,omitempty"`
	IsDeleteTable bool     `json:"is_delete_table"`
	HandID        string   `json:"hand_id"`
}

// Teardown reports whether the table should be closed.
func (r RoundResult) Teardown() bool {
	return r.Status == StatusDeleteTable || r.IsDeleteTable
}

type Sidebet struct {
	ID      string `json:"id"`
	TableID string `json:"table_id"`
	HandID  string `json:"hand_id"`
	UserID  string `json:"user_id"`
	Seat    int    `json:"seat"`
	Street  string `json:"street"`
	Kind    string `json:"kind"`
	Amount  int64  `json:"amount"`
}

type SidebetResult struct {
	BetID    string `json:"bet_id"`
	Payout   int64  `json:"payout"`
	Refunded bool   `json:"refunded"`
}

type Insurance struct {
	ID      string `json:"id"`
	TableID string `json:"table_id"`
	HandID  string `json:"hand_id"`
	UserID  string `json:"user_id"`
	Seat    int    `json:"seat"`
	Premium int64  `json:"premium"`
	Payout  int64  `json:"payout"`
}

// Service is the settlement collaborator. Every call that mutates money is
// issued from a single table step, so calls for one seat never overlap.
type Service interface {
	GetUser(ctx context.Context, userID string) (User, error)
	// Deposit moves amount from the user's balance onto the table.
	Deposit(ctx context.Context, tableID, userID string, amount int64) error
	// Leave returns amount from the table to the user's balance.
	Leave(ctx context.Context, tableID, userID string, amount int64) error
	EndRound(ctx context.Context, report RoundReport) (RoundResult, error)
	SubmitSidebet(ctx context.Context, bet Sidebet) error
	SubmitSidebetResult(ctx context.Context, res SidebetResult) error
	SubmitInsurance(ctx context.Context, ins Insurance) error
	WinInsurance(ctx context.Context, insuranceID string, payout int64) error
	TransferBalance(ctx context.Context, fromUserID, toUserID string, amount int64) error
	// GetGlobalBalance is the user's balance plus chips held at tables.
	GetGlobalBalance(ctx context.Context, userID string) (int64, error)
	Close() error
}

// NewServiceFromEnv opens the ledger selected by mode ("memory", "sqlite"
// or "postgres") and wraps it with the retry policy.
func NewServiceFromEnv(mode string, logger slog.Logger) (Service, string, error) {
	if logger == nil {
		logger = slog.Disabled
	}
	var (
		svc  *SQLService
		name string
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "memory":
		svc, err = NewSQLiteService(":memory:")
		name = "memory-sqlite"
	case "local", "sqlite":
		svc, err = NewSQLiteServiceFromEnv()
		name = "sqlite"
	case "", "postgres":
		svc, err = NewPostgresService(databaseDSNFromEnv())
		name = "postgres"
	default:
		return nil, "", fmt.Errorf("unknown ledger mode %q", mode)
	}
	if err != nil {
		return nil, "", err
	}
	svc.SetLogger(logger)
	return NewRetrying(svc, RetryConfig{
		Attempts: envIntOrDefault("LEDGER_RETRY_ATTEMPTS", defaultAttempts),
		Backoff:  time.Duration(envIntOrDefault("LEDGER_RETRY_BACKOFF_MS", int(defaultBackoff/time.Millisecond))) * time.Millisecond,
		Log:      logger,
	}), name, nil
}
