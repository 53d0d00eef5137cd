package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLService is the local ledger. It keeps balances, chips at tables,
// settled rounds, side bets, insurance and transfers in sqlite or postgres.
type SQLService struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
	log     slog.Logger
}

func newSQLService(db *sql.DB, d dialect) *SQLService {
	return &SQLService{db: db, dialect: d, now: time.Now, log: slog.Disabled}
}

// SetLogger replaces the service logger.
func (s *SQLService) SetLogger(l slog.Logger) {
	if l != nil {
		s.log = l
	}
}

func (s *SQLService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders into $n for postgres.
func (s *SQLService) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLService) nowMs() int64 {
	return s.now().UTC().UnixMilli()
}

func (s *SQLService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLService) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLService) credit(ctx context.Context, tx *sql.Tx, userID string, amount int64) error {
	n, err := s.exec(ctx, tx, `
UPDATE ledger_accounts SET balance = balance + ?, updated_at_ms = ? WHERE user_id = ?`,
		amount, s.nowMs(), userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return nil
}

func (s *SQLService) debit(ctx context.Context, tx *sql.Tx, userID string, amount int64) error {
	var balance int64
	err := tx.QueryRowContext(ctx, s.rebind(`SELECT balance FROM ledger_accounts WHERE user_id = ?`), userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: user %s has %d, needs %d", ErrInsufficientFunds, userID, balance, amount)
	}
	return s.credit(ctx, tx, userID, -amount)
}

// OpenAccount creates a user account with an opening balance.
func (s *SQLService) OpenAccount(ctx context.Context, userID, name string, balance int64) error {
	if strings.TrimSpace(userID) == "" || balance < 0 {
		return ErrInvalidAmount
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := s.exec(ctx, tx, `
INSERT INTO ledger_accounts (user_id, name, balance, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id) DO NOTHING`, userID, name, balance, s.nowMs())
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: account %s", ErrDuplicate, userID)
		}
		return nil
	})
}

// CloseTable marks a table for teardown; its next EndRound reports
// StatusDeleteTable.
func (s *SQLService) CloseTable(ctx context.Context, tableID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := s.exec(ctx, tx, `
INSERT INTO ledger_tables (table_id, closing) VALUES (?, 1)
ON CONFLICT (table_id) DO UPDATE SET closing = 1`, tableID)
		return err
	})
}

func (s *SQLService) GetUser(ctx context.Context, userID string) (User, error) {
	u := User{ID: userID}
	err := s.db.QueryRowContext(ctx, s.rebind(`
SELECT name, balance FROM ledger_accounts WHERE user_id = ?`), userID).Scan(&u.Name, &u.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *SQLService) Deposit(ctx context.Context, tableID, userID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.debit(ctx, tx, userID, amount); err != nil {
			return err
		}
		_, err := s.exec(ctx, tx, `
INSERT INTO ledger_table_seats (table_id, user_id, amount, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT (table_id, user_id) DO UPDATE
SET amount = ledger_table_seats.amount + excluded.amount,
    updated_at_ms = excluded.updated_at_ms`, tableID, userID, amount, s.nowMs())
		return err
	})
}

func (s *SQLService) Leave(ctx context.Context, tableID, userID string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.credit(ctx, tx, userID, amount); err != nil {
			return err
		}
		_, err := s.exec(ctx, tx, `DELETE FROM ledger_table_seats WHERE table_id = ? AND user_id = ?`, tableID, userID)
		return err
	})
}

// EndRound records a settled hand and syncs the chips held at the table.
// Re-sending a hand already recorded is accepted without effect, so a retry
// after a lost response is safe.
func (s *SQLService) EndRound(ctx context.Context, report RoundReport) (RoundResult, error) {
	if strings.TrimSpace(report.HandID) == "" {
		report.HandID = uuid.NewString()
	}
	logJSON, err := json.Marshal(report.Log)
	if err != nil {
		return RoundResult{}, err
	}
	res := RoundResult{Status: StatusOK, HandID: report.HandID}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.nowMs()
		n, err := s.exec(ctx, tx, `
INSERT INTO ledger_rounds (hand_id, table_id, round_no, rake, tournament_id, log_json, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (hand_id) DO NOTHING`,
			report.HandID, report.TableID, report.Round, report.Rake, report.TournamentID, string(logJSON), now)
		if err != nil {
			return err
		}
		if n > 0 {
			for _, p := range report.Players {
				if _, err := s.exec(ctx, tx, `
INSERT INTO ledger_round_players (hand_id, user_id, seat, start_stack, end_stack, bet, win, tip)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
					report.HandID, p.UserID, p.Seat, p.Start, p.End, p.Bet, p.Win, p.Tip); err != nil {
					return err
				}
				if _, err := s.exec(ctx, tx, `
INSERT INTO ledger_table_seats (table_id, user_id, amount, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT (table_id, user_id) DO UPDATE
SET amount = excluded.amount, updated_at_ms = excluded.updated_at_ms`,
					report.TableID, p.UserID, p.End, now); err != nil {
					return err
				}
			}
		}

		var closing int
		err = tx.QueryRowContext(ctx, s.rebind(`SELECT closing FROM ledger_tables WHERE table_id = ?`), report.TableID).Scan(&closing)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if closing != 0 {
			res.Status = StatusDeleteTable
			res.IsDeleteTable = true
			return nil
		}
		if report.TournamentID == "" {
			return nil
		}
		survivors := 0
		for _, p := range report.Players {
			if p.End > 0 {
				survivors++
			}
		}
		if survivors <= 1 {
			res.Status = StatusPause
		}
		rows, err := tx.QueryContext(ctx, s.rebind(`
SELECT DISTINCT table_id FROM ledger_rounds WHERE tournament_id = ? ORDER BY table_id`), report.TournamentID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			res.Tables = append(res.Tables, id)
		}
		return rows.Err()
	})
	if err != nil {
		return RoundResult{}, err
	}
	s.log.Debugf("round %s on %s recorded: status=%s rake=%d", report.HandID, report.TableID, res.Status, report.Rake)
	return res, nil
}

func (s *SQLService) SubmitSidebet(ctx context.Context, bet Sidebet) error {
	if bet.Amount <= 0 {
		return ErrInvalidAmount
	}
	if bet.ID == "" {
		bet.ID = uuid.NewString()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.debit(ctx, tx, bet.UserID, bet.Amount); err != nil {
			return err
		}
		now := s.nowMs()
		n, err := s.exec(ctx, tx, `
INSERT INTO ledger_sidebets (id, table_id, hand_id, user_id, seat, street, kind, amount, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`,
			bet.ID, bet.TableID, bet.HandID, bet.UserID, bet.Seat, bet.Street, bet.Kind, bet.Amount, now, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: sidebet %s", ErrDuplicate, bet.ID)
		}
		return nil
	})
}

func (s *SQLService) SubmitSidebetResult(ctx context.Context, res SidebetResult) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			userID, status string
			amount         int64
		)
		err := tx.QueryRowContext(ctx, s.rebind(`
SELECT user_id, amount, status FROM ledger_sidebets WHERE id = ?`), res.BetID).Scan(&userID, &amount, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: sidebet %s", ErrNotFound, res.BetID)
		}
		if err != nil {
			return err
		}
		if status != "open" {
			return fmt.Errorf("%w: sidebet %s already %s", ErrDuplicate, res.BetID, status)
		}
		payout, next := res.Payout, "lost"
		switch {
		case res.Refunded:
			payout, next = amount, "refunded"
		case payout > 0:
			next = "won"
		}
		if payout > 0 {
			if err := s.credit(ctx, tx, userID, payout); err != nil {
				return err
			}
		}
		_, err = s.exec(ctx, tx, `
UPDATE ledger_sidebets SET payout = ?, status = ?, updated_at_ms = ? WHERE id = ?`,
			payout, next, s.nowMs(), res.BetID)
		return err
	})
}

func (s *SQLService) SubmitInsurance(ctx context.Context, ins Insurance) error {
	if ins.Premium <= 0 || ins.Payout <= 0 {
		return ErrInvalidAmount
	}
	if ins.ID == "" {
		ins.ID = uuid.NewString()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.debit(ctx, tx, ins.UserID, ins.Premium); err != nil {
			return err
		}
		now := s.nowMs()
		n, err := s.exec(ctx, tx, `
INSERT INTO ledger_insurance (id, table_id, hand_id, user_id, seat, premium, payout, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`,
			ins.ID, ins.TableID, ins.HandID, ins.UserID, ins.Seat, ins.Premium, ins.Payout, now, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: insurance %s", ErrDuplicate, ins.ID)
		}
		return nil
	})
}

func (s *SQLService) WinInsurance(ctx context.Context, insuranceID string, payout int64) error {
	if payout <= 0 {
		return ErrInvalidAmount
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var userID, status string
		err := tx.QueryRowContext(ctx, s.rebind(`
SELECT user_id, status FROM ledger_insurance WHERE id = ?`), insuranceID).Scan(&userID, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: insurance %s", ErrNotFound, insuranceID)
		}
		if err != nil {
			return err
		}
		if status != "open" {
			return fmt.Errorf("%w: insurance %s already %s", ErrDuplicate, insuranceID, status)
		}
		if err := s.credit(ctx, tx, userID, payout); err != nil {
			return err
		}
		_, err = s.exec(ctx, tx, `
UPDATE ledger_insurance SET status = 'paid', payout = ?, updated_at_ms = ? WHERE id = ?`,
			payout, s.nowMs(), insuranceID)
		return err
	})
}

func (s *SQLService) TransferBalance(ctx context.Context, fromUserID, toUserID string, amount int64) error {
	if amount <= 0 || fromUserID == toUserID {
		return ErrInvalidAmount
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.debit(ctx, tx, fromUserID, amount); err != nil {
			return err
		}
		if err := s.credit(ctx, tx, toUserID, amount); err != nil {
			return err
		}
		_, err := s.exec(ctx, tx, `
INSERT INTO ledger_transfers (id, from_user, to_user, amount, created_at_ms)
VALUES (?, ?, ?, ?, ?)`, uuid.NewString(), fromUserID, toUserID, amount, s.nowMs())
		return err
	})
}

func (s *SQLService) GetGlobalBalance(ctx context.Context, userID string) (int64, error) {
	var balance, seated int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
SELECT a.balance,
       COALESCE((SELECT SUM(t.amount) FROM ledger_table_seats t WHERE t.user_id = a.user_id), 0)
FROM ledger_accounts a
WHERE a.user_id = ?`), userID).Scan(&balance, &seated)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return 0, err
	}
	return balance + seated, nil
}
