package ledger

import (
	"context"
	"database/sql"
)

// The DDL sticks to types both sqlite and postgres accept; ids are text
// (uuid) so neither dialect's autoincrement is needed.
var schemaStatements = []string{
	`
CREATE TABLE IF NOT EXISTS ledger_accounts (
    user_id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    balance BIGINT NOT NULL DEFAULT 0,
    updated_at_ms BIGINT NOT NULL
)`,
	`
CREATE TABLE IF NOT EXISTS ledger_table_seats (
    table_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    amount BIGINT NOT NULL DEFAULT 0,
    updated_at_ms BIGINT NOT NULL,
    PRIMARY KEY (table_id, user_id)
)`,
	`
CREATE TABLE IF NOT EXISTS ledger_tables (
    table_id TEXT PRIMARY KEY,
    closing INTEGER NOT NULL DEFAULT 0
)`,
	`
CREATE TABLE IF NOT EXISTS ledger_rounds (
    hand_id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    round_no BIGINT NOT NULL,
    rake BIGINT NOT NULL DEFAULT 0,
    tournament_id TEXT NOT NULL DEFAULT '',
    log_json TEXT NOT NULL DEFAULT '[]',
    created_at_ms BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_rounds_table ON ledger_rounds(table_id, round_no)`,
	`
CREATE TABLE IF NOT EXISTS ledger_round_players (
    hand_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    seat INTEGER NOT NULL,
    start_stack BIGINT NOT NULL,
    end_stack BIGINT NOT NULL,
    bet BIGINT NOT NULL,
    win BIGINT NOT NULL,
    tip BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (hand_id, user_id)
)`,
	`
CREATE TABLE IF NOT EXISTS ledger_sidebets (
    id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    hand_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    seat INTEGER NOT NULL,
    street TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL,
    amount BIGINT NOT NULL,
    payout BIGINT NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'open',
    created_at_ms BIGINT NOT NULL,
    updated_at_ms BIGINT NOT NULL
)`,
	`
CREATE TABLE IF NOT EXISTS ledger_insurance (
    id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    hand_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    seat INTEGER NOT NULL,
    premium BIGINT NOT NULL,
    payout BIGINT NOT NULL,
    status TEXT NOT NULL DEFAULT 'open',
    created_at_ms BIGINT NOT NULL,
    updated_at_ms BIGINT NOT NULL
)`,
	`
CREATE TABLE IF NOT EXISTS ledger_transfers (
    id TEXT PRIMARY KEY,
    from_user TEXT NOT NULL,
    to_user TEXT NOT NULL,
    amount BIGINT NOT NULL,
    created_at_ms BIGINT NOT NULL
)`,
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
