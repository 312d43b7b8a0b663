package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Postgres é o repositório único do tracker: contas, partidas, apostas,
// resultados e settings vivem no mesmo schema porque as operações de
// liquidação precisam tocar tudo na mesma transação.
type Postgres struct {
	DB *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db}
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		account_id    BIGINT PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT '',
		balance_cents BIGINT NOT NULL DEFAULT 0,
		remarks       TEXT NOT NULL DEFAULT '',
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		match_id   BIGSERIAL PRIMARY KEY,
		team1      TEXT NOT NULL,
		team2      TEXT NOT NULL,
		match_date TEXT NOT NULL,
		match_time TEXT NOT NULL DEFAULT '',
		status     TEXT NOT NULL DEFAULT 'upcoming',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS bets (
		bet_id              BIGSERIAL PRIMARY KEY,
		match_id            BIGINT NOT NULL REFERENCES matches(match_id) ON DELETE CASCADE,
		team1_odds          DOUBLE PRECISION NOT NULL,
		team2_odds          DOUBLE PRECISION NOT NULL,
		betting_value_cents BIGINT NOT NULL,
		status              TEXT NOT NULL DEFAULT 'active',
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS bet_accounts (
		bet_id      BIGINT NOT NULL REFERENCES bets(bet_id) ON DELETE CASCADE,
		account_id  BIGINT NOT NULL REFERENCES accounts(account_id) ON DELETE CASCADE,
		side        INT NOT NULL CHECK (side IN (1, 2)),
		stake_cents BIGINT NOT NULL,
		PRIMARY KEY (bet_id, account_id)
	)`,
	`CREATE TABLE IF NOT EXISTS results (
		result_id       BIGSERIAL PRIMARY KEY,
		bet_id          BIGINT NOT NULL UNIQUE REFERENCES bets(bet_id) ON DELETE CASCADE,
		result_type     TEXT NOT NULL,
		winning_side    INT,
		profit_cents    BIGINT NOT NULL DEFAULT 0,
		loss_cents      BIGINT NOT NULL DEFAULT 0,
		cashout_details JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		setting_id                  INT PRIMARY KEY CHECK (setting_id = 1),
		min_transfer_cents          BIGINT NOT NULL DEFAULT 25000,
		default_betting_value_cents BIGINT NOT NULL DEFAULT 210000,
		updated_at                  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS settlement_audit (
		audit_id     BIGSERIAL PRIMARY KEY,
		bet_id       BIGINT NOT NULL,
		result_type  TEXT NOT NULL,
		profit_cents BIGINT NOT NULL DEFAULT 0,
		loss_cents   BIGINT NOT NULL DEFAULT 0,
		payload      JSONB,
		received_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_date ON matches(match_date)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_match ON bets(match_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_status ON bets(status)`,
	`CREATE INDEX IF NOT EXISTS idx_bet_accounts_account ON bet_accounts(account_id)`,
	`INSERT INTO settings (setting_id) VALUES (1) ON CONFLICT (setting_id) DO NOTHING`,
}

// Migrate aplica o schema na subida do serviço. Statements são idempotentes,
// então rodar de novo é seguro.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := p.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

// SaveAccount cria ou atualiza a conta. Saldo informado substitui o atual
// (é o ajuste manual do operador, não um crédito).
func (p *Postgres) SaveAccount(ctx context.Context, acc Account) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO accounts (account_id, name, balance_cents, remarks, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (account_id) DO UPDATE
		SET name = EXCLUDED.name,
		    balance_cents = EXCLUDED.balance_cents,
		    remarks = EXCLUDED.remarks,
		    is_active = TRUE,
		    updated_at = now()
	`, acc.AccountID, acc.Name, acc.BalanceCents, acc.Remarks)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (p *Postgres) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT account_id, name, balance_cents, remarks, is_active, created_at, updated_at
		FROM accounts
		WHERE is_active
		ORDER BY account_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.AccountID, &a.Name, &a.BalanceCents, &a.Remarks, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Postgres) GetSettings(ctx context.Context) (Settings, error) {
	var s Settings
	err := p.DB.QueryRowContext(ctx, `
		SELECT min_transfer_cents, default_betting_value_cents, updated_at
		FROM settings WHERE setting_id = 1
	`).Scan(&s.MinTransferCents, &s.DefaultBettingValueCents, &s.UpdatedAt)
	if err != nil {
		return Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

func (p *Postgres) SaveSettings(ctx context.Context, s Settings) error {
	_, err := p.DB.ExecContext(ctx, `
		UPDATE settings
		SET min_transfer_cents = $1,
		    default_betting_value_cents = $2,
		    updated_at = now()
		WHERE setting_id = 1
	`, s.MinTransferCents, s.DefaultBettingValueCents)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// DeleteMatch remove a partida e, via cascade, apostas, alocações e
// resultados ligados a ela.
func (p *Postgres) DeleteMatch(ctx context.Context, matchID int64) error {
	res, err := p.DB.ExecContext(ctx, `DELETE FROM matches WHERE match_id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	if n == 0 {
		return ErrMatchNotFound
	}
	return nil
}

type backupPayload struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Accounts    []Account         `json:"accounts"`
	Matches     []Match           `json:"matches"`
	Bets        []Bet             `json:"bets"`
	Allocations []StakeAllocation `json:"bet_accounts"`
	Results     []json.RawMessage `json:"results"`
	Settings    Settings          `json:"settings"`
}

// Backup exporta o estado completo pra um arquivo JSON em dir e retorna o
// caminho gravado.
func (p *Postgres) Backup(ctx context.Context, dir string) (string, error) {
	var payload backupPayload
	payload.GeneratedAt = time.Now().UTC()

	accounts, err := p.ListAccounts(ctx)
	if err != nil {
		return "", err
	}
	payload.Accounts = accounts

	rows, err := p.DB.QueryContext(ctx, `
		SELECT match_id, team1, team2, match_date, match_time, status, created_at
		FROM matches ORDER BY match_id
	`)
	if err != nil {
		return "", fmt.Errorf("backup matches: %w", err)
	}
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.MatchID, &m.Team1, &m.Team2, &m.MatchDate, &m.MatchTime, &m.Status, &m.CreatedAt); err != nil {
			rows.Close()
			return "", fmt.Errorf("backup matches: %w", err)
		}
		payload.Matches = append(payload.Matches, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("backup matches: %w", err)
	}

	rows, err = p.DB.QueryContext(ctx, `
		SELECT bet_id, match_id, team1_odds, team2_odds, betting_value_cents, status, created_at
		FROM bets ORDER BY bet_id
	`)
	if err != nil {
		return "", fmt.Errorf("backup bets: %w", err)
	}
	for rows.Next() {
		var b Bet
		if err := rows.Scan(&b.BetID, &b.MatchID, &b.Team1Odds, &b.Team2Odds, &b.BettingValueCents, &b.Status, &b.CreatedAt); err != nil {
			rows.Close()
			return "", fmt.Errorf("backup bets: %w", err)
		}
		payload.Bets = append(payload.Bets, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("backup bets: %w", err)
	}

	rows, err = p.DB.QueryContext(ctx, `
		SELECT bet_id, account_id, side, stake_cents
		FROM bet_accounts ORDER BY bet_id, account_id
	`)
	if err != nil {
		return "", fmt.Errorf("backup allocations: %w", err)
	}
	for rows.Next() {
		var a StakeAllocation
		if err := rows.Scan(&a.BetID, &a.AccountID, &a.Side, &a.StakeCents); err != nil {
			rows.Close()
			return "", fmt.Errorf("backup allocations: %w", err)
		}
		payload.Allocations = append(payload.Allocations, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("backup allocations: %w", err)
	}

	// results já viram JSON direto no banco pra não perder cashout_details
	rows, err = p.DB.QueryContext(ctx, `
		SELECT row_to_json(r) FROM results r ORDER BY result_id
	`)
	if err != nil {
		return "", fmt.Errorf("backup results: %w", err)
	}
	for rows.Next() {
		var raw json.RawMessage
		if err := rows.Scan(&raw); err != nil {
			rows.Close()
			return "", fmt.Errorf("backup results: %w", err)
		}
		payload.Results = append(payload.Results, raw)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("backup results: %w", err)
	}

	settings, err := p.GetSettings(ctx)
	if err != nil {
		return "", err
	}
	payload.Settings = settings

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("backup dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("tracker_backup_%s.json", payload.GeneratedAt.Format("20060102_150405")))
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("backup marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("backup write: %w", err)
	}
	return path, nil
}

// Reset zera todo o estado e devolve os settings aos padrões. Irreversível.
func (p *Postgres) Reset(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		TRUNCATE bet_accounts, results, bets, matches, accounts, settlement_audit RESTART IDENTITY CASCADE
	`)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	_, err = p.DB.ExecContext(ctx, `
		UPDATE settings
		SET min_transfer_cents = 25000,
		    default_betting_value_cents = 210000,
		    updated_at = now()
		WHERE setting_id = 1
	`)
	if err != nil {
		return fmt.Errorf("reset settings: %w", err)
	}
	return nil
}
