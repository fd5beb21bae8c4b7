package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ogulcanaydogan/printguard/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context) (model.State, error) {
	state := make(model.State)

	rows, err := s.db.QueryContext(ctx,
		`SELECT address, name, last_seen, offline_alerted FROM devices ORDER BY address`)
	if err != nil {
		return state, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			addr, lastSeen string
			rec            model.DeviceRecord
		)
		if err := rows.Scan(&addr, &rec.Name, &lastSeen, &rec.OfflineAlerted); err != nil {
			return make(model.State), fmt.Errorf("scan device row: %w", err)
		}
		if err := rec.LastSeen.UnmarshalText([]byte(lastSeen)); err != nil {
			return make(model.State), fmt.Errorf("%w: device %s: %v", ErrCorruptState, addr, err)
		}
		state[addr] = rec
	}
	if err := rows.Err(); err != nil {
		return make(model.State), fmt.Errorf("iterate devices: %w", err)
	}

	if err := s.loadTonerAlerts(ctx, state); err != nil {
		return make(model.State), err
	}
	return state, nil
}

func (s *SQLite) loadTonerAlerts(ctx context.Context, state model.State) error {
	rows, err := s.db.QueryContext(ctx, `SELECT address, supply, alerted_on FROM toner_alerts`)
	if err != nil {
		return fmt.Errorf("query toner alerts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var addr, supplyName, alertedOn string
		if err := rows.Scan(&addr, &supplyName, &alertedOn); err != nil {
			return fmt.Errorf("scan toner alert row: %w", err)
		}
		d, err := model.ParseDate(alertedOn)
		if err != nil {
			return fmt.Errorf("%w: toner alert %s/%s: %v", ErrCorruptState, addr, supplyName, err)
		}
		rec, ok := state[addr]
		if !ok {
			continue
		}
		if rec.TonerAlerted == nil {
			rec.TonerAlerted = make(map[string]model.Date)
		}
		rec.TonerAlerted[supplyName] = d
		state[addr] = rec
	}
	return rows.Err()
}

// Save rewrites both tables inside one transaction.
func (s *SQLite) Save(ctx context.Context, state model.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM toner_alerts`); err != nil {
		return fmt.Errorf("clear toner alerts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM devices`); err != nil {
		return fmt.Errorf("clear devices: %w", err)
	}

	now := time.Now().UTC()
	addrs := make([]string, 0, len(state))
	for addr := range state {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		rec := state[addr]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO devices (address, name, last_seen, offline_alerted, updated_at) VALUES (?, ?, ?, ?, ?)`,
			addr, rec.Name, rec.LastSeen.String(), rec.OfflineAlerted, now,
		); err != nil {
			return fmt.Errorf("insert device %s: %w", addr, err)
		}
		for supplyName, d := range rec.TonerAlerted {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO toner_alerts (address, supply, alerted_on) VALUES (?, ?, ?)`,
				addr, supplyName, d.String(),
			); err != nil {
				return fmt.Errorf("insert toner alert %s/%s: %w", addr, supplyName, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
