package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"OmniTrade/internal/model"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists trigger history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger log.FieldLogger) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// The CLI reads history while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Debugf("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alert_triggers (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			alert_id     TEXT NOT NULL,
			symbol       TEXT NOT NULL,
			exchange     TEXT NOT NULL,
			condition    TEXT NOT NULL,
			target_price TEXT NOT NULL,
			price        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_triggers_ts ON alert_triggers(timestamp)`,

		`CREATE TABLE IF NOT EXISTS notification_outcomes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			trigger_id INTEGER NOT NULL REFERENCES alert_triggers(id),
			channel    TEXT NOT NULL,
			success    INTEGER NOT NULL,
			error      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_trigger ON notification_outcomes(trigger_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordTrigger stores the trigger and its outcomes in one transaction.
func (r *SQLiteRecorder) RecordTrigger(evt *TriggerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := evt.TriggeredAt
	if ts.IsZero() {
		ts = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO alert_triggers
		(timestamp, alert_id, symbol, exchange, condition, target_price, price)
		VALUES (?,?,?,?,?,?,?)`,
		ts.UnixMilli(), evt.AlertID, evt.Symbol, evt.Exchange,
		string(evt.Condition), evt.TargetPrice.String(), evt.Price.String(),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, o := range evt.Outcomes {
		if _, err := tx.Exec(`INSERT INTO notification_outcomes
			(trigger_id, channel, success, error) VALUES (?,?,?,?)`,
			id, o.Channel, o.Success, o.Error,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentTriggers returns up to limit triggers, newest first.
func (r *SQLiteRecorder) RecentTriggers(limit int) ([]TriggerRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT t.id, t.timestamp, t.alert_id, t.symbol, t.exchange,
			t.condition, t.target_price, t.price,
			COALESCE(SUM(CASE WHEN o.success = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN o.success = 0 THEN 1 ELSE 0 END), 0)
		FROM alert_triggers t
		LEFT JOIN notification_outcomes o ON o.trigger_id = t.id
		GROUP BY t.id
		ORDER BY t.timestamp DESC, t.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TriggerRecord
	for rows.Next() {
		var (
			rec           TriggerRecord
			ms            int64
			cond          string
			target, price string
		)
		if err := rows.Scan(&rec.ID, &ms, &rec.AlertID, &rec.Symbol, &rec.Exchange,
			&cond, &target, &price, &rec.Delivered, &rec.Failed); err != nil {
			return nil, err
		}
		rec.TriggeredAt = time.UnixMilli(ms)
		rec.Condition = model.Condition(cond)
		rec.TargetPrice, _ = decimal.NewFromString(target)
		rec.Price, _ = decimal.NewFromString(price)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Debug("closing sqlite recorder")
	return r.db.Close()
}
