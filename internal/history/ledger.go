package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/hero-dispatch/internal/interfaces"
	"github.com/user/hero-dispatch/internal/types"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrClosed is returned by queries on a closed ledger
var ErrClosed = errors.New("ledger is closed")

// Mission outcomes stored in the missions table
const (
	OutcomeActive    = "active"
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeExpired   = "expired"
)

const queueSize = 4096

// Ledger records engine events in SQLite. Writes happen on a single goroutine
// so publishing never blocks the engine.
type Ledger struct {
	db     *sql.DB
	logger *zap.Logger

	// mu guards sends on ch against Close
	mu   sync.RWMutex
	ch   chan request
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ interfaces.EventSink = (*Ledger)(nil)

type request struct {
	event types.GameEvent
	// set for flush barriers
	done chan struct{}
}

// Entry is one recorded event
type Entry struct {
	Seq       int64           `json:"seq"`
	Kind      types.EventKind `json:"kind"`
	Time      time.Time       `json:"time"`
	MissionID string          `json:"mission_id,omitempty"`
	HeroID    string          `json:"hero_id,omitempty"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Stats aggregates the missions table
type Stats struct {
	Dispatched     int     `json:"dispatched"`
	Active         int     `json:"active"`
	Completed      int     `json:"completed"`
	Failed         int     `json:"failed"`
	Expired        int     `json:"expired"`
	Rejected       int     `json:"rejected"`
	AvgProbability float64 `json:"avg_probability"`
	Shifts         int     `json:"shifts"`
}

// Open opens (or creates) the ledger database at path
func Open(path string, logger *zap.Logger) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("empty ledger path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger schema: %w", err)
	}

	l := &Ledger{
		db:     db,
		logger: logger,
		ch:     make(chan request, queueSize),
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.loop()
	}()

	logger.Info("Mission ledger opened", zap.String("path", path))
	return l, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			at TEXT NOT NULL,
			mission_id TEXT NOT NULL DEFAULT '',
			hero_id TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL,
			data_json TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_mission ON events(mission_id);`,
		`CREATE TABLE IF NOT EXISTS missions (
			mission_id TEXT PRIMARY KEY,
			outcome TEXT NOT NULL,
			probability REAL NOT NULL DEFAULT 0,
			hero_ids TEXT NOT NULL DEFAULT '',
			dispatched_at TEXT,
			resolved_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_missions_outcome ON missions(outcome);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Publish queues an event for writing. Events are dropped when the writer falls behind.
func (l *Ledger) Publish(event types.GameEvent) {
	if l == nil {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed.Load() {
		return
	}
	select {
	case l.ch <- request{event: event}:
	default:
		if l.dropped.Add(1) == 1 {
			l.logger.Warn("Ledger queue full, dropping events")
		}
	}
}

// Flush blocks until every event queued before the call is written
func (l *Ledger) Flush(ctx context.Context) error {
	done := make(chan struct{})
	l.mu.RLock()
	if l.closed.Load() {
		l.mu.RUnlock()
		return ErrClosed
	}
	select {
	case l.ch <- request{done: done}:
		l.mu.RUnlock()
	case <-ctx.Done():
		l.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped reports how many events were discarded on a full queue
func (l *Ledger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close drains the queue and closes the database
func (l *Ledger) Close() error {
	var err error
	l.once.Do(func() {
		l.mu.Lock()
		l.closed.Store(true)
		close(l.ch)
		l.mu.Unlock()
		l.wg.Wait()
		err = l.db.Close()
	})
	return err
}

func (l *Ledger) loop() {
	for req := range l.ch {
		if req.done != nil {
			close(req.done)
			continue
		}
		if err := l.write(req.event); err != nil {
			l.logger.Error("Failed to record event",
				zap.String("kind", string(req.event.Kind)),
				zap.String("mission_id", req.event.MissionID),
				zap.Error(err))
		}
	}
}

func (l *Ledger) write(event types.GameEvent) error {
	ctx := context.Background()
	at := event.Time.UTC().Format(time.RFC3339Nano)

	var data sql.NullString
	if len(event.Data) > 0 {
		b, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("encode event data: %w", err)
		}
		data = sql.NullString{String: string(b), Valid: true}
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events(kind,at,mission_id,hero_id,message,data_json) VALUES(?,?,?,?,?,?)`,
		string(event.Kind), at, event.MissionID, event.HeroID, event.Message, data); err != nil {
		return err
	}

	switch event.Kind {
	case types.EventMissionDispatched:
		probability, _ := event.Data["probability"].(float64)
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO missions(mission_id,outcome,probability,hero_ids,dispatched_at) VALUES(?,?,?,?,?)`,
			event.MissionID, OutcomeActive, probability, strings.Join(heroIDs(event.Data), ","), at)
	case types.EventMissionResolved:
		outcome := OutcomeFailed
		if success, _ := event.Data["success"].(bool); success {
			outcome = OutcomeCompleted
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO missions(mission_id,outcome,resolved_at) VALUES(?,?,?)
			 ON CONFLICT(mission_id) DO UPDATE SET outcome=excluded.outcome, resolved_at=excluded.resolved_at`,
			event.MissionID, outcome, at)
	case types.EventMissionExpired:
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO missions(mission_id,outcome,resolved_at) VALUES(?,?,?)`,
			event.MissionID, OutcomeExpired, at)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}

func heroIDs(data map[string]interface{}) []string {
	switch ids := data["hero_ids"].(type) {
	case []string:
		return ids
	case []interface{}:
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			if s, ok := id.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Recent returns the latest events, newest first
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT seq,kind,at,mission_id,hero_id,message,data_json FROM events ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e    Entry
			kind string
			at   string
			data sql.NullString
		)
		if err := rows.Scan(&e.Seq, &kind, &at, &e.MissionID, &e.HeroID, &e.Message, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = types.EventKind(kind)
		if e.Time, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse event time %q: %w", at, err)
		}
		if data.Valid {
			e.Data = json.RawMessage(data.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats aggregates mission outcomes across every recorded shift
func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if l.closed.Load() {
		return st, ErrClosed
	}

	rows, err := l.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM missions GROUP BY outcome`)
	if err != nil {
		return st, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return st, fmt.Errorf("scan outcome: %w", err)
		}
		switch outcome {
		case OutcomeActive:
			st.Active = n
		case OutcomeCompleted:
			st.Completed = n
		case OutcomeFailed:
			st.Failed = n
		case OutcomeExpired:
			st.Expired = n
		}
	}
	if err := rows.Err(); err != nil {
		return st, err
	}
	st.Dispatched = st.Active + st.Completed + st.Failed

	var avg sql.NullFloat64
	if err := l.db.QueryRowContext(ctx,
		`SELECT AVG(probability) FROM missions WHERE dispatched_at IS NOT NULL`).Scan(&avg); err != nil {
		return st, fmt.Errorf("query probability: %w", err)
	}
	st.AvgProbability = avg.Float64

	if err := l.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0)
		 FROM events`,
		string(types.EventDispatchRejected), string(types.EventShiftEnded)).Scan(&st.Rejected, &st.Shifts); err != nil {
		return st, fmt.Errorf("query event counts: %w", err)
	}

	return st, nil
}
