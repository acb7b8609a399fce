// Package audit keeps a SQLite log of administrative content changes.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/intellicloud/icweb/pkg/models"
)

// timeFormat is sortable text so range filters and date() work in SQL.
const timeFormat = "2006-01-02 15:04:05"

// Logger writes and queries change entries in a dedicated SQLite database.
type Logger struct {
	db   *sql.DB
	cfg  models.AuditConfig
	log  logrus.FieldLogger
	now  func() time.Time
	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Logger.
type Option func(*Logger)

// WithLogger sets where retention failures are reported. The default is
// the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Logger) {
		l.log = log
	}
}

// New opens the audit SQLite database, creates the schema and starts the
// hourly retention cleanup.
func New(cfg models.AuditConfig, opts ...Option) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	l := &Logger{
		db:   db,
		cfg:  cfg,
		log:  logrus.StandardLogger(),
		now:  time.Now,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS change_log (
		id          TEXT PRIMARY KEY,
		operation   TEXT NOT NULL,
		target      TEXT NOT NULL,
		cache_keys  TEXT NOT NULL DEFAULT '[]',
		actor       TEXT NOT NULL,
		remote_addr TEXT,
		created_at  TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_change_created ON change_log(created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_change_target ON change_log(target)`)
	return err
}

// Log inserts a change entry. ID and CreatedAt are filled in when empty.
func (l *Logger) Log(ctx context.Context, entry models.ChangeEntry) error {
	if l == nil || l.db == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now()
	}
	keys, err := json.Marshal(entry.CacheKeys)
	if err != nil {
		return fmt.Errorf("encode cache keys: %w", err)
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO change_log
		(id, operation, target, cache_keys, actor, remote_addr, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Operation, entry.Target, string(keys),
		entry.Actor, entry.RemoteAddr, entry.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert change entry: %w", err)
	}
	return nil
}

// Query returns change entries matching the given options, newest first.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.ChangeEntry, error) {
	q := `SELECT id, operation, target, cache_keys, actor, remote_addr, created_at
		FROM change_log WHERE 1=1`
	var args []any

	if opts.Operation != "" {
		q += " AND operation = ?"
		args = append(args, opts.Operation)
	}
	if opts.Target != "" {
		q += " AND target = ?"
		args = append(args, opts.Target)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since.UTC().Format(timeFormat))
	}

	q += " ORDER BY created_at DESC, rowid DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.ChangeEntry
	for rows.Next() {
		var e models.ChangeEntry
		var keys, created string
		var remote sql.NullString
		if err := rows.Scan(&e.ID, &e.Operation, &e.Target, &keys, &e.Actor, &remote, &created); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.RemoteAddr = remote.String
		_ = json.Unmarshal([]byte(keys), &e.CacheKeys)
		if e.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
			return nil, fmt.Errorf("parse audit time %q: %w", created, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns change counts grouped by operation and day.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT operation, date(created_at) as day, count(*) as cnt
		 FROM change_log GROUP BY operation, day ORDER BY day DESC, operation`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var s models.AuditStat
		var day sql.NullString
		if err := rows.Scan(&s.Operation, &day, &s.Count); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the configured retention period. A
// retention of zero or less keeps nothing older than now.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := l.now().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM change_log WHERE created_at < ?`, cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.sweep(context.Background())
		}
	}
}

func (l *Logger) sweep(ctx context.Context) {
	n, err := l.Cleanup(ctx)
	if err != nil {
		l.log.WithError(err).Warn("audit retention cleanup failed")
		return
	}
	if n > 0 {
		l.log.WithField("deleted", n).Debug("audit retention cleanup")
	}
}

// Actor identifies the holder of an admin token without storing it: the
// first 12 hex characters of its SHA-256.
func Actor(token string) string {
	h := sha256.Sum256([]byte(token))
	return "token:" + hex.EncodeToString(h[:])[:12]
}
