package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	asset_engine "github.com/mrmelon54/mc-launch-engine/asset-engine"
	"github.com/mrmelon54/mc-launch-engine/database/types"
	"go.uber.org/zap"
	"time"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Acquisition struct {
	ID          int64          `json:"id"`
	Version     string         `json:"version"`
	Total       int            `json:"total"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	FailedNames types.NameList `json:"failed_names"`
	Bytes       int64          `json:"bytes"`
	CreatedAt   time.Time      `json:"created_at"`
}

type Launch struct {
	ID          int64     `json:"id"`
	Version     string    `json:"version"`
	CommandLine string    `json:"command_line"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store keeps a record of acquisitions and launch attempts per version.
type Store struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

// Open opens the sqlite database at path and migrates it to the latest schema.
func Open(path string, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	s, err := New(db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func New(db *sql.DB, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := migrateUp(db); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db, log: log, now: time.Now}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	drv, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", drv)
	if err != nil {
		return err
	}
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RecordAcquisition(ctx context.Context, version string, r asset_engine.AcquisitionResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO acquisitions (version, total, succeeded, failed, failed_names, bytes, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		version, r.Total, r.Succeeded, r.Failed, types.NameList(r.FailedNames), r.Bytes, s.now().Unix())
	if err != nil {
		return fmt.Errorf("record acquisition: %w", err)
	}
	s.log.Debug("Recorded acquisition", zap.String("version", version), zap.Int("failed", r.Failed))
	return nil
}

// LatestFailures returns the failed job names of the most recent acquisition
// of version, or nil when it has never been acquired or had no failures.
func (s *Store) LatestFailures(ctx context.Context, version string) ([]string, error) {
	var names types.NameList
	err := s.db.QueryRowContext(ctx, `SELECT failed_names FROM acquisitions WHERE version = ? ORDER BY id DESC LIMIT 1`, version).Scan(&names)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("latest failures: %w", err)
	}
	if len(names) == 0 {
		return nil, nil
	}
	return names, nil
}

// ListAcquisitions returns up to limit acquisitions of version, newest first.
func (s *Store) ListAcquisitions(ctx context.Context, version string, limit int) ([]Acquisition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version, total, succeeded, failed, failed_names, bytes, created_at FROM acquisitions WHERE version = ? ORDER BY id DESC LIMIT ?`,
		version, limit)
	if err != nil {
		return nil, fmt.Errorf("list acquisitions: %w", err)
	}
	defer rows.Close()

	out := make([]Acquisition, 0)
	for rows.Next() {
		var a Acquisition
		var created int64
		if err := rows.Scan(&a.ID, &a.Version, &a.Total, &a.Succeeded, &a.Failed, &a.FailedNames, &a.Bytes, &created); err != nil {
			return nil, fmt.Errorf("list acquisitions: %w", err)
		}
		a.CreatedAt = time.Unix(created, 0)
		out = append(out, a)
	}
	return out, rows.Err()
}

// RecordLaunch stores one launch attempt. launchErr is nil for a launch that
// survived the settle delay.
func (s *Store) RecordLaunch(ctx context.Context, version, commandLine string, launchErr error) error {
	var msg sql.NullString
	if launchErr != nil {
		msg = sql.NullString{String: launchErr.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO launches (version, command_line, error, created_at) VALUES (?, ?, ?, ?)`,
		version, commandLine, msg, s.now().Unix())
	if err != nil {
		return fmt.Errorf("record launch: %w", err)
	}
	return nil
}

func (s *Store) ListLaunches(ctx context.Context, version string, limit int) ([]Launch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version, command_line, error, created_at FROM launches WHERE version = ? ORDER BY id DESC LIMIT ?`,
		version, limit)
	if err != nil {
		return nil, fmt.Errorf("list launches: %w", err)
	}
	defer rows.Close()

	out := make([]Launch, 0)
	for rows.Next() {
		var l Launch
		var msg sql.NullString
		var created int64
		if err := rows.Scan(&l.ID, &l.Version, &l.CommandLine, &msg, &created); err != nil {
			return nil, fmt.Errorf("list launches: %w", err)
		}
		l.Error = msg.String
		l.CreatedAt = time.Unix(created, 0)
		out = append(out, l)
	}
	return out, rows.Err()
}
