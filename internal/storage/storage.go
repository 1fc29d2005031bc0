package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"emperror.dev/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*/*.sql
var migrations embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Store wraps the SQL database. Queries are written with ? placeholders and rebound per driver.
type Store struct {
	db     *sqlx.DB
	driver string
}

type AuditLog struct {
	ID        int64
	GuildID   string
	UserID    string
	Level     string
	Event     string
	Details   string
	CreatedAt time.Time
}

// New opens a Postgres database when dsn is a postgres URL and a SQLite file otherwise.
func New(dsn string) (*Store, error) {
	driver := DriverSQLite
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = DriverPostgres
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.WithMessage(err, "open database")
	}
	if driver == DriverSQLite {
		// One connection keeps :memory: databases coherent and avoids writer contention.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		_, _ = db.Exec("PRAGMA busy_timeout = 5000")
		_, _ = db.Exec("PRAGMA journal_mode = WAL")
	}
	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Migrate() error {
	dir := path.Join("migrations", "sqlite")
	if s.driver == DriverPostgres {
		dir = path.Join("migrations", "postgres")
	}
	entries, err := migrations.ReadDir(dir)
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join(dir, file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.db.Rebind(query), args...)
}

// get scans one row into dest and reports false when there is none.
func (s *Store) get(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	err := s.db.GetContext(ctx, dest, s.db.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return s.db.SelectContext(ctx, dest, s.db.Rebind(query), args...)
}

func (s *Store) AddAuditLog(ctx context.Context, log AuditLog) error {
	_, err := s.exec(ctx, `
		INSERT INTO audit_logs (guild_id, user_id, level, event, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, log.GuildID, log.UserID, log.Level, log.Event, log.Details, log.CreatedAt.Unix())
	return err
}

type auditRow struct {
	ID        int64  `db:"id"`
	GuildID   string `db:"guild_id"`
	UserID    string `db:"user_id"`
	Level     string `db:"level"`
	Event     string `db:"event"`
	Details   string `db:"details"`
	CreatedAt int64  `db:"created_at"`
}

func (s *Store) ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]AuditLog, error) {
	var rows []auditRow
	err := s.selectAll(ctx, &rows, `
		SELECT id, guild_id, user_id, level, event, details, created_at
		FROM audit_logs
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}

	logs := make([]AuditLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, AuditLog{
			ID:        row.ID,
			GuildID:   row.GuildID,
			UserID:    row.UserID,
			Level:     row.Level,
			Event:     row.Event,
			Details:   row.Details,
			CreatedAt: time.Unix(row.CreatedAt, 0),
		})
	}
	return logs, nil
}

// CleanupAuditLogs deletes entries older than retentionDays and returns how many went.
func (s *Store) CleanupAuditLogs(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res, err := s.exec(ctx, `DELETE FROM audit_logs WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isIgnorableMigrationError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column name") || strings.Contains(msg, "already exists")
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
