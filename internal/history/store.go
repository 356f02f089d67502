package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"ytdesk/internal/config"
)

// ErrDisabled is returned by Open when history is turned off in config.
var ErrDisabled = errors.New("download history disabled")

// Store persists download history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	defaultListLimit = 50

	// timeLayout is fixed width so created_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

	entryColumns = "id, url, title, kind, format_id, quality_label, filename, path, bytes, status, error_message, request_id, created_at"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the history database named in cfg.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !cfg.Downloads.HistoryEnabled {
		return nil, ErrDisabled
	}
	return OpenPath(cfg.Downloads.HistoryPath)
}

// OpenPath opens the history database at dbPath, creating parent directories
// and bringing the layout up to date.
func OpenPath(dbPath string) (*Store, error) {
	store, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.migrate(context.Background()); err != nil {
		_ = store.db.Close()
		return nil, err
	}
	return store, nil
}

// ResetPath opens the database at dbPath and rebuilds it from scratch,
// discarding every entry. It also recovers files whose layout OpenPath
// rejects with ErrSchemaMismatch.
func ResetPath(ctx context.Context, dbPath string) (*Store, error) {
	store, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.reset(ensureContext(ctx)); err != nil {
		_ = store.db.Close()
		return nil, err
	}
	return store, nil
}

func openDB(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return &Store{db: db, path: dbPath}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry and returns it with ID and CreatedAt populated.
func (s *Store) Record(ctx context.Context, entry Entry) (Entry, error) {
	ctx = ensureContext(ctx)
	entry.URL = strings.TrimSpace(entry.URL)
	if entry.URL == "" {
		return Entry{}, errors.New("history entry requires a url")
	}
	if entry.Kind == "" {
		entry.Kind = KindVideo
	}
	if entry.Status == "" {
		entry.Status = StatusSaved
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`INSERT INTO downloads (
                url, title, kind, format_id, quality_label, filename, path,
                bytes, status, error_message, request_id, created_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.URL,
			nullableString(entry.Title),
			string(entry.Kind),
			nullableString(entry.FormatID),
			nullableString(entry.QualityLabel),
			nullableString(entry.Filename),
			nullableString(entry.Path),
			entry.Bytes,
			string(entry.Status),
			nullableString(entry.ErrorMessage),
			nullableString(entry.RequestID),
			entry.CreatedAt.Format(timeLayout),
		)
		return execErr
	})
	if err != nil {
		return Entry{}, fmt.Errorf("insert history entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("last insert id: %w", err)
	}
	entry.ID = id
	return entry, nil
}

// List returns up to limit entries, newest first. A non-positive limit uses
// the default page size.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM downloads ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `DELETE FROM downloads`)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry        Entry
		title        sql.NullString
		kind         string
		formatID     sql.NullString
		qualityLabel sql.NullString
		filename     sql.NullString
		path         sql.NullString
		status       string
		errorMessage sql.NullString
		requestID    sql.NullString
		createdRaw   string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.URL,
		&title,
		&kind,
		&formatID,
		&qualityLabel,
		&filename,
		&path,
		&entry.Bytes,
		&status,
		&errorMessage,
		&requestID,
		&createdRaw,
	); err != nil {
		return Entry{}, err
	}
	entry.Title = title.String
	entry.Kind = Kind(kind)
	entry.FormatID = formatID.String
	entry.QualityLabel = qualityLabel.String
	entry.Filename = filename.String
	entry.Path = path.String
	entry.Status = Status(status)
	entry.ErrorMessage = errorMessage.String
	entry.RequestID = requestID.String
	if ts, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		entry.CreatedAt = ts
	}
	return entry, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
