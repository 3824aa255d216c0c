package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/spritescan/internal/model"
)

// ScanDB provides SQLite-based storage for scan progress and discovered
// sprite candidates. It manages connection pooling and provides methods
// for checkpoint and candidate CRUD operations.
//
// Design decision: We use a single database file for all ROMs rather
// than one file per ROM. Sessions are keyed by (rom_hash, params_hash),
// so a shared file keeps resume lookups and cleanup simple.
type ScanDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ScanDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Progress is a resumable checkpoint for a scan session.
type Progress struct {
	// LastOffset is the highest ROM offset that has been fully probed.
	LastOffset int64

	// Completed reports whether the scan finished all ranges.
	Completed bool

	// Candidates are the sprite candidates accepted so far.
	Candidates []model.SpriteCandidate
}

// Open opens or creates a ScanDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ScanDB, error) {
	dbPath := filepath.Join(dbDir, "spritescan.db")

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		// Check if database file exists
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		// Ensure directory exists
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	// SQLite doesn't benefit from multiple connections for writes,
	// but multiple readers can improve performance
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &ScanDB{
		db:     db,
		dbPath: dbPath,
	}

	// Enable WAL mode if requested
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Create tables
	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Close closes the database connection.
func (sdb *ScanDB) Close() error {
	return sdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (sdb *ScanDB) createTables() error {
	schema := `
	-- Scan progress stores one resumable checkpoint per scan session.
	-- A session is identified by ROM content hash plus parameter hash.
	CREATE TABLE IF NOT EXISTS scan_progress (
		rom_hash TEXT NOT NULL,
		params_hash TEXT NOT NULL,
		last_offset INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (rom_hash, params_hash)
	);

	-- Scan candidates store accepted sprite sheets per scan session.
	CREATE TABLE IF NOT EXISTS scan_candidates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rom_hash TEXT NOT NULL,
		params_hash TEXT NOT NULL,
		offset INTEGER NOT NULL,
		decompressed_size INTEGER NOT NULL,
		compressed_size INTEGER NOT NULL,
		tile_count INTEGER NOT NULL,
		quality REAL NOT NULL,
		palette_hint INTEGER,
		UNIQUE(rom_hash, params_hash, offset)
	);

	CREATE INDEX IF NOT EXISTS idx_candidates_session ON scan_candidates(rom_hash, params_hash);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveProgress inserts or updates the checkpoint for a scan session and
// replaces its stored candidates. Uses UPSERT to handle duplicates.
func (sdb *ScanDB) SaveProgress(ctx context.Context, romHash, paramsHash string, progress Progress) error {
	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	query := `
	INSERT INTO scan_progress (rom_hash, params_hash, last_offset, completed)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(rom_hash, params_hash) DO UPDATE SET
		last_offset = excluded.last_offset,
		completed = excluded.completed,
		updated_at = CURRENT_TIMESTAMP
	`
	completed := 0
	if progress.Completed {
		completed = 1
	}
	if _, err := tx.ExecContext(ctx, query, romHash, paramsHash, progress.LastOffset, completed); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}

	candidateQuery := `
	INSERT INTO scan_candidates (rom_hash, params_hash, offset, decompressed_size, compressed_size, tile_count, quality, palette_hint)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(rom_hash, params_hash, offset) DO UPDATE SET
		decompressed_size = excluded.decompressed_size,
		compressed_size = excluded.compressed_size,
		tile_count = excluded.tile_count,
		quality = excluded.quality,
		palette_hint = excluded.palette_hint
	`
	for _, c := range progress.Candidates {
		var paletteHint sql.NullInt64
		if c.PaletteHint != nil {
			paletteHint = sql.NullInt64{Int64: int64(*c.PaletteHint), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, candidateQuery,
			romHash,
			paramsHash,
			c.Offset,
			c.DecompressedSize,
			c.CompressedSize,
			c.TileCount,
			c.QualityScore,
			paletteHint,
		); err != nil {
			return fmt.Errorf("failed to save candidate at 0x%X: %w", c.Offset, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit progress: %w", err)
	}
	return nil
}

// LoadProgress retrieves the checkpoint for a scan session.
// Returns nil if no checkpoint exists for the given session.
func (sdb *ScanDB) LoadProgress(ctx context.Context, romHash, paramsHash string) (*Progress, error) {
	query := `
	SELECT last_offset, completed
	FROM scan_progress
	WHERE rom_hash = ? AND params_hash = ?
	`

	var progress Progress
	var completed int
	err := sdb.db.QueryRowContext(ctx, query, romHash, paramsHash).Scan(&progress.LastOffset, &completed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	progress.Completed = completed != 0

	candidates, err := sdb.loadCandidates(ctx, romHash, paramsHash)
	if err != nil {
		return nil, err
	}
	progress.Candidates = candidates

	return &progress, nil
}

// loadCandidates retrieves the stored candidates for a scan session,
// ordered by ROM offset.
func (sdb *ScanDB) loadCandidates(ctx context.Context, romHash, paramsHash string) ([]model.SpriteCandidate, error) {
	query := `
	SELECT offset, decompressed_size, compressed_size, tile_count, quality, palette_hint
	FROM scan_candidates
	WHERE rom_hash = ? AND params_hash = ?
	ORDER BY offset
	`

	rows, err := sdb.db.QueryContext(ctx, query, romHash, paramsHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []model.SpriteCandidate
	for rows.Next() {
		var c model.SpriteCandidate
		var paletteHint sql.NullInt64

		err := rows.Scan(
			&c.Offset,
			&c.DecompressedSize,
			&c.CompressedSize,
			&c.TileCount,
			&c.QualityScore,
			&paletteHint,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}

		if paletteHint.Valid {
			hint := int(paletteHint.Int64)
			c.PaletteHint = &hint
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// DeleteProgress removes the checkpoint and candidates for a scan session.
// Used when a scan is restarted from scratch.
func (sdb *ScanDB) DeleteProgress(ctx context.Context, romHash, paramsHash string) error {
	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM scan_progress WHERE rom_hash = ? AND params_hash = ?`, romHash, paramsHash); err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scan_candidates WHERE rom_hash = ? AND params_hash = ?`, romHash, paramsHash); err != nil {
		return fmt.Errorf("failed to delete candidates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// ListSessions returns the ROM hashes that have stored progress.
func (sdb *ScanDB) ListSessions(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT rom_hash FROM scan_progress
	ORDER BY rom_hash
	`

	rows, err := sdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		hashes = append(hashes, hash)
	}

	return hashes, rows.Err()
}
