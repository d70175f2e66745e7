package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pixelplace/place/domain"

	_ "modernc.org/sqlite"
)

const clientsSchema = `
CREATE TABLE IF NOT EXISTS clients (
    id                TEXT PRIMARY KEY,
    r                 INTEGER NOT NULL DEFAULT 0,
    g                 INTEGER NOT NULL DEFAULT 0,
    b                 INTEGER NOT NULL DEFAULT 0,
    last_placement_ns INTEGER NOT NULL DEFAULT 0
)`

// OpenSQLite abre o banco com os pragmas de produção (WAL, busy_timeout,
// synchronous=NORMAL). Uma única conexão: as escritas já são serializadas
// por cliente e o SQLite só aceita um escritor por vez.
func OpenSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// SQLiteClientStore guarda um registro por cliente na tabela clients.
type SQLiteClientStore struct {
	db    *sql.DB
	locks keyLocks
}

var _ domain.ClientStore = (*SQLiteClientStore)(nil)

// NewSQLiteClientStore aplica o schema e devolve o store.
func NewSQLiteClientStore(db *sql.DB) (*SQLiteClientStore, error) {
	if db == nil {
		return nil, errors.New("sqlite client store: DB is required")
	}
	if _, err := db.Exec(clientsSchema); err != nil {
		return nil, fmt.Errorf("clients schema: %w", err)
	}
	return &SQLiteClientStore{db: db}, nil
}

func (s *SQLiteClientStore) Get(ctx context.Context, id domain.ClientID) (domain.ClientRecord, error) {
	rec, err := scanClient(s.db.QueryRowContext(ctx,
		`SELECT r, g, b, last_placement_ns FROM clients WHERE id = ?`, string(id)))
	if err != nil {
		return domain.ClientRecord{}, fmt.Errorf("%w: read client %s: %w", domain.ErrStorage, id, err)
	}
	return rec, nil
}

func (s *SQLiteClientStore) Update(ctx context.Context, id domain.ClientID, fn func(*domain.ClientRecord)) error {
	unlock := s.locks.lock(string(id))
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin client tx: %w", domain.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanClient(tx.QueryRowContext(ctx,
		`SELECT r, g, b, last_placement_ns FROM clients WHERE id = ?`, string(id)))
	if err != nil {
		return fmt.Errorf("%w: read client %s: %w", domain.ErrStorage, id, err)
	}
	fn(&rec)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO clients (id, r, g, b, last_placement_ns) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   r = excluded.r, g = excluded.g, b = excluded.b,
		   last_placement_ns = excluded.last_placement_ns`,
		string(id), rec.Color.R, rec.Color.G, rec.Color.B, rec.LastPlacement.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: write client %s: %w", domain.ErrStorage, id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit client %s: %w", domain.ErrStorage, id, err)
	}
	return nil
}

func scanClient(row *sql.Row) (domain.ClientRecord, error) {
	var (
		r, g, b int
		ns      int64
	)
	err := row.Scan(&r, &g, &b, &ns)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultClientRecord(), nil
	}
	if err != nil {
		return domain.ClientRecord{}, err
	}
	return domain.ClientRecord{
		Color:         domain.RGB{R: uint8(r), G: uint8(g), B: uint8(b)},
		LastPlacement: time.Unix(0, ns).UTC(),
	}, nil
}
