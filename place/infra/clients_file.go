package infra

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"pixelplace/place/domain"
)

// FileClientStore grava um arquivo "<dir>/<id>.txt" por cliente no formato
// "r,g,b;segundos". A escrita é atômica (temp + rename) e Update é
// serializado por id.
type FileClientStore struct {
	dir   string
	locks keyLocks
}

var _ domain.ClientStore = (*FileClientStore)(nil)

func NewFileClientStore(dir string) (*FileClientStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create client dir: %w", err)
	}
	return &FileClientStore{dir: dir}, nil
}

func (s *FileClientStore) Get(_ context.Context, id domain.ClientID) (domain.ClientRecord, error) {
	if !validClientID(id) {
		return domain.ClientRecord{}, fmt.Errorf("invalid client id %q", id)
	}
	return s.read(id)
}

func (s *FileClientStore) Update(_ context.Context, id domain.ClientID, fn func(*domain.ClientRecord)) error {
	if !validClientID(id) {
		return fmt.Errorf("invalid client id %q", id)
	}

	unlock := s.locks.lock(string(id))
	defer unlock()

	rec, err := s.read(id)
	if err != nil {
		return err
	}
	fn(&rec)

	if err := writeFileAtomic(s.path(id), []byte(encodeRecord(rec))); err != nil {
		return fmt.Errorf("%w: write client %s: %w", domain.ErrStorage, id, err)
	}
	return nil
}

func (s *FileClientStore) read(id domain.ClientID) (domain.ClientRecord, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.DefaultClientRecord(), nil
	}
	if err != nil {
		return domain.ClientRecord{}, fmt.Errorf("%w: read client %s: %w", domain.ErrStorage, id, err)
	}

	rec, err := decodeRecord(string(data))
	if err != nil {
		return domain.ClientRecord{}, fmt.Errorf("%w: decode client %s: %w", domain.ErrStorage, id, err)
	}
	return rec, nil
}

func (s *FileClientStore) path(id domain.ClientID) string {
	return filepath.Join(s.dir, string(id)+".txt")
}
