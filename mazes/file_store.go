package mazes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every record in one json array on disk, in save order.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (st *FileStore) Save(_ context.Context, rec Record) (Record, error) {
	rec, err := prepare(rec)
	if err != nil {
		return rec, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	all, err := st.read()
	if err != nil {
		return rec, err
	}
	i := index(all, rec.Name)
	if i < 0 {
		all = append(all, toStored(rec))
		return rec, st.write(all)
	}
	rec.ID, rec.CreatedAt = all[i].ID, all[i].CreatedAt
	all[i] = toStored(rec)
	return rec, st.write(all)
}

func (st *FileStore) Load(_ context.Context, name string) (Record, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	all, err := st.read()
	if err != nil {
		return Record{}, err
	}
	i := index(all, name)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return all[i].record()
}

func (st *FileStore) List(_ context.Context) ([]Record, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	all, err := st.read()
	if err != nil {
		return nil, err
	}
	recs := make([]Record, 0, len(all))
	for _, s := range all {
		rec, err := s.record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (st *FileStore) Delete(_ context.Context, name string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	all, err := st.read()
	if err != nil {
		return err
	}
	i := index(all, name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return st.write(append(all[:i], all[i+1:]...))
}

func (st *FileStore) Close() error {
	return nil
}

// read returns nothing, not an error, when the file does not exist yet.
func (st *FileStore) read() ([]stored, error) {
	data, err := os.ReadFile(st.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mazes: read %s: %w", st.path, err)
	}
	var all []stored
	if len(data) == 0 {
		return all, nil
	}
	if err = json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("mazes: read %s: %w", st.path, err)
	}
	return all, nil
}

// write replaces the file through a temporary sibling so a crash never
// leaves a half-written array.
func (st *FileStore) write(all []stored) error {
	if all == nil {
		all = []stored{}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("mazes: write %s: %w", st.path, err)
	}
	dir := filepath.Dir(st.path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mazes: write %s: %w", st.path, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(st.path)+".*")
	if err != nil {
		return fmt.Errorf("mazes: write %s: %w", st.path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("mazes: write %s: %w", st.path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("mazes: write %s: %w", st.path, err)
	}
	if err = os.Rename(tmp.Name(), st.path); err != nil {
		return fmt.Errorf("mazes: write %s: %w", st.path, err)
	}
	return nil
}

func index(all []stored, name string) int {
	for i, s := range all {
		if s.Name == name {
			return i
		}
	}
	return -1
}
