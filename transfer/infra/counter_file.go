package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"deal-transfer/transfer/domain"
)

// FileCounterStore guarda o contador diário em um arquivo JSON.
//
// Save escreve em um arquivo temporário e faz rename, então um processo que
// morre no meio nunca deixa o JSON pela metade.
type FileCounterStore struct {
	mu   sync.Mutex
	path string
}

func NewFileCounterStore(path string) *FileCounterStore {
	return &FileCounterStore{path: path}
}

// Load implementa domain.CounterStore.
func (s *FileCounterStore) Load(_ context.Context) (domain.Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Counter{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrStorageRead, s.path, err)
	}

	c := domain.Counter{}
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrStorageRead, s.path, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s: counter is null", domain.ErrStorageRead, s.path)
	}
	return c, nil
}

// Save implementa domain.CounterStore.
func (s *FileCounterStore) Save(_ context.Context, c domain.Counter) error {
	if c == nil {
		c = domain.Counter{}
	}
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
	}
	return nil
}
