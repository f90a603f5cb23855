package infra

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"deal-transfer/transfer/domain"
)

func TestFileCounterStore_MissingFileIsEmpty(t *testing.T) {
	s := NewFileCounterStore(filepath.Join(t.TempDir(), "daily-counter.json"))

	c, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c) != 0 {
		t.Fatalf("expected empty counter, got %v", c)
	}
}

func TestFileCounterStore_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "daily-counter.json")
	s := NewFileCounterStore(path)
	ctx := context.Background()

	in := domain.Counter{"2024-05-16": 30, "2024-05-17": 3}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"2024-05-16\": 30,\n  \"2024-05-17\": 3\n}"
	if string(raw) != want {
		t.Fatalf("unexpected file content:\n%s", raw)
	}

	out, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("expected %v, got %v", in, out)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, got %d entries", len(entries))
	}
}

func TestFileCounterStore_SaveLoadRoundTripKeepsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily-counter.json")
	original := "{\n  \"2024-05-17\": 12\n}"
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFileCounterStore(path)
	ctx := context.Background()

	c, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, _ := os.ReadFile(path)
	if string(raw) != original {
		t.Fatalf("expected content unchanged, got:\n%s", raw)
	}
}

func TestFileCounterStore_CorruptFileIsReadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily-counter.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileCounterStore(path).Load(context.Background())
	if !errors.Is(err, domain.ErrStorageRead) {
		t.Fatalf("expected ErrStorageRead, got %v", err)
	}
}

func TestFileCounterStore_NullFileIsReadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily-counter.json")
	if err := os.WriteFile(path, []byte("null"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := NewFileCounterStore(path).Load(context.Background())
	if !errors.Is(err, domain.ErrStorageRead) {
		t.Fatalf("expected ErrStorageRead, got %v", err)
	}
	if c != nil {
		t.Fatalf("expected nil counter, got %v", c)
	}
}

func TestFileCounterStore_UnwritableDirIsWriteError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	// o "diretório" pai é um arquivo comum, então MkdirAll falha.
	s := NewFileCounterStore(filepath.Join(blocker, "daily-counter.json"))

	err := s.Save(context.Background(), domain.Counter{"2024-05-17": 1})
	if !errors.Is(err, domain.ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}
}

func TestMemoryCounterStore_CopiesOnLoadAndSave(t *testing.T) {
	s := NewMemoryCounterStore(domain.Counter{"2024-05-17": 1})
	ctx := context.Background()

	c, _ := s.Load(ctx)
	c["2024-05-17"] = 99

	again, _ := s.Load(ctx)
	if again["2024-05-17"] != 1 {
		t.Fatalf("expected stored value to be isolated from callers, got %d", again["2024-05-17"])
	}

	_ = s.Save(ctx, c)
	again, _ = s.Load(ctx)
	if again["2024-05-17"] != 99 {
		t.Fatalf("expected saved value 99, got %d", again["2024-05-17"])
	}
}
