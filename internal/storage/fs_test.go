package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFSStoreDownload(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "user-1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "user-1", "doc.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFSStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Download(context.Background(), "user-1/doc.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("got %q", got)
	}
}

func TestFSStoreMissingObject(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Download(context.Background(), "nope.pdf")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"../etc/passwd", "/etc/passwd"} {
		if _, err := s.Download(context.Background(), key); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestNewFSStoreMissingRoot(t *testing.T) {
	if _, err := NewFSStore("/definitely/not/here"); err == nil {
		t.Error("expected error for missing root")
	}
}
