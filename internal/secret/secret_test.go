package secret

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFSStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "secrets")
	s, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	if _, ok, err := s.GetItem(ctx, "notes_encryption_key"); err != nil || ok {
		t.Fatalf("expected absent secret, ok=%v err=%v", ok, err)
	}
	if err := s.SetItem(ctx, "notes_encryption_key", "abc\n"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	v, ok, err := s.GetItem(ctx, "notes_encryption_key")
	if err != nil || !ok || v != "abc" {
		t.Fatalf("unexpected GetItem: v=%q ok=%v err=%v", v, ok, err)
	}
	info, err := os.Stat(filepath.Join(dir, "notes_encryption_key"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("secret file must be 0600, got %v", info.Mode().Perm())
	}
	if err := s.DeleteItem(ctx, "notes_encryption_key"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if err := s.DeleteItem(ctx, "notes_encryption_key"); err != nil {
		t.Fatalf("DeleteItem absent: %v", err)
	}
}

func TestFSStore_Errors(t *testing.T) {
	if _, err := NewFSStore(""); err == nil {
		t.Fatalf("empty dir must fail")
	}
	// каталог секретов указывает на файл
	bad := filepath.Join(t.TempDir(), "not_dir")
	if err := os.WriteFile(bad, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFSStore(bad); err == nil {
		t.Fatalf("expected error when secrets dir is a file")
	}

	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetItem(context.Background(), "../escape", "x"); err == nil {
		t.Fatalf("path traversal key must be rejected")
	}
	if _, _, err := s.GetItem(context.Background(), ""); err == nil {
		t.Fatalf("empty key must be rejected")
	}
}

func TestFSStore_EmptyFileIsAbsent(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFSStore(dir)
	if err := os.WriteFile(filepath.Join(dir, "k"), []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := s.GetItem(context.Background(), "k"); err != nil || ok {
		t.Fatalf("blank secret must read as absent, ok=%v err=%v", ok, err)
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.SetItem(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := m.GetItem(ctx, "k"); !ok || v != "v" {
		t.Fatalf("unexpected value %q", v)
	}
	_ = m.DeleteItem(ctx, "k")
	if _, ok, _ := m.GetItem(ctx, "k"); ok {
		t.Fatalf("must be deleted")
	}
	if err := m.SetItem(ctx, "bad/key", "v"); err == nil {
		t.Fatalf("invalid key must be rejected")
	}
}
