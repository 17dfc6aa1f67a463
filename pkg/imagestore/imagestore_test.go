package imagestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")
	want := []byte{0xAA, 0xBB, 0xCC}
	if err := SaveRaw(path, want); err != nil {
		t.Fatalf("SaveRaw() error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Fatalf("SaveRaw() wrote %x, want %x", got, want)
	}
}

func TestSaveEncryptedZipProducesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.zip")
	if err := SaveEncryptedZip(path, "image.bin", []byte{0x01, 0x02}, "hunter2"); err != nil {
		t.Fatalf("SaveEncryptedZip() error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Fatal("expected a non-empty zip archive")
	}
}

func TestTimestampedName(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := TimestampedName("dump", "bin", at)
	want := "dump-20260102-030405.bin"
	if got != want {
		t.Fatalf("TimestampedName() = %q, want %q", got, want)
	}
}
