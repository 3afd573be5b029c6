package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLibrary_saveAndReplace(t *testing.T) {
	lib, err := NewLibrary(filepath.Join(t.TempDir(), "library"))
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}

	path, err := lib.Save("user-1", strings.NewReader("first upload"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !lib.Has("user-1") {
		t.Error("Has should report the stored book")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first upload" {
		t.Errorf("stored content = %q", data)
	}

	// A second upload replaces the first.
	if _, err := lib.Save("user-1", strings.NewReader("second upload")); err != nil {
		t.Fatalf("Save (replace): %v", err)
	}
	data, _ = os.ReadFile(lib.Path("user-1"))
	if string(data) != "second upload" {
		t.Errorf("replaced content = %q", data)
	}
}

func TestLibrary_remove(t *testing.T) {
	lib, err := NewLibrary(filepath.Join(t.TempDir(), "library"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lib.Save("user-1", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	if err := lib.Remove("user-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if lib.Has("user-1") {
		t.Error("book should be gone")
	}
	if err := lib.Remove("user-1"); err != nil {
		t.Errorf("Remove absent: %v", err)
	}
}

func TestDiskUsage(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a.bin")
	if err := os.WriteFile(f, []byte("12345"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.bin"), []byte("123"), 0644); err != nil {
		t.Fatal(err)
	}

	if got := DiskUsage(f); got != 5 {
		t.Errorf("file usage = %d, want 5", got)
	}
	if got := DiskUsage(sub); got != 3 {
		t.Errorf("dir usage = %d, want 3", got)
	}
	if got := DiskUsage(f, sub, "", filepath.Join(dir, "missing")); got != 8 {
		t.Errorf("combined usage = %d, want 8", got)
	}
}

func TestUserFromFilename(t *testing.T) {
	tests := []struct {
		name string
		user string
		ok   bool
	}{
		{"alice.epub", "alice", true},
		{"/inbox/bob.EPUB", "bob", true},
		{"carol.pdf", "", false},
		{".epub", "", false},
		{"plainfile", "", false},
	}
	for _, tt := range tests {
		user, ok := UserFromFilename(tt.name, ".epub")
		if user != tt.user || ok != tt.ok {
			t.Errorf("UserFromFilename(%q) = %q, %v; want %q, %v", tt.name, user, ok, tt.user, tt.ok)
		}
	}
}
