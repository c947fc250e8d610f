package vpath

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func membershipCount(t *testing.T, table *Table, sessionID string) int {
	t.Helper()
	table.mu.RLock()
	defer table.mu.RUnlock()
	count := 0
	for _, sessions := range table.dirs {
		if _, found := sessions[sessionID]; found {
			count++
		}
	}
	return count
}

func TestNavigate(t *testing.T) {
	tmp := t.TempDir()
	sub := filepath.Join(tmp, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	table := NewTable()
	if got := table.CurrentOf("sess"); got != DefaultDirectory {
		t.Errorf("CurrentOf() before any navigation = %q, want %q", got, DefaultDirectory)
	}

	got, err := table.Navigate("sess", tmp)
	if err != nil {
		t.Fatalf("Navigate() error: %v", err)
	}
	if got != tmp {
		t.Errorf("Navigate() = %q, want %q", got, tmp)
	}
	if got := table.CurrentOf("sess"); got != tmp {
		t.Errorf("CurrentOf() = %q, want %q", got, tmp)
	}

	if _, err := table.Navigate("sess", sub); err != nil {
		t.Fatalf("Navigate() error: %v", err)
	}
	if got := table.CurrentOf("sess"); got != sub {
		t.Errorf("CurrentOf() after second navigation = %q, want %q", got, sub)
	}
	if count := membershipCount(t, table, "sess"); count != 1 {
		t.Errorf("session present in %d directories, want 1", count)
	}
}

func TestNavigateInvalid(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "file")
	if err := os.WriteFile(file, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	table := NewTable()
	if _, err := table.Navigate("sess", tmp); err != nil {
		t.Fatalf("Navigate() error: %v", err)
	}

	if _, err := table.Navigate("sess", filepath.Join(tmp, "missing")); !errors.Is(err, ErrInvalidDirectory) {
		t.Errorf("Navigate() to missing path: error = %v, want ErrInvalidDirectory", err)
	}
	if _, err := table.Navigate("sess", file); !errors.Is(err, ErrInvalidDirectory) {
		t.Errorf("Navigate() to a file: error = %v, want ErrInvalidDirectory", err)
	}
	if got := table.CurrentOf("sess"); got != tmp {
		t.Errorf("CurrentOf() changed by failed navigation: %q, want %q", got, tmp)
	}
}

func TestNavigateManySessions(t *testing.T) {
	tmp := t.TempDir()
	dirs := make([]string, 3)
	for i := range dirs {
		dirs[i] = filepath.Join(tmp, string(rune('a'+i)))
		if err := os.Mkdir(dirs[i], 0o755); err != nil {
			t.Fatal(err)
		}
	}

	table := NewTable()
	sessions := []string{"one", "two", "three", "four"}
	for i, sessionID := range sessions {
		for _, dir := range dirs[:i%len(dirs)+1] {
			if _, err := table.Navigate(sessionID, dir); err != nil {
				t.Fatalf("Navigate() error: %v", err)
			}
		}
	}
	for i, sessionID := range sessions {
		if count := membershipCount(t, table, sessionID); count != 1 {
			t.Errorf("session %q present in %d directories, want 1", sessionID, count)
		}
		if got, want := table.CurrentOf(sessionID), dirs[i%len(dirs)]; got != want {
			t.Errorf("CurrentOf(%q) = %q, want %q", sessionID, got, want)
		}
	}
}

func TestForget(t *testing.T) {
	tmp := t.TempDir()
	table := NewTable()
	if _, err := table.Navigate("sess", tmp); err != nil {
		t.Fatalf("Navigate() error: %v", err)
	}
	table.Forget("sess")
	if got := table.CurrentOf("sess"); got != DefaultDirectory {
		t.Errorf("CurrentOf() after Forget = %q, want %q", got, DefaultDirectory)
	}
	if count := membershipCount(t, table, "sess"); count != 0 {
		t.Errorf("session present in %d directories after Forget, want 0", count)
	}
}
