package vpath

import (
	"os"
	"sync"

	"github.com/pkg/errors"
)

// DefaultDirectory is where sessions are located before their first
// successful navigation.
const DefaultDirectory = "."

var ErrInvalidDirectory = errors.New("invalid directory")

// Table maps directory paths to the sessions located in them. A session
// is in at most one directory at a time. Lookups scan every entry: the
// table is a reverse index only, sized for tens of sessions rather than
// thousands.
type Table struct {
	mu   sync.RWMutex
	dirs map[string]map[string]struct{}
}

func NewTable() *Table {
	return &Table{
		dirs: map[string]map[string]struct{}{},
	}
}

// CurrentOf returns the directory sessionID is located in, or
// DefaultDirectory if it never navigated anywhere.
func (t *Table) CurrentOf(sessionID string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for dir, sessions := range t.dirs {
		if _, found := sessions[sessionID]; found {
			return dir
		}
	}
	return DefaultDirectory
}

// Navigate moves sessionID to target after verifying that target exists
// and is a directory. The filesystem check runs before the table lock is
// taken, so a directory removed in between is only discovered by a later
// operation on it. On failure the table is left untouched.
func (t *Table) Navigate(sessionID string, target string) (string, error) {
	stat, err := os.Stat(target)
	if err != nil || !stat.IsDir() {
		return "", errors.Wrapf(ErrInvalidDirectory, "%q", target)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, sessions := range t.dirs {
		delete(sessions, sessionID)
	}
	if t.dirs[target] == nil {
		t.dirs[target] = map[string]struct{}{}
	}
	t.dirs[target][sessionID] = struct{}{}
	return target, nil
}

// Forget drops sessionID from the table entirely, putting it back in
// DefaultDirectory. Directory entries stay behind even when empty.
func (t *Table) Forget(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, sessions := range t.dirs {
		delete(sessions, sessionID)
	}
}
