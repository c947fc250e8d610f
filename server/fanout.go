package server

import (
	"fmt"
	"sync"

	pwnedcraft "github.com/NelminDev/PwnedCraft"
	"golang.org/x/term"
)

type errs []error

func (e errs) Error() string {
	return fmt.Sprintf("%+v", []error(e))
}

// Fanout writes to every attached terminal. Terminals whose writes fail
// are dropped so that one dead connection can't wedge broadcasts.
type Fanout struct {
	mu    sync.Mutex
	terms map[*term.Terminal]bool
}

func NewFanout() *Fanout {
	return &Fanout{terms: map[*term.Terminal]bool{}}
}

func (f *Fanout) Push(t *term.Terminal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms[t] = true
}

func (f *Fanout) Drop(t *term.Terminal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.terms, t)
}

func (f *Fanout) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	errs := errs{}
	max := 0
	for t := range f.terms {
		if written, err := t.Write(b); err != nil {
			delete(f.terms, t)
			errs = append(errs, err)
		} else if written > max {
			max = written
		}
	}
	if len(errs) > 0 {
		return max, pwnedcraft.WithStack(errs)
	}
	return max, nil
}
