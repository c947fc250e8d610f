package console

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/NelminDev/PwnedCraft/vpath"
)

type DispatchResult int

const (
	Unknown DispatchResult = iota
	Handled
)

// Handler runs one command family. Run must recover every failure into
// user-facing feedback or an error return; dispatch reports returned
// errors to the sender and otherwise treats every invocation as
// succeeding.
type Handler struct {
	Name string
	Run  func(inv *Invocation) error
}

// Invocation is one dispatched command: who sent it, the lower-cased
// command name it was looked up under, and the whitespace-split
// arguments after the name.
type Invocation struct {
	Session Session
	Name    string
	Args    []string

	console *Console
}

// Reply sends a formatted line back to the sender.
func (inv *Invocation) Reply(format string, args ...any) {
	inv.Session.Send(fmt.Sprintf(format, args...))
}

// Host is the server boundary the command may effect.
func (inv *Invocation) Host() Host {
	return inv.console.host
}

// Dirs is the session directory table the filesystem commands resolve
// against.
func (inv *Invocation) Dirs() *vpath.Table {
	return inv.console.dirs
}

// Registry maps lower-cased command names to handlers. It is built once
// at startup; aliases may be added afterwards.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]*Handler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: map[string]*Handler{},
	}
}

// Register adds a handler under its name plus any aliases, all
// lower-cased. Registering over an existing name overrides it, with a
// log line since that is almost always a mistake in the command table.
func (r *Registry) Register(h *Handler, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range append([]string{h.Name}, aliases...) {
		key := strings.ToLower(name)
		if _, found := r.handlers[key]; found {
			log.Printf("command %q overrides an existing registration", key)
		}
		r.handlers[key] = h
	}
}

// Lookup finds the handler for a name. Matching is exact on the
// lower-cased name: no prefixes, no fuzz.
func (r *Registry) Lookup(name string) (*Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, found := r.handlers[strings.ToLower(name)]
	return h, found
}
