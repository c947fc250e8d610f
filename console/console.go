// Package console is a trust-gated command console embedded in the chat
// path of a game server. Every inbound chat line passes through it: most
// lines flow on to ordinary chat, lines opening with the command prefix
// become trust toggles, spy notifications, or command dispatches.
//
// Nothing in here survives a restart. Trust, observers, and per-session
// working directories all live exactly as long as the process.
package console

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/NelminDev/PwnedCraft/vpath"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Config controls how inbound messages are recognized as commands.
type Config struct {
	Prefix      string
	TrustPhrase string
}

// DefaultConfig returns the stock command prefix and trust phrase.
func DefaultConfig() Config {
	return Config{
		Prefix:      ">>",
		TrustPhrase: "pwned",
	}
}

// Console routes inbound chat lines. It owns the trust set, the
// observer set, the command registry, and the per-session directory
// table, so tests can construct a fresh one per case.
type Console struct {
	config    Config
	host      Host
	trust     *TrustSet
	observers *ObserverSet
	dirs      *vpath.Table
	registry  *Registry
}

// New builds a console around a host with the full command table
// registered. Empty Config fields fall back to DefaultConfig values.
func New(config Config, host Host) *Console {
	def := DefaultConfig()
	if config.Prefix == "" {
		config.Prefix = def.Prefix
	}
	if config.TrustPhrase == "" {
		config.TrustPhrase = def.TrustPhrase
	}
	c := &Console{
		config:    config,
		host:      host,
		trust:     NewTrustSet(),
		observers: NewObserverSet(),
		dirs:      vpath.NewTable(),
		registry:  NewRegistry(),
	}
	c.registry.Register(serverHandler())
	c.registry.Register(systemHandler())
	c.registry.Register(sudoHandler())
	c.registry.Register(gameModeHandler(), "gm")
	c.registry.Register(itemHandler())
	return c
}

// HandleMessage routes one inbound chat line and reports whether the
// console consumed it. Consumed lines must not be broadcast as ordinary
// chat. An unauthorized command attempt is not consumed: the line still
// flows to chat, and every observer gets notified about it.
func (c *Console) HandleMessage(sess Session, line string) bool {
	if !strings.HasPrefix(line, c.config.Prefix) {
		return false
	}
	if strings.EqualFold(line, c.config.Prefix+c.config.TrustPhrase) {
		switch c.trust.Toggle(sess.ID()) {
		case GrantedTrust:
			sess.Send("You are now trusted.")
		case RevokedTrust:
			sess.Send("You are no longer trusted.")
		}
		return true
	}
	if !c.trust.IsTrusted(sess.ID()) {
		c.notifyObservers(sess, line)
		return false
	}
	words := whitespacePattern.Split(strings.TrimSpace(strings.TrimPrefix(line, c.config.Prefix)), -1)
	if c.Dispatch(sess, words[0], words[1:]) == Unknown {
		sess.Send(fmt.Sprintf("Unknown command: %q", words[0]))
	}
	return true
}

// Dispatch looks up name and runs its handler. Handler errors are
// reported to the sender here, never to the caller: the caller only
// learns whether the name was known.
func (c *Console) Dispatch(sess Session, name string, args []string) DispatchResult {
	handler, found := c.registry.Lookup(name)
	if !found {
		return Unknown
	}
	inv := &Invocation{
		Session: sess,
		Name:    strings.ToLower(name),
		Args:    args,
		console: c,
	}
	if err := handler.Run(inv); err != nil {
		inv.Reply("Error: %v", err)
	}
	return Handled
}

func (c *Console) notifyObservers(sess Session, line string) {
	notification := fmt.Sprintf("[spy] %s: %s", sess.Name(), line)
	for _, observer := range c.observers.Snapshot() {
		observer.Send(notification)
	}
}

// Observe subscribes a session to unauthorized-attempt notifications.
func (c *Console) Observe(sess Session) {
	c.observers.Observe(sess)
}

// Unobserve drops a session from the observer set.
func (c *Console) Unobserve(sessionID string) {
	c.observers.Unobserve(sessionID)
}

// Drop releases what the console tracks for a disconnected session,
// except its trust entry: trust only ever changes through the toggle,
// and session IDs never recur.
func (c *Console) Drop(sessionID string) {
	c.observers.Unobserve(sessionID)
	c.dirs.Forget(sessionID)
}
