package console

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	pwnedcraft "github.com/NelminDev/PwnedCraft"
	"github.com/NelminDev/PwnedCraft/structs"
)

// fakeSession records every line sent to it.
type fakeSession struct {
	id   string
	name string
	sent []string
}

func (f *fakeSession) ID() string { return f.id }

func (f *fakeSession) Name() string { return f.name }

func (f *fakeSession) Send(line string) {
	f.sent = append(f.sent, line)
}

func (f *fakeSession) lastSent(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatalf("session %q received no lines", f.name)
	}
	return f.sent[len(f.sent)-1]
}

// fakeHost implements Host synchronously and records every call. Methods
// that the console must only reach through RunOnMain verify their context.
type fakeHost struct {
	t        *testing.T
	config   *structs.ServerConfig
	console  *Console
	sessions []*fakeSession

	reloaded   []string
	stopped    bool
	added      []string
	removed    []string
	motd       map[int]string
	broadcasts []string
	injected   []string
	given      map[string][]structs.Item
	enchanted  map[string][]string
	lored      map[string][]string
	renamed    map[string][]string
	modes      map[string]structs.GameMode
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()
	return &fakeHost{
		t:         t,
		config:    structs.NewServerConfig(),
		motd:      map[int]string{},
		given:     map[string][]structs.Item{},
		enchanted: map[string][]string{},
		lored:     map[string][]string{},
		renamed:   map[string][]string{},
		modes:     map[string]structs.GameMode{},
	}
}

func (f *fakeHost) join(name string) *fakeSession {
	sess := &fakeSession{id: fmt.Sprintf("session-%d", len(f.sessions)), name: name}
	f.sessions = append(f.sessions, sess)
	return sess
}

func (f *fakeHost) requireMain(ctx context.Context) {
	f.t.Helper()
	if !pwnedcraft.IsMainContext(ctx) {
		f.t.Errorf("host mutation called outside the main loop")
	}
}

func (f *fakeHost) SessionByName(name string) (Session, bool) {
	for _, sess := range f.sessions {
		if strings.EqualFold(sess.name, name) {
			return sess, true
		}
	}
	return nil, false
}

func (f *fakeHost) Config() *structs.ServerConfig { return f.config }

func (f *fakeHost) RunOnMain(fun func(ctx context.Context)) {
	fun(pwnedcraft.MakeMainContext(context.Background()))
}

func (f *fakeHost) Broadcast(ctx context.Context, from Session, text string) {
	f.requireMain(ctx)
	f.broadcasts = append(f.broadcasts, fmt.Sprintf("%s: %s", from.Name(), text))
}

func (f *fakeHost) InjectCommand(from Session, line string) {
	f.injected = append(f.injected, fmt.Sprintf("%s: %s", from.Name(), line))
	f.console.HandleMessage(from, line)
}

func (f *fakeHost) Reload(ctx context.Context, what string) error {
	f.requireMain(ctx)
	f.reloaded = append(f.reloaded, what)
	return nil
}

func (f *fakeHost) Stop(ctx context.Context) error {
	f.requireMain(ctx)
	f.stopped = true
	return nil
}

func (f *fakeHost) WhitelistAdd(ctx context.Context, name string) error {
	f.requireMain(ctx)
	f.added = append(f.added, name)
	return nil
}

func (f *fakeHost) WhitelistRemove(ctx context.Context, name string) error {
	f.requireMain(ctx)
	f.removed = append(f.removed, name)
	return nil
}

func (f *fakeHost) SetMOTDLine(ctx context.Context, line int, text string) error {
	f.requireMain(ctx)
	f.motd[line] = text
	return nil
}

func (f *fakeHost) GiveItem(ctx context.Context, target Session, item structs.Item) error {
	f.requireMain(ctx)
	f.given[target.ID()] = append(f.given[target.ID()], item)
	return nil
}

func (f *fakeHost) EnchantHeldItem(ctx context.Context, target Session, enchantment string, level int) error {
	f.requireMain(ctx)
	f.enchanted[target.ID()] = append(f.enchanted[target.ID()], fmt.Sprintf("%s %d", enchantment, level))
	return nil
}

func (f *fakeHost) AddLoreToHeldItem(ctx context.Context, target Session, text string) error {
	f.requireMain(ctx)
	f.lored[target.ID()] = append(f.lored[target.ID()], text)
	return nil
}

func (f *fakeHost) RenameHeldItem(ctx context.Context, target Session, name string) error {
	f.requireMain(ctx)
	f.renamed[target.ID()] = append(f.renamed[target.ID()], name)
	return nil
}

func (f *fakeHost) SetGameMode(ctx context.Context, target Session, mode structs.GameMode) error {
	f.requireMain(ctx)
	f.modes[target.ID()] = mode
	return nil
}

func newTestConsole(t *testing.T) (*Console, *fakeHost) {
	t.Helper()
	host := newFakeHost(t)
	cons := New(Config{}, host)
	host.console = cons
	return cons, host
}

// mustTrust toggles a session trusted and clears the toggle reply.
func mustTrust(t *testing.T, cons *Console, sess *fakeSession) {
	t.Helper()
	if !cons.HandleMessage(sess, ">>pwned") {
		t.Fatalf("trust phrase was not consumed")
	}
	if got, want := sess.lastSent(t), "You are now trusted."; got != want {
		t.Fatalf("trust toggle replied %q, want %q", got, want)
	}
	sess.sent = nil
}

func TestTrustPhraseToggle(t *testing.T) {
	cons, host := newTestConsole(t)
	alice := host.join("alice")

	if !cons.HandleMessage(alice, ">>pwned") {
		t.Error("trust phrase passed through to chat")
	}
	if got, want := alice.lastSent(t), "You are now trusted."; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// The phrase is matched case insensitively and toggles back off.
	if !cons.HandleMessage(alice, ">>PWNED") {
		t.Error("trust phrase passed through to chat")
	}
	if got, want := alice.lastSent(t), "You are no longer trusted."; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if len(alice.sent) != 2 {
		t.Errorf("expected 2 replies, got %v", alice.sent)
	}
}

func TestTrustPhraseMatchesWholeLine(t *testing.T) {
	cons, host := newTestConsole(t)
	alice := host.join("alice")

	// Anything but the exact prefix+phrase line is not the toggle. For an
	// untrusted sender these flow on to chat.
	for _, line := range []string{">>pwned ", ">> pwned", ">>pwnedd", "pwned"} {
		if cons.HandleMessage(alice, line) {
			t.Errorf("%q was consumed, want pass through", line)
		}
	}
	if len(alice.sent) != 0 {
		t.Errorf("untrusted sender received %v", alice.sent)
	}

	// After the real toggle, ">>pwned " is an unknown command attempt.
	mustTrust(t, cons, alice)
	if !cons.HandleMessage(alice, ">>pwned ") {
		t.Error("trusted command line passed through to chat")
	}
	if got, want := alice.lastSent(t), `Unknown command: "pwned"`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPlainChatPassesThrough(t *testing.T) {
	cons, host := newTestConsole(t)
	alice := host.join("alice")

	if cons.HandleMessage(alice, "hello world") {
		t.Error("plain chat was consumed")
	}
	if cons.HandleMessage(alice, "pwned >>server stop") {
		t.Error("line without leading prefix was consumed")
	}
	if len(alice.sent) != 0 {
		t.Errorf("plain chat produced replies: %v", alice.sent)
	}
}

func TestUntrustedCommandPassesThrough(t *testing.T) {
	cons, host := newTestConsole(t)
	alice := host.join("alice")

	if cons.HandleMessage(alice, ">>server stop") {
		t.Error("untrusted command attempt was consumed")
	}
	if host.stopped {
		t.Error("untrusted command attempt reached the host")
	}
	if len(alice.sent) != 0 {
		t.Errorf("untrusted sender received %v", alice.sent)
	}
}

func TestRevokedTrustStopsDispatch(t *testing.T) {
	cons, host := newTestConsole(t)
	alice := host.join("alice")
	mustTrust(t, cons, alice)

	if !cons.HandleMessage(alice, ">>server reload") {
		t.Error("trusted command passed through to chat")
	}
	if diff := cmp.Diff([]string{"data"}, host.reloaded); diff != "" {
		t.Errorf("reload calls mismatch: %s", diff)
	}

	// Toggle trust off again: the same line now flows to chat.
	cons.HandleMessage(alice, ">>pwned")
	if cons.HandleMessage(alice, ">>server reload") {
		t.Error("revoked sender's command was consumed")
	}
	if len(host.reloaded) != 1 {
		t.Errorf("revoked sender reached the host: %v", host.reloaded)
	}
}

func TestSpyNotifications(t *testing.T) {
	cons, host := newTestConsole(t)
	alice := host.join("alice")
	bob := host.join("bob")
	watcher := host.join("watcher")
	cons.Observe(watcher)

	cons.HandleMessage(alice, ">>server stop")
	want := []string{"[spy] alice: >>server stop"}
	if diff := cmp.Diff(want, watcher.sent); diff != "" {
		t.Errorf("observer lines mismatch: %s", diff)
	}

	// Trusted dispatches are not unauthorized attempts.
	mustTrust(t, cons, alice)
	cons.HandleMessage(alice, ">>server reload")
	if diff := cmp.Diff(want, watcher.sent); diff != "" {
		t.Errorf("observer lines mismatch after trusted dispatch: %s", diff)
	}

	// Neither are plain chat lines or the trust phrase itself.
	cons.HandleMessage(bob, "hello")
	cons.HandleMessage(bob, ">>pwned")
	if diff := cmp.Diff(want, watcher.sent); diff != "" {
		t.Errorf("observer lines mismatch after chat and toggle: %s", diff)
	}

	cons.Unobserve(watcher.ID())
	cons.HandleMessage(host.join("carol"), ">>system os")
	if diff := cmp.Diff(want, watcher.sent); diff != "" {
		t.Errorf("observer still notified after Unobserve: %s", diff)
	}
}

func TestUnknownCommand(t *testing.T) {
	cons, host := newTestConsole(t)
	alice := host.join("alice")
	mustTrust(t, cons, alice)

	if !cons.HandleMessage(alice, ">>frobnicate now") {
		t.Error("unknown command passed through to chat")
	}
	if got, want := alice.lastSent(t), `Unknown command: "frobnicate"`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCommandTokenization(t *testing.T) {
	cons, host := newTestConsole(t)
	alice := host.join("alice")
	mustTrust(t, cons, alice)

	// Names match case insensitively and runs of whitespace separate words.
	if !cons.HandleMessage(alice, ">>  SERVER \t reload   whitelist") {
		t.Error("command passed through to chat")
	}
	if diff := cmp.Diff([]string{"whitelist"}, host.reloaded); diff != "" {
		t.Errorf("reload calls mismatch: %s", diff)
	}
	if got, want := alice.lastSent(t), "Reloaded whitelist."; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRegisterOverride(t *testing.T) {
	r := NewRegistry()
	first := &Handler{Name: "Watch", Run: func(inv *Invocation) error { return nil }}
	second := &Handler{Name: "watch", Run: func(inv *Invocation) error { return nil }}

	r.Register(first, "w")
	r.Register(second)

	h, found := r.Lookup("WATCH")
	if !found {
		t.Fatal("lookup failed after override")
	}
	if h != second {
		t.Error("later registration did not override the earlier one")
	}
	// The alias of the first registration survives.
	if h, found := r.Lookup("w"); !found || h != first {
		t.Error("alias of earlier registration was lost")
	}
}

func TestHandlerErrorReportedToSender(t *testing.T) {
	cons, host := newTestConsole(t)
	alice := host.join("alice")
	mustTrust(t, cons, alice)

	cons.registry.Register(&Handler{
		Name: "explode",
		Run: func(inv *Invocation) error {
			return fmt.Errorf("boom")
		},
	})
	if got := cons.Dispatch(alice, "explode", nil); got != Handled {
		t.Errorf("Dispatch() = %v, want Handled", got)
	}
	if got, want := alice.lastSent(t), "Error: boom"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDropForgetsDirectoryAndObserver(t *testing.T) {
	cons, host := newTestConsole(t)
	alice := host.join("alice")
	watcher := host.join("watcher")
	cons.Observe(watcher)
	mustTrust(t, cons, alice)

	dir := t.TempDir()
	cons.HandleMessage(alice, ">>system goto "+dir)
	if got := cons.dirs.CurrentOf(alice.ID()); got != dir {
		t.Fatalf("CurrentOf() = %q, want %q", got, dir)
	}

	cons.Drop(watcher.ID())
	cons.Drop(alice.ID())
	if got, want := cons.dirs.CurrentOf(alice.ID()), "."; got != want {
		t.Errorf("CurrentOf() after Drop = %q, want %q", got, want)
	}
	cons.HandleMessage(host.join("bob"), ">>server stop")
	if len(watcher.sent) != 0 {
		t.Errorf("dropped observer still notified: %v", watcher.sent)
	}

	// Trust survives a drop: only the toggle changes it.
	if !cons.HandleMessage(alice, ">>server reload") {
		t.Error("dropped session lost its trust")
	}
}
