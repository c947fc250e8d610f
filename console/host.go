package console

import (
	"context"

	"github.com/pkg/errors"

	"github.com/NelminDev/PwnedCraft/structs"
)

// ErrTargetNotFound is returned by Host effects whose target session
// disconnected between dispatch and the main loop running the effect.
var ErrTargetNotFound = errors.New("target not found")

// Session is one connected user as the console sees it. Send is fire and
// forget: delivery failures are the host's problem, not the command's.
type Session interface {
	ID() string
	Name() string
	Send(line string)
}

// Host is the boundary to the game server embedding the console.
//
// A SessionByName miss doubles as the online check: only online sessions
// resolve. Methods taking a context mutate authoritative server state
// and must only be called with the context handed to a RunOnMain
// callback; reads go straight to Config(), which locks internally.
type Host interface {
	SessionByName(name string) (Session, bool)
	Config() *structs.ServerConfig

	// RunOnMain schedules f on the host's single authoritative loop and
	// returns without waiting for it. Calls submitted by one session run
	// in submission order, so a command can queue its effect and notify
	// the sender from inside the callback.
	RunOnMain(f func(ctx context.Context))

	// Broadcast delivers a chat line from a session to everyone online,
	// bypassing command interception.
	Broadcast(ctx context.Context, from Session, text string)
	// InjectCommand feeds a line into the inbound message path as if
	// from had typed it, interception included.
	InjectCommand(from Session, line string)

	Reload(ctx context.Context, what string) error
	Stop(ctx context.Context) error
	WhitelistAdd(ctx context.Context, name string) error
	WhitelistRemove(ctx context.Context, name string) error
	SetMOTDLine(ctx context.Context, line int, text string) error

	GiveItem(ctx context.Context, target Session, item structs.Item) error
	EnchantHeldItem(ctx context.Context, target Session, enchantment string, level int) error
	AddLoreToHeldItem(ctx context.Context, target Session, text string) error
	RenameHeldItem(ctx context.Context, target Session, name string) error

	SetGameMode(ctx context.Context, target Session, mode structs.GameMode) error
}
