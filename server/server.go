package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/gliderlabs/ssh"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/term"

	pwnedcraft "github.com/NelminDev/PwnedCraft"
	"github.com/NelminDev/PwnedCraft/console"
	"github.com/NelminDev/PwnedCraft/pemfile"
	"github.com/NelminDev/PwnedCraft/storage"
	"github.com/NelminDev/PwnedCraft/structs"
)

type Config struct {
	SSHAddr string
	Dir     string
}

func DefaultConfig() Config {
	return Config{
		SSHAddr: "127.0.0.1:15000",
		Dir:     filepath.Join(os.Getenv("HOME"), ".pwnedcraft"),
	}
}

// Server accepts SSH sessions, runs the login flow on each, and routes
// chat lines between connections. It is the console's host: every
// console command bottoms out in one of the methods below.
type Server struct {
	config   Config
	settings *structs.ServerConfig

	storage *storage.Storage
	console *console.Console
	loop    *mainLoop
	limiter *loginRateLimiter
	fanout  *Fanout

	connections *pwnedcraft.SyncMap[string, *Connection]

	ssh *ssh.Server
}

func New(config Config) (*Server, error) {
	if err := os.MkdirAll(config.Dir, 0o700); err != nil {
		return nil, pwnedcraft.WithStack(err)
	}
	settings, err := loadServerConfig(filepath.Join(config.Dir, configFileName))
	if err != nil {
		return nil, err
	}
	s := &Server{
		config:      config,
		settings:    settings,
		loop:        newMainLoop(),
		limiter:     newLoginRateLimiter(loginAttemptInterval),
		fanout:      NewFanout(),
		connections: pwnedcraft.NewSyncMap[string, *Connection](),
	}
	s.console = console.New(console.DefaultConfig(), s)
	return s, nil
}

func (s *Server) configPath() string {
	return filepath.Join(s.config.Dir, configFileName)
}

// Start listens on the configured address and serves until the context
// is cancelled or the server is stopped from the console.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.SSHAddr)
	if err != nil {
		return pwnedcraft.WithStack(err)
	}
	return s.Serve(ctx, ln)
}

// Serve opens storage, ensures the host key, and serves SSH on an
// already-open listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	store, err := storage.New(ctx, s.config.Dir)
	if err != nil {
		return err
	}
	s.storage = store
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("closing storage: %v", err)
		}
	}()

	pemBytes, err := pemfile.KeyParams{
		KeyPath:       filepath.Join(s.config.Dir, "host_key.pem"),
		SSHPubKeyPath: filepath.Join(s.config.Dir, "host_key.pub"),
	}.Ensure()
	if err != nil {
		return err
	}
	signer, err := gossh.ParsePrivateKey(pemBytes)
	if err != nil {
		return pwnedcraft.WithStack(err)
	}

	go func() {
		if err := s.loop.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("main loop: %v", err)
		}
	}()
	defer s.loop.Close()

	s.ssh = &ssh.Server{
		Handler: s.HandleSession,
	}
	if err := s.ssh.SetOption(ssh.HostKeyPEM(pemBytes)); err != nil {
		return pwnedcraft.WithStack(err)
	}
	go func() {
		<-ctx.Done()
		s.ssh.Close()
	}()

	log.Printf("Serving SSH on %q with host key %s", ln.Addr().String(), gossh.FingerprintSHA256(signer.PublicKey()))
	if err := s.ssh.Serve(ln); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return pwnedcraft.WithStack(err)
	}
	return nil
}

func (s *Server) HandleSession(sess ssh.Session) {
	conn := &Connection{
		server: s,
		sess:   sess,
		term:   term.NewTerminal(sess, "> "),
		ctx:    sess.Context(),
		id:     uuid.NewString(),
		held:   -1,
	}
	if err := conn.Connect(); err != nil {
		if !errors.Is(err, io.EOF) {
			fmt.Fprintf(conn.term, "InternalServerError: %v\n", err)
			log.Println(err)
			log.Println(pwnedcraft.StackTrace(err))
		}
	}
}

// join makes a logged-in connection visible to chat and the console.
func (s *Server) join(c *Connection) {
	c.mode = c.user.GameMode
	s.connections.Set(c.id, c)
	s.fanout.Push(c.term)
	if s.settings.IsSpy(c.user.Name) {
		s.console.Observe(c)
	}
	fmt.Fprintf(s.fanout, "%s joined.\n", c.user.Name)
	log.Printf("%s logged in from %s", c.user.Name, c.sess.RemoteAddr())
}

func (s *Server) leave(c *Connection) {
	s.connections.Del(c.id)
	s.fanout.Drop(c.term)
	s.console.Drop(c.id)
	fmt.Fprintf(s.fanout, "%s left.\n", c.user.Name)
	log.Printf("%s disconnected", c.user.Name)
}

// handleInbound gives the console first refusal on a line; uncancelled
// lines are broadcast as chat.
func (s *Server) handleInbound(sess console.Session, line string) {
	if s.console.HandleMessage(sess, line) {
		return
	}
	fmt.Fprintf(s.fanout, "<%s> %s\n", sess.Name(), line)
}

func (s *Server) SessionByName(name string) (console.Session, bool) {
	for conn := range s.connections.Values() {
		if strings.EqualFold(conn.Name(), name) {
			return conn, true
		}
	}
	return nil, false
}

func (s *Server) Config() *structs.ServerConfig {
	return s.settings
}

func (s *Server) RunOnMain(f func(ctx context.Context)) {
	s.loop.Submit(f)
}

func (s *Server) Broadcast(ctx context.Context, from console.Session, text string) {
	fmt.Fprintf(s.fanout, "<%s> %s\n", from.Name(), text)
}

func (s *Server) InjectCommand(from console.Session, line string) {
	s.handleInbound(from, line)
}

func (s *Server) Reload(ctx context.Context, what string) error {
	switch what {
	case "whitelist":
		loaded, err := loadServerConfig(s.configPath())
		if err != nil {
			return err
		}
		s.settings.ReplaceWhitelist(loaded.WhitelistSnapshot(), loaded.WhitelistEnabled())
	default:
		b, err := os.ReadFile(s.configPath())
		if errors.Is(err, os.ErrNotExist) {
			return errors.Errorf("no config at %q", s.configPath())
		} else if err != nil {
			return pwnedcraft.WithStack(err)
		}
		if err := s.settings.UnmarshalJSON(b); err != nil {
			return pwnedcraft.WithStack(err)
		}
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	fmt.Fprintln(s.fanout, "Server stopping.")
	return pwnedcraft.WithStack(s.ssh.Close())
}

func (s *Server) WhitelistAdd(ctx context.Context, name string) error {
	s.settings.AddWhitelisted(name)
	return saveServerConfig(s.configPath(), s.settings)
}

func (s *Server) WhitelistRemove(ctx context.Context, name string) error {
	if !s.settings.RemoveWhitelisted(name) {
		return errors.Errorf("%q is not whitelisted", name)
	}
	return saveServerConfig(s.configPath(), s.settings)
}

func (s *Server) SetMOTDLine(ctx context.Context, line int, text string) error {
	s.settings.SetMOTDLine(line, text)
	return saveServerConfig(s.configPath(), s.settings)
}

// connection re-resolves a session to its live connection. Commands
// queue their effects on the main loop, so the target can be gone by
// the time the effect runs.
func (s *Server) connection(target console.Session) (*Connection, error) {
	conn, found := s.connections.GetHas(target.ID())
	if !found {
		return nil, errors.Wrapf(console.ErrTargetNotFound, "%q", target.Name())
	}
	return conn, nil
}

func (s *Server) GiveItem(ctx context.Context, target console.Session, item structs.Item) error {
	conn, err := s.connection(target)
	if err != nil {
		return err
	}
	conn.give(item)
	return nil
}

func (s *Server) EnchantHeldItem(ctx context.Context, target console.Session, enchantment string, level int) error {
	conn, err := s.connection(target)
	if err != nil {
		return err
	}
	held, err := conn.heldItem()
	if err != nil {
		return err
	}
	held.Enchant(enchantment, level)
	return nil
}

func (s *Server) AddLoreToHeldItem(ctx context.Context, target console.Session, text string) error {
	conn, err := s.connection(target)
	if err != nil {
		return err
	}
	held, err := conn.heldItem()
	if err != nil {
		return err
	}
	held.AddLore(text)
	return nil
}

func (s *Server) RenameHeldItem(ctx context.Context, target console.Session, name string) error {
	conn, err := s.connection(target)
	if err != nil {
		return err
	}
	held, err := conn.heldItem()
	if err != nil {
		return err
	}
	held.Name = name
	return nil
}

func (s *Server) SetGameMode(ctx context.Context, target console.Session, mode structs.GameMode) error {
	conn, err := s.connection(target)
	if err != nil {
		return err
	}
	if err := s.storage.SetGameMode(ctx, conn.user.Name, mode); err != nil {
		return err
	}
	conn.mode = mode
	return nil
}
