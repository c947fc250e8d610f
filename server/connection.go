package server

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/term"

	pwnedcraft "github.com/NelminDev/PwnedCraft"
	"github.com/NelminDev/PwnedCraft/lang"
	"github.com/NelminDev/PwnedCraft/storage"
	"github.com/NelminDev/PwnedCraft/structs"
)

var (
	ErrOperationAborted = fmt.Errorf("operation aborted")

	// validUsernameRE matches valid player names: 3-16 characters of
	// letters, numbers, or underscores.
	validUsernameRE = regexp.MustCompile(`^[a-zA-Z0-9_]{3,16}$`)
)

// InvalidUsernameError is returned when a username fails validation.
type InvalidUsernameError struct{}

func (e InvalidUsernameError) Error() string {
	return "Invalid username. Must be 3-16 characters of letters, numbers, or underscores."
}

func validateUsername(name string) error {
	if !validUsernameRE.MatchString(name) {
		return InvalidUsernameError{}
	}
	return nil
}

// Argon2id parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// hashPassword creates an Argon2id hash of the password.
// Returns the hash in PHC string format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func hashPassword(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// verifyPassword checks if the password matches the stored hash.
// Supports Argon2id hashes in PHC string format.
func verifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	hash := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(expectedHash)))
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1
}

// Connection is one SSH session, from handshake to disconnect. It
// doubles as the session the console sees once the user has logged in.
type Connection struct {
	server *Server
	sess   ssh.Session
	term   *term.Terminal
	user   *storage.User
	ctx    context.Context
	id     string

	// Game state below is only touched from the main loop.
	mode  structs.GameMode
	items []structs.Item
	held  int
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) Name() string {
	return c.user.Name
}

func (c *Connection) Send(line string) {
	fmt.Fprintln(c.term, line)
}

// give appends an item to the inventory and puts it in hand if the
// hand was empty.
func (c *Connection) give(item structs.Item) {
	c.items = append(c.items, item)
	if c.held < 0 {
		c.held = len(c.items) - 1
	}
}

func (c *Connection) heldItem() (*structs.Item, error) {
	if c.held < 0 || c.held >= len(c.items) {
		return nil, errors.New("no held item")
	}
	return &c.items[c.held], nil
}

func (c *Connection) SelectExec(options map[string]func() error) error {
	commandNames := make(sort.StringSlice, 0, len(options))
	for name := range options {
		commandNames = append(commandNames, name)
	}
	sort.Sort(commandNames)
	prompt := fmt.Sprintf("%s\n", lang.Enumerator{Pattern: "[%s]", Operator: "or"}.Do(commandNames...))
	for {
		fmt.Fprint(c.term, prompt)
		line, err := c.term.ReadLine()
		if err != nil {
			return pwnedcraft.WithStack(err)
		}
		if cmd, found := options[line]; found {
			if err := cmd(); err != nil {
				return pwnedcraft.WithStack(err)
			}
			break
		}
	}
	return nil
}

func (c *Connection) SelectReturn(prompt string, options []string) (string, error) {
	for {
		fmt.Fprintf(c.term, "%s [%s]\n", prompt, strings.Join(options, "/"))
		line, err := c.term.ReadLine()
		if err != nil {
			return "", pwnedcraft.WithStack(err)
		}
		for _, option := range options {
			if strings.EqualFold(line, option) {
				return option, nil
			}
		}
	}
}

func (c *Connection) Connect() error {
	for _, line := range c.server.settings.MOTD() {
		if line != "" {
			fmt.Fprintln(c.term, line)
		}
	}
	fmt.Fprint(c.term, "Welcome!\n\n")
	sel := func() error {
		return c.SelectExec(map[string]func() error{
			"login user":  c.loginUser,
			"create user": c.createUser,
		})
	}
	var err error
	for err = sel(); errors.Is(err, ErrOperationAborted); err = sel() {
	}
	if err != nil {
		return pwnedcraft.WithStack(err)
	}
	c.server.join(c)
	defer c.server.leave(c)
	return c.Process()
}

// checkWhitelist rejects names not on the whitelist while enforcement
// is on.
func (c *Connection) checkWhitelist(username string) error {
	if c.server.settings.WhitelistEnabled() && !c.server.settings.IsWhitelisted(username) {
		return errors.Errorf("%q is not whitelisted here.", username)
	}
	return nil
}

func (c *Connection) loginUser() error {
	fmt.Fprint(c.term, "** Login user **\n\n")
	for c.user == nil {
		fmt.Fprintln(c.term, "Enter username or [abort]:")
		username, err := c.term.ReadLine()
		if err != nil {
			return err
		}
		if username == "abort" {
			return pwnedcraft.WithStack(ErrOperationAborted)
		}
		if err := c.checkWhitelist(username); err != nil {
			fmt.Fprintln(c.term, err.Error())
			continue
		}

		// The limiter only delays names with recorded failures.
		c.server.limiter.waitIfNeeded(username, c.term)

		fmt.Fprint(c.term, "Enter password or [abort]:\n")
		password, err := c.term.ReadPassword("> ")
		if err != nil {
			return err
		}
		if password == "abort" {
			return pwnedcraft.WithStack(ErrOperationAborted)
		}

		user, err := c.server.storage.LoadUser(c.ctx, username)
		if errors.Is(err, os.ErrNotExist) {
			// Unknown usernames count as failed attempts too.
			c.server.limiter.recordFailure(username)
			fmt.Fprintln(c.term, "Invalid credentials!")
			continue
		} else if err != nil {
			return pwnedcraft.WithStack(err)
		}

		if !verifyPassword(password, user.PasswordHash) {
			c.server.limiter.recordFailure(user.Name)
			fmt.Fprintln(c.term, "Invalid credentials!")
		} else {
			c.server.limiter.clearFailure(user.Name)
			if err := c.server.storage.TouchLastLogin(c.ctx, user.Name, time.Now().UTC()); err != nil {
				// Log but don't fail the login over a bookkeeping column.
				log.Printf("Failed to update last login for user %s: %v", user.Name, err)
			}
			c.user = user
		}
	}
	fmt.Fprintf(c.term, "Welcome back, %v!\n\n", c.user.Name)
	return nil
}

func (c *Connection) createUser() error {
	fmt.Fprint(c.term, "** Create user **\n\n")
	var user *storage.User
	for user == nil {
		fmt.Fprint(c.term, "Enter new username or [abort]:\n")
		username, err := c.term.ReadLine()
		if err != nil {
			return err
		}
		if username == "abort" {
			return pwnedcraft.WithStack(ErrOperationAborted)
		}
		if err := validateUsername(username); err != nil {
			fmt.Fprintln(c.term, err.Error())
			continue
		}
		if err := c.checkWhitelist(username); err != nil {
			fmt.Fprintln(c.term, err.Error())
			continue
		}
		if exists, err := c.server.storage.UserExists(c.ctx, username); err != nil {
			return pwnedcraft.WithStack(err)
		} else if exists {
			fmt.Fprintln(c.term, "Username already exists!")
		} else {
			user = &storage.User{
				ID:   uuid.NewString(),
				Name: username,
			}
		}
	}
	for c.user == nil {
		fmt.Fprintln(c.term, "Enter new password:")
		password, err := c.term.ReadPassword("> ")
		if err != nil {
			return err
		}
		if password == "abort" {
			fmt.Fprintln(c.term, "Password cannot be 'abort' (reserved keyword).")
			continue
		}
		fmt.Fprintln(c.term, "Repeat new password:")
		verification, err := c.term.ReadPassword("> ")
		if err != nil {
			return err
		}
		if password == verification {
			selection, err := c.SelectReturn(fmt.Sprintf("Create user %q with provided password?", user.Name), []string{"y", "n", "abort"})
			if err != nil {
				return err
			}
			switch selection {
			case "abort":
				return pwnedcraft.WithStack(ErrOperationAborted)
			case "y":
				hash, err := hashPassword(password)
				if err != nil {
					return pwnedcraft.WithStack(err)
				}
				user.PasswordHash = hash
				c.user = user
			}
		} else {
			fmt.Fprintln(c.term, "Passwords don't match!")
		}
	}
	now := time.Now().UTC().Unix()
	c.user.CreatedAt = now
	c.user.LastLogin = now
	if err := c.server.storage.StoreUser(c.ctx, c.user, false); err != nil {
		return pwnedcraft.WithStack(err)
	}
	fmt.Fprintf(c.term, "Welcome %s!\n\n", c.user.Name)
	return nil
}

// Process reads chat lines until the connection drops. Every non-blank
// line goes through the inbound path, where the console gets first
// refusal before the line is broadcast as chat.
func (c *Connection) Process() error {
	if c.user == nil {
		return errors.New("can't process without user")
	}
	for {
		line, err := c.term.ReadLine()
		if err != nil {
			return pwnedcraft.WithStack(err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		c.server.handleInbound(c, line)
	}
}
