package console

import (
	"fmt"
	"os"
	"os/user"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rodaine/table"

	pwnedcraft "github.com/NelminDev/PwnedCraft"
	"github.com/NelminDev/PwnedCraft/lang"
	"github.com/NelminDev/PwnedCraft/vpath"
)

// systemSubcommand defines a system subcommand with its handler and help text.
type systemSubcommand struct {
	handler func(inv *Invocation, args []string) error
	help    string
}

var systemSubcommands = map[string]systemSubcommand{
	"os":   {handler: handleSystemOS, help: "Show the host operating system"},
	"usr":  {handler: handleSystemUsr, help: "Show the account the server runs as"},
	"ls":   {handler: handleSystemLs, help: "List a directory ([path])"},
	"goto": {handler: handleSystemGoto, help: "Change the working directory (<path>)"},
	"rm":   {handler: handleSystemRm, help: "Delete a file or directory (<path> [force])"},
	"mk":   {handler: handleSystemMk, help: "Create a file or directory (<file|dir> <path>)"},
	"write": {handler: handleSystemWrite,
		help: "Append a line of text to a file (<path> <text...>)"},
	"kv": {handler: handleSystemKv,
		help: "Set a key in a key=value file (<path> <key> <value>)"},
}

// The filesystem subcommands resolve each path argument exactly once and
// reuse the resolved string for both validation and the operation, so a
// racing filesystem can fail a command but never redirect it.
func systemHandler() *Handler {
	return &Handler{
		Name: "system",
		Run: func(inv *Invocation) error {
			if len(inv.Args) == 0 {
				printSystemHelp(inv)
				return nil
			}
			sub, found := systemSubcommands[strings.ToLower(inv.Args[0])]
			if !found {
				printSystemHelp(inv)
				return nil
			}
			return sub.handler(inv, inv.Args[1:])
		},
	}
}

func printSystemHelp(inv *Invocation) {
	inv.Reply(`usage: system <subcommand>
  os                       Show the host operating system
  usr                      Show the account the server runs as
  ls [path]                List a directory
  goto <path>              Change the working directory
  rm <path> [force]        Delete a file, or a directory (recursively with force=true)
  mk <file|dir> <path>     Create a file or directory
  write <path> <text...>   Append a line of text to a file
  kv <path> <key> <value>  Set a key in a key=value file`)
}

// resolvePath maps a path argument against the sender's working
// directory.
func resolvePath(inv *Invocation, expr string) string {
	return vpath.Resolve(expr, inv.Dirs().CurrentOf(inv.Session.ID()))
}

func handleSystemOS(inv *Invocation, _ []string) error {
	inv.Reply("%s/%s", runtime.GOOS, runtime.GOARCH)
	return nil
}

func handleSystemUsr(inv *Invocation, _ []string) error {
	current, err := user.Current()
	if err != nil {
		return pwnedcraft.WithStack(err)
	}
	hostname, err := os.Hostname()
	if err != nil {
		return pwnedcraft.WithStack(err)
	}
	inv.Reply("%s@%s", current.Username, hostname)
	return nil
}

func handleSystemLs(inv *Invocation, args []string) error {
	expr := "."
	if len(args) > 0 {
		expr = args[0]
	}
	path := resolvePath(inv, expr)
	entries, err := os.ReadDir(path)
	if err != nil {
		return pwnedcraft.WithStack(err)
	}
	if len(entries) == 0 {
		inv.Reply("%s is empty.", path)
		return nil
	}
	buf := &strings.Builder{}
	t := table.New("Name", "Type", "Size").WithWriter(buf)
	files, dirs := 0, 0
	for _, entry := range entries {
		if entry.IsDir() {
			dirs++
			t.AddRow(entry.Name(), "dir", "")
			continue
		}
		files++
		size := ""
		if info, err := entry.Info(); err == nil {
			size = strconv.FormatInt(info.Size(), 10)
		}
		t.AddRow(entry.Name(), "file", size)
	}
	t.Print()
	fmt.Fprintf(buf, "%s.", lang.Capitalize(lang.Enumerator{}.Do(lang.Card(dirs, "directory"), lang.Card(files, "file"))))
	inv.Reply("%s", buf.String())
	return nil
}

func handleSystemGoto(inv *Invocation, args []string) error {
	if len(args) != 1 {
		inv.Reply("usage: system goto <path>")
		return nil
	}
	target := resolvePath(inv, args[0])
	dir, err := inv.Dirs().Navigate(inv.Session.ID(), target)
	if err != nil {
		return err
	}
	inv.Reply("Now in %s.", dir)
	return nil
}

func handleSystemRm(inv *Invocation, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		inv.Reply("usage: system rm <path> [force]")
		return nil
	}
	force := false
	if len(args) == 2 {
		parsed, err := strconv.ParseBool(args[1])
		if err != nil {
			inv.Reply("usage: system rm <path> [force]")
			return nil
		}
		force = parsed
	}
	path := resolvePath(inv, args[0])
	stat, err := os.Stat(path)
	if err != nil {
		return pwnedcraft.WithStack(err)
	}
	if stat.IsDir() && !force {
		entries, err := os.ReadDir(path)
		if err != nil {
			return pwnedcraft.WithStack(err)
		}
		if len(entries) > 0 {
			inv.Reply("%s is not empty. Pass force=true to delete it recursively.", path)
			return nil
		}
	}
	if err := os.RemoveAll(path); err != nil {
		return pwnedcraft.WithStack(err)
	}
	inv.Reply("Deleted %s.", path)
	return nil
}

func handleSystemMk(inv *Invocation, args []string) error {
	if len(args) != 2 {
		inv.Reply("usage: system mk <file|dir> <path>")
		return nil
	}
	path := resolvePath(inv, args[1])
	switch strings.ToLower(args[0]) {
	case "file":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			return pwnedcraft.WithStack(err)
		}
		if err := f.Close(); err != nil {
			return pwnedcraft.WithStack(err)
		}
		inv.Reply("Created file %s.", path)
	case "dir":
		if err := os.MkdirAll(path, 0o755); err != nil {
			return pwnedcraft.WithStack(err)
		}
		inv.Reply("Created directory %s.", path)
	default:
		inv.Reply("usage: system mk <file|dir> <path>")
	}
	return nil
}

func handleSystemWrite(inv *Invocation, args []string) error {
	if len(args) < 2 {
		inv.Reply("usage: system write <path> <text...>")
		return nil
	}
	path := resolvePath(inv, args[0])
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return pwnedcraft.WithStack(err)
	}
	if _, err := fmt.Fprintln(f, strings.Join(args[1:], " ")); err != nil {
		f.Close()
		return pwnedcraft.WithStack(err)
	}
	if err := f.Close(); err != nil {
		return pwnedcraft.WithStack(err)
	}
	inv.Reply("Wrote to %s.", path)
	return nil
}

func handleSystemKv(inv *Invocation, args []string) error {
	if len(args) != 3 {
		inv.Reply("usage: system kv <path> <key> <value>")
		return nil
	}
	path := resolvePath(inv, args[0])
	key, value := args[1], args[2]
	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return pwnedcraft.WithStack(err)
	}
	if err := os.WriteFile(path, []byte(rewriteKeyValue(string(content), key, value)), 0o644); err != nil {
		return pwnedcraft.WithStack(err)
	}
	inv.Reply("Set %s=%s in %s.", key, value, path)
	return nil
}

// rewriteKeyValue replaces the value of key in a key=value file body, or
// appends the pair if the key never occurs. Every line whose text before
// the first "=" equals key is rewritten; other lines, their order, and a
// trailing newline are preserved.
func rewriteKeyValue(content string, key string, value string) string {
	pair := key + "=" + value
	if content == "" {
		return pair + "\n"
	}
	hadTrailingNewline := strings.HasSuffix(content, "\n")
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	found := false
	for i, line := range lines {
		if k, _, ok := strings.Cut(line, "="); ok && k == key {
			lines[i] = pair
			found = true
		}
	}
	if !found {
		lines = append(lines, pair)
	}
	result := strings.Join(lines, "\n")
	if hadTrailingNewline || !found {
		result += "\n"
	}
	return result
}
