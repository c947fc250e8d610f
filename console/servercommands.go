package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rodaine/table"

	"github.com/NelminDev/PwnedCraft/lang"
)

// serverSubcommand defines a server subcommand with its handler and help text.
type serverSubcommand struct {
	handler func(inv *Invocation, args []string) error
	help    string
}

var serverSubcommands = map[string]serverSubcommand{
	"reload":    {handler: handleServerReload, help: "Reload server data from disk (what: data|whitelist)"},
	"stop":      {handler: handleServerStop, help: "Shut the server down"},
	"whitelist": {handler: handleServerWhitelist, help: "Manage the whitelist (add|remove|rm <name>)"},
	"motd":      {handler: handleServerMOTD, help: "Replace a message-of-the-day line (<1|2> <text...>)"},
	"plugins":   {handler: handleServerPlugins, help: "List installed plugins"},
	"plugin":    {handler: handleServerPlugin, help: "Show details for one plugin (<name>)"},
}

func serverHandler() *Handler {
	return &Handler{
		Name: "server",
		Run: func(inv *Invocation) error {
			if len(inv.Args) == 0 {
				printServerHelp(inv)
				return nil
			}
			sub, found := serverSubcommands[strings.ToLower(inv.Args[0])]
			if !found {
				printServerHelp(inv)
				return nil
			}
			return sub.handler(inv, inv.Args[1:])
		},
	}
}

func printServerHelp(inv *Invocation) {
	inv.Reply(`usage: server <subcommand>
  reload [data|whitelist]           Reload server data from disk
  stop                              Shut the server down
  whitelist <add|remove|rm> <name>  Manage the whitelist
  motd <1|2> <text...>              Replace a message-of-the-day line
  plugins                           List installed plugins
  plugin <name>                     Show details for one plugin`)
}

func handleServerReload(inv *Invocation, args []string) error {
	what := "data"
	if len(args) > 0 {
		what = strings.ToLower(args[0])
	}
	if what != "data" && what != "whitelist" {
		inv.Reply("usage: server reload [data|whitelist]")
		return nil
	}
	inv.Host().RunOnMain(func(ctx context.Context) {
		if err := inv.Host().Reload(ctx, what); err != nil {
			inv.Reply("Error: %v", err)
			return
		}
		inv.Reply("Reloaded %s.", what)
	})
	return nil
}

func handleServerStop(inv *Invocation, _ []string) error {
	inv.Reply("Stopping server.")
	inv.Host().RunOnMain(func(ctx context.Context) {
		if err := inv.Host().Stop(ctx); err != nil {
			inv.Reply("Error: %v", err)
		}
	})
	return nil
}

func handleServerWhitelist(inv *Invocation, args []string) error {
	if len(args) != 2 {
		inv.Reply("usage: server whitelist <add|remove|rm> <name>")
		return nil
	}
	name := args[1]
	switch strings.ToLower(args[0]) {
	case "add":
		inv.Host().RunOnMain(func(ctx context.Context) {
			if err := inv.Host().WhitelistAdd(ctx, name); err != nil {
				inv.Reply("Error: %v", err)
				return
			}
			inv.Reply("Whitelisted %q.", name)
		})
	case "remove", "rm":
		inv.Host().RunOnMain(func(ctx context.Context) {
			if err := inv.Host().WhitelistRemove(ctx, name); err != nil {
				inv.Reply("Error: %v", err)
				return
			}
			inv.Reply("Removed %q from the whitelist.", name)
		})
	default:
		inv.Reply("usage: server whitelist <add|remove|rm> <name>")
	}
	return nil
}

func handleServerMOTD(inv *Invocation, args []string) error {
	if len(args) < 2 {
		inv.Reply("usage: server motd <1|2> <text...>")
		return nil
	}
	line, err := strconv.Atoi(args[0])
	if err != nil || line < 1 || line > 2 {
		inv.Reply("usage: server motd <1|2> <text...>")
		return nil
	}
	text := strings.Join(args[1:], " ")
	inv.Host().RunOnMain(func(ctx context.Context) {
		if err := inv.Host().SetMOTDLine(ctx, line-1, text); err != nil {
			inv.Reply("Error: %v", err)
			return
		}
		inv.Reply("MOTD line %d set.", line)
	})
	return nil
}

func handleServerPlugins(inv *Invocation, _ []string) error {
	plugins := inv.Host().Config().Plugins()
	if len(plugins) == 0 {
		inv.Reply("No plugins installed.")
		return nil
	}
	buf := &strings.Builder{}
	t := table.New("Plugin", "Version", "Enabled").WithWriter(buf)
	for _, plugin := range plugins {
		t.AddRow(plugin.Name, plugin.Version, plugin.Enabled)
	}
	t.Print()
	fmt.Fprintf(buf, "%s installed.", lang.Capitalize(lang.Card(len(plugins), "plugin")))
	inv.Reply("%s", buf.String())
	return nil
}

func handleServerPlugin(inv *Invocation, args []string) error {
	if len(args) != 1 {
		inv.Reply("usage: server plugin <name>")
		return nil
	}
	plugin, found := inv.Host().Config().PluginNamed(args[0])
	if !found {
		inv.Reply("No plugin named %q.", args[0])
		return nil
	}
	buf := &strings.Builder{}
	fmt.Fprintf(buf, "%s %s\n", plugin.Name, plugin.Version)
	if len(plugin.Authors) > 0 {
		fmt.Fprintf(buf, "By %s\n", lang.Enumerator{}.Do(plugin.Authors...))
	}
	if plugin.Description != "" {
		fmt.Fprintln(buf, plugin.Description)
	}
	if plugin.Enabled {
		fmt.Fprint(buf, "Enabled")
	} else {
		fmt.Fprint(buf, "Disabled")
	}
	inv.Reply("%s", buf.String())
	return nil
}
