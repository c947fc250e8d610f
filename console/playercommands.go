package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/NelminDev/PwnedCraft/structs"
)

func sudoHandler() *Handler {
	return &Handler{
		Name: "sudo",
		Run: func(inv *Invocation) error {
			if len(inv.Args) < 3 {
				inv.Reply("usage: sudo <player> <cmd|msg> <content...>")
				return nil
			}
			target, found := inv.Host().SessionByName(inv.Args[0])
			if !found {
				inv.Reply("No player named %q online.", inv.Args[0])
				return nil
			}
			content := strings.Join(inv.Args[2:], " ")
			switch strings.ToLower(inv.Args[1]) {
			case "cmd":
				line := content
				if !strings.HasPrefix(line, inv.console.config.Prefix) {
					line = inv.console.config.Prefix + line
				}
				inv.Host().InjectCommand(target, line)
				inv.Reply("Ran as %s: %s", target.Name(), line)
			case "msg":
				inv.Host().RunOnMain(func(ctx context.Context) {
					inv.Host().Broadcast(ctx, target, content)
				})
				inv.Reply("Sent as %s: %s", target.Name(), content)
			default:
				inv.Reply("usage: sudo <player> <cmd|msg> <content...>")
			}
			return nil
		},
	}
}

func gameModeHandler() *Handler {
	return &Handler{
		Name: "gamemode",
		Run: func(inv *Invocation) error {
			if len(inv.Args) < 1 || len(inv.Args) > 2 {
				inv.Reply("usage: gamemode <mode> [player]")
				return nil
			}
			mode, err := structs.ParseGameMode(inv.Args[0])
			if err != nil {
				inv.Reply("Error: %v. Modes are survival, creative, adventure, and spectator.", err)
				return nil
			}
			target := inv.Session
			if len(inv.Args) == 2 {
				named, found := inv.Host().SessionByName(inv.Args[1])
				if !found {
					inv.Reply("No player named %q online.", inv.Args[1])
					return nil
				}
				target = named
			}
			inv.Host().RunOnMain(func(ctx context.Context) {
				if err := inv.Host().SetGameMode(ctx, target, mode); err != nil {
					inv.Reply("Error: %v", err)
					return
				}
				if target.ID() == inv.Session.ID() {
					inv.Reply("Game mode set to %s.", mode)
					return
				}
				inv.Reply("Set %s's game mode to %s.", target.Name(), mode)
				target.Send(fmt.Sprintf("Your game mode is now %s.", mode))
			})
			return nil
		},
	}
}
