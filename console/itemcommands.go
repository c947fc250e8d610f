package console

import (
	"context"
	"strconv"
	"strings"

	"github.com/NelminDev/PwnedCraft/lang"
	"github.com/NelminDev/PwnedCraft/structs"
)

type itemSubcommand struct {
	handler func(inv *Invocation, args []string) error
	help    string
}

var itemSubcommands = map[string]itemSubcommand{
	"give":    {handler: handleItemGive, help: "Give yourself an item (<material> [amount])"},
	"enchant": {handler: handleItemEnchant, help: "Enchant your held item (<name> <level>)"},
	"addlore": {handler: handleItemAddLore, help: "Add a lore line to your held item (<text...>)"},
	"rename":  {handler: handleItemRename, help: "Rename your held item (<name...>)"},
}

func itemHandler() *Handler {
	return &Handler{
		Name: "item",
		Run: func(inv *Invocation) error {
			if len(inv.Args) == 0 {
				printItemHelp(inv)
				return nil
			}
			sub, found := itemSubcommands[strings.ToLower(inv.Args[0])]
			if !found {
				printItemHelp(inv)
				return nil
			}
			return sub.handler(inv, inv.Args[1:])
		},
	}
}

func printItemHelp(inv *Invocation) {
	inv.Reply(`usage: item <subcommand>
  give <material> [amount]  Give yourself an item
  enchant <name> <level>    Enchant your held item
  addlore <text...>         Add a lore line to your held item
  rename <name...>          Rename your held item`)
}

func handleItemGive(inv *Invocation, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		inv.Reply("usage: item give <material> [amount]")
		return nil
	}
	material := strings.ToLower(args[0])
	amount := 1
	if len(args) == 2 {
		parsed, err := strconv.Atoi(args[1])
		if err != nil || parsed < 1 {
			inv.Reply("usage: item give <material> [amount]")
			return nil
		}
		amount = parsed
	}
	inv.Host().RunOnMain(func(ctx context.Context) {
		if err := inv.Host().GiveItem(ctx, inv.Session, structs.Item{Material: material, Amount: amount}); err != nil {
			inv.Reply("Error: %v", err)
			return
		}
		inv.Reply("You received %s.", lang.Card(amount, material))
	})
	return nil
}

func handleItemEnchant(inv *Invocation, args []string) error {
	if len(args) != 2 {
		inv.Reply("usage: item enchant <name> <level>")
		return nil
	}
	level, err := strconv.Atoi(args[1])
	if err != nil || level < 1 {
		inv.Reply("usage: item enchant <name> <level>")
		return nil
	}
	enchantment := strings.ToLower(args[0])
	inv.Host().RunOnMain(func(ctx context.Context) {
		if err := inv.Host().EnchantHeldItem(ctx, inv.Session, enchantment, level); err != nil {
			inv.Reply("Error: %v", err)
			return
		}
		inv.Reply("Enchanted your held item with %s %d.", enchantment, level)
	})
	return nil
}

func handleItemAddLore(inv *Invocation, args []string) error {
	if len(args) == 0 {
		inv.Reply("usage: item addlore <text...>")
		return nil
	}
	text := strings.Join(args, " ")
	inv.Host().RunOnMain(func(ctx context.Context) {
		if err := inv.Host().AddLoreToHeldItem(ctx, inv.Session, text); err != nil {
			inv.Reply("Error: %v", err)
			return
		}
		inv.Reply("Added lore to your held item.")
	})
	return nil
}

func handleItemRename(inv *Invocation, args []string) error {
	if len(args) == 0 {
		inv.Reply("usage: item rename <name...>")
		return nil
	}
	name := strings.Join(args, " ")
	inv.Host().RunOnMain(func(ctx context.Context) {
		if err := inv.Host().RenameHeldItem(ctx, inv.Session, name); err != nil {
			inv.Reply("Error: %v", err)
			return
		}
		inv.Reply("Renamed your held item to %q.", name)
	})
	return nil
}
