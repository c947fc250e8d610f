package structs

// Item is a stack of virtual items carried by a player.
type Item struct {
	Material     string
	Amount       int
	Name         string
	Lore         []string
	Enchantments map[string]int
}

// DisplayName returns the custom name if the item has been renamed,
// otherwise the material name.
func (i *Item) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Material
}

// Enchant sets the level of one enchantment on the item.
func (i *Item) Enchant(name string, level int) {
	if i.Enchantments == nil {
		i.Enchantments = map[string]int{}
	}
	i.Enchantments[name] = level
}

// AddLore appends one line of lore text.
func (i *Item) AddLore(text string) {
	i.Lore = append(i.Lore, text)
}
