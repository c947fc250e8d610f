package structs

import (
	"maps"
	"slices"
	"strings"
	"sync"

	goccy "github.com/goccy/go-json"
)

// PluginInfo describes one plugin installed on the server.
type PluginInfo struct {
	Name        string
	Version     string
	Authors     []string
	Description string
	Enabled     bool
}

// ServerConfig holds server-wide configuration with thread-safe access.
// All fields are private and accessed via getters/setters that handle locking.
type ServerConfig struct {
	mu               sync.RWMutex
	motd             [2]string
	whitelistEnabled bool
	whitelist        map[string]struct{}
	spies            map[string]struct{}
	plugins          []PluginInfo
}

// NewServerConfig creates a new ServerConfig with initialized sets.
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		whitelist: make(map[string]struct{}),
		spies:     make(map[string]struct{}),
	}
}

// MOTD returns both message-of-the-day lines.
func (c *ServerConfig) MOTD() [2]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.motd
}

// SetMOTDLine replaces one message-of-the-day line. line is 0 or 1;
// anything else is ignored.
func (c *ServerConfig) SetMOTDLine(line int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if line < 0 || line >= len(c.motd) {
		return
	}
	c.motd[line] = text
}

// WhitelistEnabled returns whether the whitelist is enforced at login.
func (c *ServerConfig) WhitelistEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.whitelistEnabled
}

// SetWhitelistEnabled turns whitelist enforcement on or off.
func (c *ServerConfig) SetWhitelistEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.whitelistEnabled = enabled
}

// AddWhitelisted puts a name on the whitelist. Names are folded to
// lower case, matching how account names compare.
func (c *ServerConfig) AddWhitelisted(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.whitelist == nil {
		c.whitelist = make(map[string]struct{})
	}
	c.whitelist[strings.ToLower(name)] = struct{}{}
}

// RemoveWhitelisted removes a name from the whitelist, reporting whether
// it was present.
func (c *ServerConfig) RemoveWhitelisted(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, found := c.whitelist[strings.ToLower(name)]
	delete(c.whitelist, strings.ToLower(name))
	return found
}

// IsWhitelisted checks whitelist membership for a name.
func (c *ServerConfig) IsWhitelisted(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, found := c.whitelist[strings.ToLower(name)]
	return found
}

// WhitelistSnapshot returns the whitelisted names, sorted.
func (c *ServerConfig) WhitelistSnapshot() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.whitelist))
}

// ReplaceWhitelist replaces the whole whitelist and its enforcement flag
// atomically.
func (c *ServerConfig) ReplaceWhitelist(names []string, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.whitelist = make(map[string]struct{}, len(names))
	for _, name := range names {
		c.whitelist[strings.ToLower(name)] = struct{}{}
	}
	c.whitelistEnabled = enabled
}

// AddSpy marks a name as an observer of unauthorized command attempts.
func (c *ServerConfig) AddSpy(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.spies == nil {
		c.spies = make(map[string]struct{})
	}
	c.spies[strings.ToLower(name)] = struct{}{}
}

// IsSpy checks whether a name is configured to observe unauthorized
// command attempts.
func (c *ServerConfig) IsSpy(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, found := c.spies[strings.ToLower(name)]
	return found
}

// SpiesSnapshot returns the configured spy names, sorted.
func (c *ServerConfig) SpiesSnapshot() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.spies))
}

// Plugins returns a copy of the plugin list.
func (c *ServerConfig) Plugins() []PluginInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.plugins)
}

// SetPlugins replaces the plugin list. Makes a defensive copy of the
// provided slice.
func (c *ServerConfig) SetPlugins(plugins []PluginInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plugins = slices.Clone(plugins)
}

// PluginNamed finds a plugin by name, case-insensitively.
func (c *ServerConfig) PluginNamed(name string) (PluginInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, plugin := range c.plugins {
		if strings.EqualFold(plugin.Name, name) {
			return plugin, true
		}
	}
	return PluginInfo{}, false
}

// serverConfigJSON is the JSON serialization format for ServerConfig.
// Used for persistence to the config file.
type serverConfigJSON struct {
	MOTD             [2]string
	WhitelistEnabled bool
	Whitelist        []string
	Spies            []string
	Plugins          []PluginInfo
}

// MarshalJSON implements json.Marshaler for ServerConfig.
func (c *ServerConfig) MarshalJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	j := serverConfigJSON{
		MOTD:             c.motd,
		WhitelistEnabled: c.whitelistEnabled,
		Whitelist:        slices.Sorted(maps.Keys(c.whitelist)),
		Spies:            slices.Sorted(maps.Keys(c.spies)),
		Plugins:          slices.Clone(c.plugins),
	}

	return goccy.Marshal(j)
}

// UnmarshalJSON implements json.Unmarshaler for ServerConfig.
func (c *ServerConfig) UnmarshalJSON(data []byte) error {
	var j serverConfigJSON
	if err := goccy.Unmarshal(data, &j); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.motd = j.MOTD
	c.whitelistEnabled = j.WhitelistEnabled
	c.whitelist = make(map[string]struct{}, len(j.Whitelist))
	for _, name := range j.Whitelist {
		c.whitelist[strings.ToLower(name)] = struct{}{}
	}
	c.spies = make(map[string]struct{}, len(j.Spies))
	for _, name := range j.Spies {
		c.spies[strings.ToLower(name)] = struct{}{}
	}
	c.plugins = j.Plugins

	return nil
}
