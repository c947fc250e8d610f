package server

import (
	"os"

	goccy "github.com/goccy/go-json"
	"github.com/pkg/errors"

	pwnedcraft "github.com/NelminDev/PwnedCraft"
	"github.com/NelminDev/PwnedCraft/structs"
)

const configFileName = "config.json"

// loadServerConfig reads the runtime config at path. A missing file is
// not an error: it yields a fresh default config that gets written on
// the first mutation.
func loadServerConfig(path string) (*structs.ServerConfig, error) {
	sc := structs.NewServerConfig()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return sc, nil
	} else if err != nil {
		return nil, pwnedcraft.WithStack(err)
	}
	if err := sc.UnmarshalJSON(b); err != nil {
		return nil, pwnedcraft.WithStack(err)
	}
	return sc, nil
}

// saveServerConfig writes the runtime config as indented JSON so it
// stays editable by hand.
func saveServerConfig(path string, sc *structs.ServerConfig) error {
	b, err := goccy.MarshalIndent(sc, "", "  ")
	if err != nil {
		return pwnedcraft.WithStack(err)
	}
	return pwnedcraft.WithStack(os.WriteFile(path, b, 0o644))
}
