package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultPath is where the CLI keeps its identity.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".launchpad-identity.json"
	}
	return filepath.Join(home, ".launchpad", "identity.json")
}

// LoadOrCreate reads the identity at path, generating and saving a new one
// when the file is missing or unusable.
func LoadOrCreate(path string) (Identity, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		var id Identity
		if json.Unmarshal(raw, &id) == nil && id.Valid() {
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Identity{}, fmt.Errorf("read identity: %w", err)
	}

	id := New()
	if err := Save(path, id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Save writes id to path, creating parent directories.
func Save(path string, id Identity) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	raw, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}
