// Package credentials manages the bearer token used to authenticate
// against the conseil backend. The token lives in credentials.toml in the
// .conseil/ directory, written with 0600 permissions, and is injected into
// requests by pkg/backend — never read from process-wide state.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/conseilapp/conseil/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// Credentials is the on-disk credentials.toml layout.
type Credentials struct {
	Version int               `toml:"version"`
	Backend BackendCredential `toml:"backend"`
}

// BackendCredential holds the token for the assistant backend.
type BackendCredential struct {
	Token string `toml:"token,omitempty"`
}

// Manager manages reading and writing credentials.toml in the .conseil/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it
// is used as the .conseil/ directory; otherwise the standard dotdir
// resolution applies.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{}
	mgr.ddm = dotdir.NewManager()

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{Version: currentVersion}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetToken stores the backend bearer token.
func (m *Manager) SetToken(token string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Version = currentVersion
	creds.Backend.Token = token

	return m.Save(creds)
}

// Token returns the stored backend token, or "" when none is stored.
func (m *Manager) Token() (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Backend.Token, nil
}

// Clear removes the stored backend token.
func (m *Manager) Clear() error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Backend.Token = ""

	return m.Save(creds)
}
