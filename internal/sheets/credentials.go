package sheets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// SecretsSection is the table of the secrets file holding the service
// account.
const SecretsSection = "gcp_service_account"

// CredentialSource locates service account credentials. The secrets file
// (TOML, with a [gcp_service_account] table) wins over the plain JSON key
// file.
type CredentialSource struct {
	SecretsFile     string
	CredentialsFile string
}

// Credentials is a resolved service account key.
type Credentials struct {
	JSON        []byte
	ClientEmail string
	Origin      string // file the key was read from
}

type serviceAccount struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// Resolve returns the first usable credentials, or ErrNoCredentials.
func (c CredentialSource) Resolve() (*Credentials, error) {
	if c.SecretsFile != "" {
		creds, err := fromSecrets(c.SecretsFile)
		if err != nil {
			return nil, err
		}
		if creds != nil {
			return creds, nil
		}
	}

	if c.CredentialsFile != "" {
		// #nosec G304 - path comes from configuration
		data, err := os.ReadFile(c.CredentialsFile)
		if err == nil {
			return parseKey(data, c.CredentialsFile)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	}

	return nil, ErrNoCredentials
}

// fromSecrets returns nil, nil when the file or the section is absent.
func fromSecrets(path string) (*Credentials, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat secrets file: %w", err)
	}

	var secrets map[string]any
	if _, err := toml.DecodeFile(path, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse secrets file %s: %w", path, err)
	}
	section, ok := secrets[SecretsSection].(map[string]any)
	if !ok {
		return nil, nil
	}
	data, err := json.Marshal(section)
	if err != nil {
		return nil, fmt.Errorf("failed to encode service account from %s: %w", path, err)
	}
	return parseKey(data, path)
}

func parseKey(data []byte, origin string) (*Credentials, error) {
	var sa serviceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("invalid service account key in %s: %w", origin, err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("service account key in %s lacks client_email or private_key", origin)
	}
	return &Credentials{JSON: data, ClientEmail: sa.ClientEmail, Origin: origin}, nil
}
