package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/authcore/pkg/crypto"
)

const tokenSecretBytes = 48

// ApplyRuntimeDefaults ensures the token secrets are populated even when no configuration file is supplied.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	secrets := []struct {
		key   string
		value *string
	}{
		{key: "auth.access.secret", value: &cfg.Auth.Access.Secret},
		{key: "auth.refresh.secret", value: &cfg.Auth.Refresh.Secret},
	}

	for _, s := range secrets {
		*s.value = strings.TrimSpace(*s.value)
		if *s.value != "" {
			continue
		}
		secret, err := crypto.GenerateToken(tokenSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", s.key, err)
		}
		*s.value = secret
		generated[s.key] = true
	}

	return generated, nil
}

// ValidateSecrets rejects configurations where access and refresh tokens
// would share a signing secret.
func ValidateSecrets(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	access := strings.TrimSpace(cfg.Auth.Access.Secret)
	refresh := strings.TrimSpace(cfg.Auth.Refresh.Secret)
	switch {
	case access == "":
		return errors.New("auth.access.secret must be configured")
	case refresh == "":
		return errors.New("auth.refresh.secret must be configured")
	case access == refresh:
		return errors.New("auth.access.secret and auth.refresh.secret must differ")
	}
	return nil
}
