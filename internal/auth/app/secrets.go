package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/haulage/pkg/jwtx"
)

// ErrEphemeralInProduction is returned when production starts without
// configured signing secrets.
var ErrEphemeralInProduction = errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required in production")

// LoadSecrets decides where signing material comes from.
//
//   - Both secrets set: validated (length, distinct) and used in any mode.
//   - Production with either missing: startup fails.
//   - Otherwise with both missing: random secrets are generated for this
//     process only. Every token becomes invalid on restart.
//   - Exactly one set outside production: rejected as a likely typo.
func LoadSecrets(cfg Config, logger *slog.Logger) (jwtx.Secrets, error) {
	access, refresh := cfg.AccessSecret, cfg.RefreshSecret

	switch {
	case access != "" && refresh != "":
		secrets, err := jwtx.NewSecrets(access, refresh)
		if err != nil {
			return jwtx.Secrets{}, fmt.Errorf("signing secrets: %w", err)
		}
		logger.Info("signing secrets loaded from environment")
		return secrets, nil

	case cfg.IsProduction():
		return jwtx.Secrets{}, ErrEphemeralInProduction

	case access == "" && refresh == "":
		secrets, err := jwtx.NewEphemeralSecrets()
		if err != nil {
			return jwtx.Secrets{}, err
		}
		logger.Warn("using ephemeral signing secrets, tokens will not survive a restart",
			"env", cfg.Env)
		return secrets, nil

	default:
		return jwtx.Secrets{}, fmt.Errorf("signing secrets: %w: set both or neither", jwtx.ErrSecretMissing)
	}
}
