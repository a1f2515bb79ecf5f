package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lanterne-launcher/lanterne/internal/audit"
	"github.com/lanterne-launcher/lanterne/internal/auth"
	"github.com/lanterne-launcher/lanterne/internal/config"
	"github.com/lanterne-launcher/lanterne/internal/crypt"
	"github.com/lanterne-launcher/lanterne/internal/storage"
)

// newManager wires a store-only manager from the user's config. The CLI
// never performs the interactive login itself, so no identity client is
// attached.
func newManager() (*auth.Manager, *config.Config, error) {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	mgr, err := buildManager(cfg)
	if err != nil {
		return nil, nil, err
	}
	return mgr, cfg, nil
}

func buildManager(cfg *config.Config) (*auth.Manager, error) {
	path := cfg.AccountsFile
	if path == "" {
		path = config.DefaultAccountsFile()
	}
	if path == "" {
		return nil, fmt.Errorf("cannot determine accounts file path")
	}

	var cipher crypt.Cipher = crypt.Disabled{}
	if cfg.EncryptEnabled() {
		cipher = crypt.NewSystemCipher()
	}

	opts := []auth.Option{}
	if cfg.ExpirySkew.Duration > 0 {
		opts = append(opts, auth.WithExpirySkew(cfg.ExpirySkew.Duration))
	}

	// The audit log lives next to the account store. Failing to open it is
	// not worth blocking account management over.
	if logger, err := openAuditLog(filepath.Dir(path)); err != nil {
		slog.Warn("audit log unavailable", "error", err)
	} else {
		opts = append(opts, auth.WithAudit(logger))
	}

	return auth.NewManager(storage.NewFile(path, cipher), nil, opts...), nil
}

func openAuditLog(dir string) (*audit.Logger, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return audit.NewLogger(filepath.Join(dir, "audit.log"))
}
