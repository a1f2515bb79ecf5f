// Package auth manages the account store and the token lifecycle: who is
// signed in, when a cached access token must be refreshed, and when the
// user has to go through the interactive login again.
//
// Every operation is a full load-mutate-save cycle over the backing file;
// no store state is held in memory between calls. Operations are atomic
// with respect to file content but not with respect to concurrent callers:
// two overlapping operations race load-modify-save and the last writer
// wins. Acceptable for a single-user desktop launcher.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lanterne-launcher/lanterne/internal/account"
	"github.com/lanterne-launcher/lanterne/internal/audit"
	"github.com/lanterne-launcher/lanterne/internal/msa"
	"github.com/lanterne-launcher/lanterne/internal/storage"
)

// DefaultExpirySkew is the safety margin subtracted from a token's expiry
// before deciding a refresh is needed, so a token never expires mid-request.
const DefaultExpirySkew = 2 * time.Minute

// Manager is the account repository and token lifecycle manager.
type Manager struct {
	file   *storage.File
	client msa.Client
	skew   time.Duration
	now    func() time.Time
	logger *slog.Logger
	audit  *audit.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithExpirySkew overrides the refresh safety margin.
func WithExpirySkew(skew time.Duration) Option {
	return func(m *Manager) { m.skew = skew }
}

// WithClock overrides the wall clock, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger overrides the default component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithAudit enables audit logging of account operations.
func WithAudit(logger *audit.Logger) Option {
	return func(m *Manager) { m.audit = logger }
}

// NewManager creates a manager over the given store file. The client may be
// nil for store-only use (listing, selection, removal); Login and the
// refresh operations then fail.
func NewManager(file *storage.File, client msa.Client, opts ...Option) *Manager {
	m := &Manager{
		file:   file,
		client: client,
		skew:   DefaultExpirySkew,
		now:    time.Now,
		logger: slog.With("component", "auth"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login runs the interactive login through the identity client and, when
// persist is set, saves the result as the active account.
func (m *Manager) Login(ctx context.Context, persist bool) (*account.Authenticator, error) {
	if m.client == nil {
		return nil, errors.New("no identity client configured")
	}

	raw, err := m.client.Login(ctx)
	if err != nil {
		return nil, m.classifyLoginError(err)
	}

	acct, err := account.Normalize(raw)
	if err != nil {
		return nil, err
	}

	if persist {
		if err := m.persistAccount(acct, true); err != nil {
			return nil, err
		}
	}
	m.auditLog(audit.ActionLogin, acct.UUID, acct.Username, nil)
	m.logger.Info("login completed", "uuid", acct.UUID, "name", acct.Username)
	return acct.Authenticator(), nil
}

// RefreshIfNeeded returns the account's identity-client view, refreshing
// the token first when it is expired or inside the skew window. With a nil
// account the active one is used.
func (m *Manager) RefreshIfNeeded(ctx context.Context, acct *account.Account, persist bool) (*account.Authenticator, error) {
	acct, err := m.resolveAccount(acct)
	if err != nil {
		return nil, err
	}

	if !acct.NeedsRefresh(m.now(), m.skew) {
		return acct.Authenticator(), nil
	}
	m.logger.Debug("access token stale, refreshing", "uuid", acct.UUID)
	return m.RefreshToken(ctx, acct, persist)
}

// RefreshToken exchanges the account's refresh token for a new bundle.
// A transport failure or provider-flagged network error leaves the stored
// account untouched so the call can be retried. Any other provider
// rejection evicts the account (when persist is set) and reports that a
// new interactive login is required.
func (m *Manager) RefreshToken(ctx context.Context, acct *account.Account, persist bool) (*account.Authenticator, error) {
	acct, err := m.resolveAccount(acct)
	if err != nil {
		return nil, err
	}
	if m.client == nil {
		return nil, errors.New("no identity client configured")
	}

	raw, err := m.client.Refresh(ctx, acct.Authenticator())
	if err != nil {
		var provider *msa.ProviderError
		if errors.As(err, &provider) && !provider.Network() {
			if persist {
				if clearErr := m.removeAccount(acct.UUID, audit.ActionEvict, err); clearErr != nil {
					return nil, clearErr
				}
			}
			m.logger.Warn("refresh rejected, account evicted", "uuid", acct.UUID, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrReloginRequired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	refreshed, err := account.Normalize(raw)
	if err != nil {
		return nil, err
	}

	if persist {
		if err := m.persistAccount(refreshed, true); err != nil {
			return nil, err
		}
	}
	m.auditLog(audit.ActionRefresh, refreshed.UUID, refreshed.Username, nil)
	return refreshed.Authenticator(), nil
}

// SaveAccount normalizes and upserts a candidate account. It becomes
// active when setActive is true or when no account is active yet.
func (m *Manager) SaveAccount(raw *account.Raw, setActive bool) (*account.Account, error) {
	acct, err := account.Normalize(raw)
	if err != nil {
		return nil, err
	}
	if err := m.persistAccount(acct, setActive); err != nil {
		return nil, err
	}
	return acct, nil
}

// LoadAccount returns the active account, the first account when the
// active pointer is stale, or nil for an empty store.
func (m *Manager) LoadAccount() (*account.Account, error) {
	store, err := m.file.Load()
	if err != nil {
		return nil, err
	}
	active := store.Active()
	if active == nil {
		return nil, nil
	}
	cp := *active
	return &cp, nil
}

// ListAccounts returns the public projection of every stored account.
// Token material is never exposed through this call.
func (m *Manager) ListAccounts() ([]account.Public, error) {
	store, err := m.file.Load()
	if err != nil {
		return nil, err
	}
	listed := make([]account.Public, 0, len(store.Accounts))
	for i := range store.Accounts {
		listed = append(listed, store.Accounts[i].Public())
	}
	return listed, nil
}

// SelectAccount makes the account with the given uuid active.
func (m *Manager) SelectAccount(uuid string) (*account.Account, error) {
	if uuid == "" {
		return nil, fmt.Errorf("%w: missing uuid", account.ErrInvalidData)
	}

	store, err := m.file.Load()
	if err != nil {
		return nil, err
	}
	acct := store.Find(uuid)
	if acct == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, uuid)
	}

	store.Upsert(acct, true)
	if _, err := m.file.Save(store); err != nil {
		return nil, err
	}
	m.auditLog(audit.ActionSelect, acct.UUID, acct.Username, nil)
	cp := *acct
	return &cp, nil
}

// ClearAccount removes one account, the active one when uuid is empty.
// Removing the last account deletes the backing file.
func (m *Manager) ClearAccount(uuid string) error {
	return m.removeAccount(uuid, audit.ActionRemove, nil)
}

// ClearAll deletes the backing file and every stored account with it.
func (m *Manager) ClearAll() error {
	if err := m.file.Clear(); err != nil {
		return err
	}
	m.auditLog(audit.ActionClear, "", "", nil)
	return nil
}

// resolveAccount returns the given account or falls back to the active one.
func (m *Manager) resolveAccount(acct *account.Account) (*account.Account, error) {
	if acct != nil {
		return acct, nil
	}
	acct, err := m.LoadAccount()
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrAuthRequired
	}
	return acct, nil
}

// persistAccount runs one load-upsert-save cycle.
func (m *Manager) persistAccount(acct *account.Account, setActive bool) error {
	store, err := m.file.Load()
	if err != nil {
		return err
	}
	store.Upsert(acct, setActive)
	_, err = m.file.Save(store)
	return err
}

// removeAccount removes one account, recording the action (removal or
// eviction) in the audit log. An empty uuid targets the active account.
func (m *Manager) removeAccount(uuid string, action audit.Action, cause error) error {
	store, err := m.file.Load()
	if err != nil {
		return err
	}
	if len(store.Accounts) == 0 {
		return nil
	}

	if uuid == "" {
		if store.ActiveUUID == nil {
			return m.ClearAll()
		}
		uuid = *store.ActiveUUID
	}

	name := ""
	if acct := store.Find(uuid); acct != nil {
		name = acct.Username
	}

	store.Remove(uuid)
	if len(store.Accounts) == 0 {
		if err := m.file.Clear(); err != nil {
			return err
		}
		m.auditLog(action, uuid, name, cause)
		return nil
	}

	if _, err := m.file.Save(store); err != nil {
		return err
	}
	m.auditLog(action, uuid, name, cause)
	return nil
}

// classifyLoginError maps an identity client login failure onto the closed
// error set.
func (m *Manager) classifyLoginError(err error) error {
	if errors.Is(err, msa.ErrCancelled) {
		return fmt.Errorf("%w: %w", ErrLoginCancelled, err)
	}
	var provider *msa.ProviderError
	if errors.As(err, &provider) {
		if provider.Network() {
			return fmt.Errorf("%w: %w", ErrNetwork, err)
		}
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	// The call itself failed to execute.
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

func (m *Manager) auditLog(action audit.Action, uuid, name string, cause error) {
	if m.audit == nil {
		return
	}
	entry := audit.Entry{Action: action, UUID: uuid, Name: name}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := m.audit.Log(entry); err != nil {
		m.logger.Warn("audit log write failed", "error", err)
	}
}
