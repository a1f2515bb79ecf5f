package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lanterne-launcher/lanterne/internal/account"
	"github.com/lanterne-launcher/lanterne/internal/crypt"
)

func testFile(t *testing.T, cipher crypt.Cipher) *File {
	t.Helper()
	return NewFile(filepath.Join(t.TempDir(), "accounts.json"), cipher)
}

func testAccount(t *testing.T, uuid string) *account.Account {
	t.Helper()
	acct, err := account.Normalize(&account.Raw{
		UUID:         uuid,
		Username:     "user-" + uuid,
		AccessToken:  "t",
		RefreshToken: "r",
		ExpiresAt:    float64(10),
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return acct
}

func TestLoadAbsentFile(t *testing.T) {
	f := testFile(t, crypt.Disabled{})

	store, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(store.Accounts) != 0 || store.ActiveUUID != nil {
		t.Errorf("expected empty store, got %+v", store)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := testFile(t, crypt.Disabled{})

	store := account.NewStore()
	store.Upsert(testAccount(t, "a"), true)
	saved, err := f.Save(store)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.UpdatedAt == 0 {
		t.Error("Save did not stamp updated_at")
	}

	loaded, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Accounts) != 1 || loaded.Accounts[0].UUID != "a" {
		t.Fatalf("loaded = %+v", loaded)
	}
	if loaded.ActiveUUID == nil || *loaded.ActiveUUID != "a" {
		t.Errorf("ActiveUUID = %v, want a", loaded.ActiveUUID)
	}
	if loaded.Accounts[0].ClientToken != store.Accounts[0].ClientToken {
		t.Error("client_token changed across the round trip")
	}
}

func TestSaveEncryptedRoundTrip(t *testing.T) {
	cipher := crypt.NewMemoryCipher()
	f := testFile(t, cipher)

	store := account.NewStore()
	store.Upsert(testAccount(t, "a"), true)
	if _, err := f.Save(store); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// The raw file must not contain the token.
	raw, err := os.ReadFile(f.Path())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(raw), "access_token") {
		t.Error("encrypted file leaks account fields")
	}

	loaded, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Accounts) != 1 || loaded.Accounts[0].UUID != "a" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestSaveUpdatedAtMonotonic(t *testing.T) {
	f := testFile(t, crypt.Disabled{})

	store := account.NewStore()
	store.Upsert(testAccount(t, "a"), true)

	first, err := f.Save(store)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := f.Save(store)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if second.UpdatedAt < first.UpdatedAt {
		t.Errorf("updated_at went backwards: %d -> %d", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestLoadCorruptFileStartsFresh(t *testing.T) {
	f := testFile(t, crypt.Disabled{})
	if err := os.WriteFile(f.Path(), []byte("{{{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	store, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(store.Accounts) != 0 {
		t.Errorf("expected empty store, got %+v", store)
	}

	// The corrupt file must not be left behind to fail again.
	if _, err := os.Stat(f.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("corrupt file still present: %v", err)
	}
}

func TestLoadEncryptedWithoutCipherStartsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.json")

	store := account.NewStore()
	store.Upsert(testAccount(t, "a"), true)
	if _, err := NewFile(path, crypt.NewMemoryCipher()).Save(store); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// The same file without the decryption capability is irrecoverable.
	loaded, err := NewFile(path, crypt.Disabled{}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Accounts) != 0 {
		t.Errorf("expected empty store, got %+v", loaded)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("unreadable file still present: %v", err)
	}
}

func TestLoadMigratesLegacyFile(t *testing.T) {
	f := testFile(t, crypt.Disabled{})
	legacy := `{"account":{"uuid":"a","username":"b","access_token":"t","refresh_token":"r","expires_at":10}}`
	if err := os.WriteFile(f.Path(), []byte(legacy), 0600); err != nil {
		t.Fatal(err)
	}

	store, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(store.Accounts) != 1 || store.Accounts[0].UUID != "a" {
		t.Fatalf("migration failed: %+v", store)
	}
	if store.ActiveUUID == nil || *store.ActiveUUID != "a" {
		t.Errorf("ActiveUUID = %v, want a", store.ActiveUUID)
	}
}

func TestLoadInvalidLegacyFileStartsFresh(t *testing.T) {
	f := testFile(t, crypt.Disabled{})
	if err := os.WriteFile(f.Path(), []byte(`{"account":{"uuid":"a"}}`), 0600); err != nil {
		t.Fatal(err)
	}

	store, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(store.Accounts) != 0 {
		t.Errorf("expected empty store, got %+v", store)
	}

	// A legacy file whose account cannot be migrated is corrupt like any
	// other; leaving it behind would repeat the failure on every load.
	if _, err := os.Stat(f.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("invalid legacy file still present: %v", err)
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "accounts.json")
	f := NewFile(path, crypt.Disabled{})

	if _, err := f.Save(account.NewStore()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file missing: %v", err)
	}
}

func TestSaveFilePermissions(t *testing.T) {
	f := testFile(t, crypt.Disabled{})
	if _, err := f.Save(account.NewStore()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(f.Path())
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600, got %o", perm)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	f := testFile(t, crypt.Disabled{})
	for i := 0; i < 3; i++ {
		if _, err := f.Save(account.NewStore()); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(f.Path()))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the store file, found %v", names)
	}
}

func TestClearAbsentFile(t *testing.T) {
	f := testFile(t, crypt.Disabled{})
	if err := f.Clear(); err != nil {
		t.Errorf("Clear on absent file: %v", err)
	}
}

func TestClearRemovesFile(t *testing.T) {
	f := testFile(t, crypt.Disabled{})
	if _, err := f.Save(account.NewStore()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := f.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(f.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present: %v", err)
	}
}
