// Package account defines the canonical account record persisted by the
// launcher and the normalization rules that admit external data into it.
//
// Two shapes cross this boundary: the on-disk store (possibly written by
// older launcher versions) and token bundles returned by the Microsoft
// identity client. Both are reduced to the same Account record, or rejected.
package account

import (
	"maps"
	"time"
)

// Account is one authenticated Microsoft identity.
type Account struct {
	UUID           string      `json:"uuid"`
	Username       string      `json:"username"`
	AccessToken    string      `json:"access_token"`
	RefreshToken   string      `json:"refresh_token"`
	ExpiresAt      int64       `json:"expires_at"` // epoch milliseconds
	ClientToken    string      `json:"client_token"`
	UserProperties string      `json:"user_properties"`
	XboxAccount    XboxAccount `json:"xbox_account"`
	Profile        Profile     `json:"profile"`
}

// XboxAccount carries the Xbox Live identity attached to an account.
type XboxAccount struct {
	XUID     string `json:"xuid"`
	Gamertag string `json:"gamertag"`
	AgeGroup string `json:"age_group"`
}

// Profile holds the Minecraft profile textures. The entries are opaque to
// the launcher and passed through to the game as-is.
type Profile struct {
	Skins []map[string]any `json:"skins"`
	Capes []map[string]any `json:"capes"`
}

// Public is the projection exposed by account listings. It never carries
// token material.
type Public struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	ExpiresAt int64  `json:"expires_at"`
}

// Meta is the metadata block of the Authenticator view.
type Meta struct {
	Type                 string `json:"type"`
	AccessTokenExpiresIn int64  `json:"access_token_expires_in"`
	Demo                 bool   `json:"demo"`
}

// Authenticator is the identity-client-shaped view of an account: the form
// the refresh call consumes and login/refresh operations return.
type Authenticator struct {
	AccessToken    string      `json:"access_token"`
	ClientToken    string      `json:"client_token"`
	UUID           string      `json:"uuid"`
	Name           string      `json:"name"`
	RefreshToken   string      `json:"refresh_token"`
	UserProperties string      `json:"user_properties"`
	Meta           Meta        `json:"meta"`
	XboxAccount    XboxAccount `json:"xbox_account"`
	Profile        Profile     `json:"profile"`
}

// Public returns the listing projection of the account.
func (a *Account) Public() Public {
	return Public{UUID: a.UUID, Name: a.Username, ExpiresAt: a.ExpiresAt}
}

// Authenticator returns the identity-client view of the account.
func (a *Account) Authenticator() *Authenticator {
	return &Authenticator{
		AccessToken:    a.AccessToken,
		ClientToken:    a.ClientToken,
		UUID:           a.UUID,
		Name:           a.Username,
		RefreshToken:   a.RefreshToken,
		UserProperties: a.UserProperties,
		Meta: Meta{
			Type:                 "Xbox",
			AccessTokenExpiresIn: a.ExpiresAt,
			Demo:                 false,
		},
		XboxAccount: a.XboxAccount,
		Profile:     cloneProfile(a.Profile),
	}
}

// NeedsRefresh reports whether the access token must be refreshed before
// use. The boundary is inclusive toward refresh: a token expiring exactly
// skew from now is already considered stale.
func (a *Account) NeedsRefresh(now time.Time, skew time.Duration) bool {
	return now.UnixMilli() >= a.ExpiresAt-skew.Milliseconds()
}

// cloneProfile copies the texture lists and their maps so a view and its
// source account share no mutable state. Values inside the maps are opaque
// pass-through and not copied further.
func cloneProfile(p Profile) Profile {
	return Profile{
		Skins: cloneTextures(p.Skins),
		Capes: cloneTextures(p.Capes),
	}
}

func cloneTextures(in []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(in))
	for _, m := range in {
		out = append(out, maps.Clone(m))
	}
	return out
}
