package account

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
)

// ErrInvalidData is returned when a candidate account is missing a required
// field. Required fields are never defaulted.
var ErrInvalidData = errors.New("invalid account data")

// Raw is the tolerant admission shape for a candidate account. It accepts
// both the canonical persisted field names and the identity client's native
// bundle shape: "name" as an alias for "username", expiry nested under
// meta.access_token_expires_in, and the camelCase "xboxAccount" key written
// by older launcher versions.
type Raw struct {
	UUID           string   `json:"uuid"`
	Username       string   `json:"username"`
	Name           string   `json:"name"`
	AccessToken    string   `json:"access_token"`
	RefreshToken   string   `json:"refresh_token"`
	ExpiresAt      any      `json:"expires_at"`
	ClientToken    string   `json:"client_token"`
	UserProperties string   `json:"user_properties"`
	XboxAccount    *rawXbox `json:"xbox_account"`
	XboxAccountAlt *rawXbox `json:"xboxAccount"`
	Profile        *Profile `json:"profile"`
	Meta           *RawMeta `json:"meta"`
}

// RawMeta is the metadata block of an identity-client bundle.
type RawMeta struct {
	Type                 string `json:"type"`
	AccessTokenExpiresIn any    `json:"access_token_expires_in"`
	Demo                 bool   `json:"demo"`
}

type rawXbox struct {
	XUID        string `json:"xuid"`
	Gamertag    string `json:"gamertag"`
	AgeGroup    string `json:"age_group"`
	AgeGroupAlt string `json:"ageGroup"`
}

// Normalize converts a candidate account into the canonical record.
// uuid, username, access_token, refresh_token and a numeric expiry are
// required; everything else is defaulted.
func Normalize(raw *Raw) (*Account, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: no account data", ErrInvalidData)
	}

	username := raw.Username
	if username == "" {
		username = raw.Name
	}

	expiry := raw.ExpiresAt
	if expiry == nil && raw.Meta != nil {
		expiry = raw.Meta.AccessTokenExpiresIn
	}

	switch {
	case raw.UUID == "":
		return nil, fmt.Errorf("%w: missing uuid", ErrInvalidData)
	case username == "":
		return nil, fmt.Errorf("%w: missing username", ErrInvalidData)
	case raw.AccessToken == "":
		return nil, fmt.Errorf("%w: missing access_token", ErrInvalidData)
	case raw.RefreshToken == "":
		return nil, fmt.Errorf("%w: missing refresh_token", ErrInvalidData)
	}

	expiresAt, ok := toEpochMillis(expiry)
	if !ok {
		return nil, fmt.Errorf("%w: missing or non-numeric expires_at", ErrInvalidData)
	}

	acct := &Account{
		UUID:           raw.UUID,
		Username:       username,
		AccessToken:    raw.AccessToken,
		RefreshToken:   raw.RefreshToken,
		ExpiresAt:      expiresAt,
		ClientToken:    raw.ClientToken,
		UserProperties: raw.UserProperties,
		Profile:        Profile{},
	}
	if acct.ClientToken == "" {
		acct.ClientToken = uuid.NewString()
	}
	if acct.UserProperties == "" {
		acct.UserProperties = "{}"
	}

	xbox := raw.XboxAccount
	if xbox == nil {
		xbox = raw.XboxAccountAlt
	}
	if xbox != nil {
		acct.XboxAccount = XboxAccount{
			XUID:     xbox.XUID,
			Gamertag: xbox.Gamertag,
			AgeGroup: xbox.AgeGroup,
		}
		if acct.XboxAccount.AgeGroup == "" {
			acct.XboxAccount.AgeGroup = xbox.AgeGroupAlt
		}
	}

	if raw.Profile != nil {
		acct.Profile = cloneProfile(*raw.Profile)
	} else {
		acct.Profile = cloneProfile(Profile{})
	}

	return acct, nil
}

// toEpochMillis coerces the loosely-typed expiry value to epoch
// milliseconds. JSON numbers, integral Go values and numeric strings are
// accepted.
func toEpochMillis(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}
