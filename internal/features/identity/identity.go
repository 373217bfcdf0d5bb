// Package identity supplies the current user as seen by the host (Telegram) environment.
package identity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"
)

var (
	ErrMissingInitData = errors.New("missing init data")
	ErrInvalidInitData = errors.New("invalid init data")
	ErrNoUser          = errors.New("init data carries no user")
)

// Identity is the stable user identity handed to the rest of the system.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
}

// Fallback is used when the host context is absent (browser testing, local runs).
var Fallback = Identity{
	ID:          "123456789",
	DisplayName: "Premium User",
	AvatarRef:   "https://via.placeholder.com/100",
}

// Provider returns the same identity on every call for the lifetime of a session.
type Provider interface {
	CurrentUser() Identity
}

// Static is a Provider over a fixed identity.
type Static struct {
	identity Identity
}

func NewStatic(id Identity) *Static { return &Static{identity: id} }

func (s *Static) CurrentUser() Identity { return s.identity }

// InitDataProvider resolves the identity from Telegram Mini App init-data.
type InitDataProvider struct {
	identity Identity
	fallback bool
}

// NewInitDataProvider validates raw init-data with the bot token. An empty token or
// empty/invalid init-data yields the fallback identity when allowFallback is set,
// otherwise an error. ttl==0 disables the auth_date expiry check.
func NewInitDataProvider(raw, botToken string, ttl time.Duration, allowFallback bool) (*InitDataProvider, error) {
	if botToken == "" || raw == "" {
		if allowFallback {
			return &InitDataProvider{identity: Fallback, fallback: true}, nil
		}
		if raw == "" {
			return nil, ErrMissingInitData
		}
		return nil, fmt.Errorf("%w: validation is not configured", ErrInvalidInitData)
	}

	id, err := FromInitData(raw, botToken, ttl)
	if err != nil {
		if allowFallback {
			return &InitDataProvider{identity: Fallback, fallback: true}, nil
		}
		return nil, err
	}
	return &InitDataProvider{identity: id}, nil
}

func (p *InitDataProvider) CurrentUser() Identity { return p.identity }

// IsFallback reports whether the host identity was unavailable.
func (p *InitDataProvider) IsFallback() bool { return p.fallback }

// FromInitData validates the signature and expiry of raw init-data and extracts the user.
func FromInitData(raw, botToken string, ttl time.Duration) (Identity, error) {
	if err := initdata.Validate(raw, botToken, ttl); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}
	parsed, err := initdata.Parse(raw)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}
	// parsed.User is a value type in the library; check by ID
	if parsed.User.ID == 0 {
		return Identity{}, ErrNoUser
	}
	return FromTelegramUser(parsed.User), nil
}

// FromTelegramUser maps a Telegram user onto an Identity.
func FromTelegramUser(u initdata.User) Identity {
	name := strings.TrimSpace(u.FirstName)
	if name == "" {
		name = u.Username
	}
	return Identity{
		ID:          strconv.FormatInt(u.ID, 10),
		DisplayName: name,
		AvatarRef:   u.PhotoURL,
	}
}

// ReferralLink builds the bot deep link used for invites.
func ReferralLink(botUsername, userID string) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%s", botUsername, userID)
}
