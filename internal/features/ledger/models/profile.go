package models

import (
	"slices"
	"time"
)

// UserProfile is the per-user document holding ticket accounting.
type UserProfile struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	AvatarRef       string   `json:"avatar_ref,omitempty"`
	Tickets         int64    `json:"tickets"`
	Invites         int64    `json:"invites"`
	JoinedGiveaways []string `json:"joined_giveaways"`
}

// NewProfile returns the default zero-valued profile for a first-seen user.
func NewProfile(id, name, avatarRef string) *UserProfile {
	return &UserProfile{
		ID:              id,
		Name:            name,
		AvatarRef:       avatarRef,
		JoinedGiveaways: []string{},
	}
}

// HasJoined reports whether giveawayID is in the joined set.
func (p *UserProfile) HasJoined(giveawayID string) bool {
	return slices.Contains(p.JoinedGiveaways, giveawayID)
}

// Clone returns a deep copy.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.JoinedGiveaways = append(make([]string, 0, len(p.JoinedGiveaways)+1), p.JoinedGiveaways...)
	return &cp
}

// EntryRecord is durable proof that a user joined a giveaway.
type EntryRecord struct {
	GiveawayID string    `json:"giveaway_id"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	UserAvatar string    `json:"user_avatar,omitempty"`
	JoinedAt   time.Time `json:"joined_at"`
}

// Key is the unique record key: "<giveawayID>_<userID>".
func (r EntryRecord) Key() string {
	return EntryKey(r.GiveawayID, r.UserID)
}

func EntryKey(giveawayID, userID string) string {
	return giveawayID + "_" + userID
}
