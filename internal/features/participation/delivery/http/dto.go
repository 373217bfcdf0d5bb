package http

import (
	"time"

	catalogmodels "giveaway-miniapp/internal/features/catalog/models"
	"giveaway-miniapp/internal/features/ledger/models"
)

// MeResponse is the current user's profile as the mini-app sees it
type MeResponse struct {
	Profile      *models.UserProfile `json:"profile"`
	ReferralLink string              `json:"referral_link" example:"https://t.me/GiveawayProBot?start=ref_123456789"`
	// false while the ledger could not be reached
	Persisted bool `json:"persisted"`
}

type GiveawayResponse struct {
	*catalogmodels.Giveaway
	Phase catalogmodels.Phase `json:"phase" example:"active" enums:"active,upcoming,past"`
}

type GiveawaysResponse struct {
	Items []GiveawayResponse `json:"items"`
	Total int                `json:"total" example:"2"`
}

type EligibilityResponse struct {
	GiveawayID string          `json:"giveaway_id" example:"g1"`
	State      string          `json:"state" example:"pending_tasks" enums:"already_joined,pending_tasks,ready_to_join"`
	Tasks      map[string]bool `json:"tasks"`
}

type taskURI struct {
	ID   string `uri:"id" binding:"required"`
	Kind string `uri:"kind" binding:"required,taskkind"`
}

type StartTaskRequest struct {
	Link string `json:"link" binding:"required" example:"https://t.me/giveaway_channel"`
}

type StartTaskResponse struct {
	// false when the task was already complete
	Started  bool            `json:"started"`
	OpenLink string          `json:"open_link,omitempty" example:"https://t.me/giveaway_channel"`
	Tasks    map[string]bool `json:"tasks"`
}

type JoinResponse struct {
	Profile       *models.UserProfile `json:"profile"`
	AlreadyJoined bool                `json:"already_joined"`
	// non-fatal ledger problems, the join itself succeeded
	Warnings     []string `json:"warnings,omitempty"`
	WarningCodes []string `json:"warning_codes,omitempty" example:"LEDGER_UNREACHABLE"`
	Queued       int      `json:"queued_writes"`
}

type SaveGiveawayRequest struct {
	Title    string     `json:"title" binding:"required" example:"iPhone 15 Pro Max Drop"`
	Winners  int        `json:"winners" binding:"required,gt=0" example:"1"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
	Ended    bool       `json:"ended,omitempty"`
}

type EntriesResponse struct {
	Items []*models.EntryRecord `json:"items"`
	Total int                   `json:"total"`
}

type OutboxResponse struct {
	Pending int `json:"pending" example:"0"`
}
