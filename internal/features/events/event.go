// Package events carries state-change notifications from the participation core
// to subscribers (SSE clients) and to external sinks (Redis stream, Kafka).
package events

import (
	"time"

	"github.com/google/uuid"

	"giveaway-miniapp/internal/features/ledger/models"
)

type Kind string

const (
	KindProfileUpdated   Kind = "profileUpdated"
	KindJoinStateChanged Kind = "joinStateChanged"
	KindTaskStateChanged Kind = "taskStateChanged"
	KindJoinSucceeded    Kind = "joinSucceeded"
	KindJoinFailed       Kind = "joinFailed"

	// non-fatal, only for observability
	KindLedgerUnreachable      Kind = "ledgerUnreachable"
	KindEntryRecordWriteFailed Kind = "entryRecordWriteFailed"
)

// Event is a flat envelope; only the fields relevant to Kind are set.
type Event struct {
	ID         string              `json:"id"`
	Kind       Kind                `json:"kind"`
	UserID     string              `json:"user_id"`
	GiveawayID string              `json:"giveaway_id,omitempty"`
	TaskKind   string              `json:"task_kind,omitempty"`
	Complete   *bool               `json:"complete,omitempty"`
	JoinState  string              `json:"join_state,omitempty"`
	Profile    *models.UserProfile `json:"profile,omitempty"`
	Error      string              `json:"error,omitempty"`
	At         time.Time           `json:"at"`
}

func newEvent(kind Kind, userID string) Event {
	return Event{
		ID:     uuid.NewString(),
		Kind:   kind,
		UserID: userID,
		At:     time.Now().UTC(),
	}
}

func ProfileUpdated(p *models.UserProfile) Event {
	e := newEvent(KindProfileUpdated, p.ID)
	e.Profile = p.Clone()
	return e
}

func JoinStateChanged(userID, giveawayID, state string) Event {
	e := newEvent(KindJoinStateChanged, userID)
	e.GiveawayID = giveawayID
	e.JoinState = state
	return e
}

func TaskStateChanged(userID, giveawayID, taskKind string, complete bool) Event {
	e := newEvent(KindTaskStateChanged, userID)
	e.GiveawayID = giveawayID
	e.TaskKind = taskKind
	e.Complete = &complete
	return e
}

func JoinSucceeded(userID, giveawayID string) Event {
	e := newEvent(KindJoinSucceeded, userID)
	e.GiveawayID = giveawayID
	return e
}

func JoinFailed(userID, giveawayID string, err error) Event {
	e := newEvent(KindJoinFailed, userID)
	e.GiveawayID = giveawayID
	e.Error = err.Error()
	return e
}

func LedgerUnreachable(userID, giveawayID string, err error) Event {
	e := newEvent(KindLedgerUnreachable, userID)
	e.GiveawayID = giveawayID
	e.Error = err.Error()
	return e
}

func EntryRecordWriteFailed(userID, giveawayID string, err error) Event {
	e := newEvent(KindEntryRecordWriteFailed, userID)
	e.GiveawayID = giveawayID
	e.Error = err.Error()
	return e
}
