package models

import (
	"errors"
	"time"
)

var (
	ErrInvalidPhase        = errors.New("unknown giveaway phase")
	ErrInvalidWinnersCount = errors.New("winners count must be greater than 0")
	ErrNoPhaseMarker       = errors.New("giveaway needs an end time, a start time or the ended flag")
)

// Phase of a giveaway as seen by the catalog.
type Phase string

const (
	PhaseActive   Phase = "active"   // идёт, отсчёт до конца
	PhaseUpcoming Phase = "upcoming" // отсчёт до старта
	PhasePast     Phase = "past"
)

func ParsePhase(s string) (Phase, error) {
	switch p := Phase(s); p {
	case PhaseActive, PhaseUpcoming, PhasePast:
		return p, nil
	case "":
		return PhaseActive, nil
	default:
		return "", ErrInvalidPhase
	}
}

// Giveaway is a catalog descriptor. It is read-only for the participation core.
type Giveaway struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Winners  int        `json:"winners"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
	Ended    bool       `json:"ended,omitempty"`
}

// PhaseAt resolves the phase at now. Markers are checked in order:
// end time, start time, ended flag.
func (g *Giveaway) PhaseAt(now time.Time) Phase {
	switch {
	case g.EndsAt != nil:
		if !now.Before(*g.EndsAt) {
			return PhasePast
		}
		return PhaseActive
	case g.StartsAt != nil:
		if now.Before(*g.StartsAt) {
			return PhaseUpcoming
		}
		// стартовал без даты окончания
		return PhaseActive
	default:
		return PhasePast
	}
}

func (g *Giveaway) Validate() error {
	if g.Winners <= 0 {
		return ErrInvalidWinnersCount
	}
	if g.EndsAt == nil && g.StartsAt == nil && !g.Ended {
		return ErrNoPhaseMarker
	}
	return nil
}
