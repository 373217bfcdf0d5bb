package service

import (
	"giveaway-miniapp/internal/features/ledger/models"
)

// JoinState is the eligibility of one user for one giveaway.
type JoinState string

const (
	AlreadyJoined JoinState = "already_joined"
	PendingTasks  JoinState = "pending_tasks"
	ReadyToJoin   JoinState = "ready_to_join"
)

// TaskGate reports whether all required tasks are done.
type TaskGate interface {
	AllTasksComplete() bool
}

// EvaluateJoinEligibility has no side effects.
func EvaluateJoinEligibility(profile *models.UserProfile, giveawayID string, gate TaskGate) JoinState {
	if profile.HasJoined(giveawayID) {
		return AlreadyJoined
	}
	if gate == nil || !gate.AllTasksComplete() {
		return PendingTasks
	}
	return ReadyToJoin
}
