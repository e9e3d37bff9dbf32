package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{ChallengeStatusOpen, ChallengeStatusActive, true},
		{ChallengeStatusOpen, ChallengeStatusPending, true},
		{ChallengeStatusPending, ChallengeStatusActive, true},
		{ChallengeStatusActive, ChallengeStatusCompleted, true},

		// Dispute / admin paths
		{ChallengeStatusActive, ChallengeStatusDisputed, true},
		{ChallengeStatusActive, ChallengeStatusPendingAdmin, true},
		{ChallengeStatusDisputed, ChallengeStatusCompleted, true},
		{ChallengeStatusDisputed, ChallengeStatusCancelled, true},
		{ChallengeStatusDisputed, ChallengeStatusPendingAdmin, true},
		{ChallengeStatusPendingAdmin, ChallengeStatusCompleted, true},
		{ChallengeStatusPendingAdmin, ChallengeStatusCancelled, true},

		// Cancellation / expiry paths
		{ChallengeStatusOpen, ChallengeStatusCancelled, true},
		{ChallengeStatusOpen, ChallengeStatusCompleted, true},
		{ChallengeStatusPending, ChallengeStatusCancelled, true},
		{ChallengeStatusActive, ChallengeStatusCancelled, true},

		// Invalid transitions
		{ChallengeStatusCompleted, ChallengeStatusActive, false},
		{ChallengeStatusCompleted, ChallengeStatusCancelled, false},
		{ChallengeStatusCancelled, ChallengeStatusCompleted, false},
		{ChallengeStatusCancelled, ChallengeStatusOpen, false},
		{ChallengeStatusPending, ChallengeStatusDisputed, false},
		{ChallengeStatusOpen, ChallengeStatusDisputed, false},
		{"nonexistent", ChallengeStatusActive, false},
		{ChallengeStatusOpen, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	terminal := []string{ChallengeStatusCompleted, ChallengeStatusCancelled}
	for _, status := range terminal {
		transitions := ValidChallengeTransitions[status]
		if len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
	}
}

func TestIsSettleable(t *testing.T) {
	settleable := []string{ChallengeStatusActive, ChallengeStatusDisputed, ChallengeStatusPendingAdmin}
	for _, status := range settleable {
		if !IsSettleable(status) {
			t.Errorf("expected %q to be settleable", status)
		}
	}
	for _, status := range []string{ChallengeStatusOpen, ChallengeStatusPending, ChallengeStatusCompleted, ChallengeStatusCancelled} {
		if IsSettleable(status) {
			t.Errorf("expected %q to not be settleable", status)
		}
	}
}

func TestOppositeSide(t *testing.T) {
	if OppositeSide(SideYes) != SideNo {
		t.Errorf("opposite of YES should be NO")
	}
	if OppositeSide(SideNo) != SideYes {
		t.Errorf("opposite of NO should be YES")
	}
}

func TestParticipantSide(t *testing.T) {
	challenger := uuid.New()
	challenged := uuid.New()
	stranger := uuid.New()

	c := Challenge{ChallengerID: &challenger, ChallengedID: &challenged}

	if got := c.ParticipantSide(challenger); got != SideYes {
		t.Errorf("challenger side = %q, want YES", got)
	}
	if got := c.ParticipantSide(challenged); got != SideNo {
		t.Errorf("challenged side = %q, want NO", got)
	}
	if got := c.ParticipantSide(stranger); got != "" {
		t.Errorf("stranger side = %q, want empty", got)
	}

	var unassigned Challenge
	if got := unassigned.ParticipantSide(stranger); got != "" {
		t.Errorf("unassigned challenge should have no participant sides")
	}
}

func TestBonusActiveAt(t *testing.T) {
	now := time.Now()
	side := SideYes
	expired := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		c        Challenge
		expected bool
	}{
		{"no bonus", Challenge{}, false},
		{"zero multiplier", Challenge{BonusSide: &side}, false},
		{"active no expiry", Challenge{BonusSide: &side, BonusMultiplierBPS: 11000}, true},
		{"active before expiry", Challenge{BonusSide: &side, BonusMultiplierBPS: 11000, BonusExpiresAt: &future}, true},
		{"expired", Challenge{BonusSide: &side, BonusMultiplierBPS: 11000, BonusExpiresAt: &expired}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.BonusActiveAt(now); got != tt.expected {
				t.Errorf("BonusActiveAt = %v, want %v", got, tt.expected)
			}
		})
	}
}
