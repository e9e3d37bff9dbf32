package services

import (
	"testing"
	"time"

	"github.com/challenge-arena/backend/internal/models"
	"github.com/google/uuid"
)

func TestToleranceBand(t *testing.T) {
	tests := []struct {
		name         string
		stake        int64
		toleranceBPS int
		wantLo       int64
		wantHi       int64
	}{
		{"default 20pct of 100", 100, 2000, 80, 120},
		{"default 20pct of 1000", 1000, 2000, 800, 1200},
		{"fractional rounds inward", 99, 2000, 80, 118}, // 79.2 -> 80, 118.8 -> 118
		{"zero tolerance", 100, 0, 100, 100},
		{"small stake", 1, 2000, 1, 1},
		{"10pct", 200, 1000, 180, 220},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := ToleranceBand(tt.stake, tt.toleranceBPS)
			if lo != tt.wantLo || hi != tt.wantHi {
				t.Errorf("ToleranceBand(%d, %d) = [%d, %d], want [%d, %d]",
					tt.stake, tt.toleranceBPS, lo, hi, tt.wantLo, tt.wantHi)
			}
		})
	}
}

func waitingEntry(stake int64, createdAt time.Time) models.QueueEntry {
	return models.QueueEntry{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		StakeAmount: stake,
		Status:      models.QueueStatusWaiting,
		CreatedAt:   createdAt,
	}
}

func TestPickOpponentBandBoundaries(t *testing.T) {
	base := time.Now()

	tests := []struct {
		name      string
		stakes    []int64
		joinStake int64
		wantStake int64 // 0 = no match
	}{
		{"exact lower bound matches", []int64{80}, 100, 80},
		{"exact upper bound matches", []int64{120}, 100, 120},
		{"below band rejected", []int64{79}, 100, 0},
		{"above band rejected", []int64{121}, 100, 0},
		{"out then in picks in-band", []int64{79, 121, 100}, 100, 100},
		{"empty queue", nil, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var entries []models.QueueEntry
			for i, s := range tt.stakes {
				entries = append(entries, waitingEntry(s, base.Add(time.Duration(i)*time.Second)))
			}
			got := PickOpponent(entries, tt.joinStake, 2000)
			if tt.wantStake == 0 {
				if got != nil {
					t.Fatalf("expected no match, got stake %d", got.StakeAmount)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected match at stake %d, got none", tt.wantStake)
			}
			if got.StakeAmount != tt.wantStake {
				t.Errorf("matched stake %d, want %d", got.StakeAmount, tt.wantStake)
			}
		})
	}
}

func TestPickOpponentFCFSBeatsCloseness(t *testing.T) {
	base := time.Now()
	// Oldest in-band entry is 80; a numerically closer 100 arrived later.
	entries := []models.QueueEntry{
		waitingEntry(80, base),
		waitingEntry(100, base.Add(time.Second)),
	}
	got := PickOpponent(entries, 100, 2000)
	if got == nil {
		t.Fatal("expected a match")
	}
	if got.StakeAmount != 80 {
		t.Errorf("matched stake %d, want 80 (first come first served)", got.StakeAmount)
	}
}

func TestPickOpponentSkipsNonWaiting(t *testing.T) {
	base := time.Now()
	matched := waitingEntry(100, base)
	matched.Status = models.QueueStatusMatched
	waiting := waitingEntry(110, base.Add(time.Second))

	got := PickOpponent([]models.QueueEntry{matched, waiting}, 100, 2000)
	if got == nil || got.StakeAmount != 110 {
		t.Fatalf("expected the waiting 110 entry, got %+v", got)
	}
}

func TestStakeDeltas(t *testing.T) {
	yes, no := StakeDeltas(models.SideYes, 100, 90)
	if yes != 100 || no != 90 {
		t.Errorf("YES join: got (%d, %d), want (100, 90)", yes, no)
	}
	yes, no = StakeDeltas(models.SideNo, 100, 90)
	if yes != 90 || no != 100 {
		t.Errorf("NO join: got (%d, %d), want (90, 100)", yes, no)
	}
}
