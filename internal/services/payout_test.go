package services

import (
	"errors"
	"testing"

	"github.com/challenge-arena/backend/internal/models"
	"github.com/google/uuid"
)

func TestFeeSplit(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		feeBPS  int
		wantNet int64
		wantFee int64
	}{
		{"5pct of 2000", 2000, 500, 1900, 100},
		{"5pct rounds fee down", 1001, 500, 951, 50},
		{"zero fee", 2000, 0, 2000, 0},
		{"tiny pot keeps remainder with winner", 19, 500, 19, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, fee := FeeSplit(tt.total, tt.feeBPS)
			if net != tt.wantNet || fee != tt.wantFee {
				t.Errorf("FeeSplit(%d, %d) = (%d, %d), want (%d, %d)",
					tt.total, tt.feeBPS, net, fee, tt.wantNet, tt.wantFee)
			}
			if net+fee != tt.total {
				t.Errorf("net+fee = %d, must equal total %d", net+fee, tt.total)
			}
		})
	}
}

func TestVotesAgree(t *testing.T) {
	v := func(choice string) models.VoteRecord {
		return models.VoteRecord{ParticipantID: uuid.New(), VoteChoice: choice}
	}
	tests := []struct {
		name  string
		votes []models.VoteRecord
		want  bool
	}{
		{"no votes", nil, false},
		{"one vote is not quorum", []models.VoteRecord{v(models.VoteChallenger)}, false},
		{"two agreeing", []models.VoteRecord{v(models.VoteChallenger), v(models.VoteChallenger)}, true},
		{"two disagreeing", []models.VoteRecord{v(models.VoteChallenger), v(models.VoteChallenged)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VotesAgree(tt.votes); got != tt.want {
				t.Errorf("VotesAgree = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveWinner(t *testing.T) {
	challenger := uuid.New()
	challenged := uuid.New()
	ch := &models.Challenge{ChallengerID: &challenger, ChallengedID: &challenged}

	winner, result := ResolveWinner(models.VoteChallenger, ch)
	if winner == nil || *winner != challenger || result != models.ResultChallengerWon {
		t.Errorf("challenger vote: got (%v, %q)", winner, result)
	}

	winner, result = ResolveWinner(models.VoteChallenged, ch)
	if winner == nil || *winner != challenged || result != models.ResultChallengedWon {
		t.Errorf("challenged vote: got (%v, %q)", winner, result)
	}

	winner, result = ResolveWinner("nobody", ch)
	if winner != nil || result != "" {
		t.Errorf("invalid choice: got (%v, %q), want (nil, \"\")", winner, result)
	}

	// Choice points at a side with no designated participant.
	winner, _ = ResolveWinner(models.VoteChallenger, &models.Challenge{ChallengedID: &challenged})
	if winner != nil {
		t.Errorf("missing challenger: got %v, want nil", winner)
	}
}

func TestApplyBonus(t *testing.T) {
	tests := []struct {
		name          string
		net           int64
		multiplierBPS int
		grant         int64
		want          int64
	}{
		{"1.5x within grant", 1000, 15000, 1000, 1500},
		{"extra capped at grant", 1000, 20000, 300, 1300},
		{"1.0x is a no-op", 1000, 10000, 500, 1000},
		{"zero multiplier is a no-op", 1000, 0, 500, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyBonus(tt.net, tt.multiplierBPS, tt.grant); got != tt.want {
				t.Errorf("ApplyBonus(%d, %d, %d) = %d, want %d",
					tt.net, tt.multiplierBPS, tt.grant, got, tt.want)
			}
		})
	}
}

func TestBonusSpend(t *testing.T) {
	tests := []struct {
		name          string
		net           int64
		multiplierBPS int
		grant         int64
		wantBoosted   int64
		wantSpent     int64
	}{
		{"1.5x consumes half the grant", 1000, 15000, 1000, 1500, 500},
		{"extra capped, grant fully spent", 1000, 20000, 300, 1300, 300},
		{"1.0x spends nothing", 1000, 10000, 500, 1000, 0},
		{"zero multiplier spends nothing", 1000, 0, 500, 1000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			boosted, spent := BonusSpend(tt.net, tt.multiplierBPS, tt.grant)
			if boosted != tt.wantBoosted || spent != tt.wantSpent {
				t.Errorf("BonusSpend(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.net, tt.multiplierBPS, tt.grant, boosted, spent, tt.wantBoosted, tt.wantSpent)
			}
			if remainder := tt.grant - spent; remainder < 0 {
				t.Errorf("spent %d exceeds grant %d", spent, tt.grant)
			}
		})
	}
}

func TestSplitShares(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	t.Run("even split", func(t *testing.T) {
		out, err := SplitShares(200, []SplitShare{{a, 50}, {b, 50}})
		if err != nil {
			t.Fatal(err)
		}
		if out[a] != 100 || out[b] != 100 {
			t.Errorf("got a=%d b=%d, want 100 each", out[a], out[b])
		}
	})

	t.Run("remainder goes to first share", func(t *testing.T) {
		out, err := SplitShares(101, []SplitShare{{a, 50}, {b, 50}})
		if err != nil {
			t.Fatal(err)
		}
		if out[a]+out[b] != 101 {
			t.Fatalf("distributed %d, want 101", out[a]+out[b])
		}
		if out[a] != 51 || out[b] != 50 {
			t.Errorf("got a=%d b=%d, want 51/50", out[a], out[b])
		}
	})

	t.Run("uneven percentages", func(t *testing.T) {
		out, err := SplitShares(1000, []SplitShare{{a, 70}, {b, 30}})
		if err != nil {
			t.Fatal(err)
		}
		if out[a] != 700 || out[b] != 300 {
			t.Errorf("got a=%d b=%d, want 700/300", out[a], out[b])
		}
	})

	invalid := []struct {
		name   string
		shares []SplitShare
	}{
		{"empty", nil},
		{"sum under 100", []SplitShare{{a, 40}, {b, 40}}},
		{"sum over 100", []SplitShare{{a, 60}, {b, 60}}},
		{"zero pct", []SplitShare{{a, 0}, {b, 100}}},
		{"negative pct", []SplitShare{{a, -10}, {b, 110}}},
		{"nil participant", []SplitShare{{uuid.Nil, 100}}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SplitShares(100, tt.shares); !errors.Is(err, ErrInvalidResolution) {
				t.Errorf("err = %v, want ErrInvalidResolution", err)
			}
		})
	}
}
