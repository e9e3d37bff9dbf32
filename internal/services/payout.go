package services

import (
	"github.com/challenge-arena/backend/internal/models"
	"github.com/google/uuid"
)

// ResolveWinner maps agreeing vote choices to the winning participant.
// Returns nil when the choice does not identify a designated participant
// (invalid_winner_choice: no state is mutated in that case).
func ResolveWinner(choice string, c *models.Challenge) (winnerID *uuid.UUID, result string) {
	switch choice {
	case models.VoteChallenger:
		return c.ChallengerID, models.ResultChallengerWon
	case models.VoteChallenged:
		return c.ChallengedID, models.ResultChallengedWon
	}
	return nil, ""
}

// VotesAgree reports whether all recorded choices are identical. With
// fewer than two votes it returns false: the quorum is exactly the two
// matched participants.
func VotesAgree(votes []models.VoteRecord) bool {
	if len(votes) < 2 {
		return false
	}
	for _, v := range votes[1:] {
		if v.VoteChoice != votes[0].VoteChoice {
			return false
		}
	}
	return true
}

// FeeSplit divides the escrow total into the platform fee and the
// winner's net. Fee rounds down, so the winner keeps the remainder unit.
func FeeSplit(total int64, feeBPS int) (net, fee int64) {
	fee = total * int64(feeBPS) / 10000
	return total - fee, fee
}

// ApplyBonus scales a payout by the bonus multiplier (10000 bps = 1.0x).
// The amount on top of net is funded by the bonus grant, capped at it.
func ApplyBonus(net int64, multiplierBPS int, grant int64) int64 {
	if multiplierBPS <= 10000 {
		return net
	}
	extra := net * int64(multiplierBPS-10000) / 10000
	if extra > grant {
		extra = grant
	}
	return net + extra
}

// BonusSpend is ApplyBonus plus the amount of grant it consumed. The
// unconsumed remainder goes back to the funder at settlement.
func BonusSpend(net int64, multiplierBPS int, grant int64) (boosted, spent int64) {
	boosted = ApplyBonus(net, multiplierBPS, grant)
	return boosted, boosted - net
}

type SplitShare struct {
	ParticipantID uuid.UUID
	Pct           int
}

// SplitShares distributes the total by whole percentages. Percentages
// must be positive and sum to 100. Rounding remainder goes to the first
// listed participant so the distributed sum always equals the total.
func SplitShares(total int64, shares []SplitShare) (map[uuid.UUID]int64, error) {
	if len(shares) == 0 {
		return nil, ErrInvalidResolution
	}
	sum := 0
	for _, s := range shares {
		if s.Pct <= 0 || s.ParticipantID == uuid.Nil {
			return nil, ErrInvalidResolution
		}
		sum += s.Pct
	}
	if sum != 100 {
		return nil, ErrInvalidResolution
	}

	out := make(map[uuid.UUID]int64, len(shares))
	var distributed int64
	for _, s := range shares {
		amount := total * int64(s.Pct) / 100
		out[s.ParticipantID] += amount
		distributed += amount
	}
	out[shares[0].ParticipantID] += total - distributed
	return out, nil
}
