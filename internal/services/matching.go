package services

import "github.com/challenge-arena/backend/internal/models"

// ToleranceBand returns the inclusive stake range eligible to match a
// joining stake. The band is relative to the JOINING user's stake, not
// the queued one: a deliberate FCFS-over-closeness asymmetry. With a
// 2000 bps tolerance a join of 100 matches waiting stakes in [80, 120].
// Bounds round toward the band interior (lower bound up, upper bound
// down) so fractional units never widen the band.
func ToleranceBand(stake int64, toleranceBPS int) (lo, hi int64) {
	t := int64(toleranceBPS)
	lo = (stake*(10000-t) + 9999) / 10000
	hi = stake * (10000 + t) / 10000
	return lo, hi
}

// PickOpponent applies the FCFS rule to an already-ordered candidate
// list: the earliest-created waiting entry inside the band wins, even
// when a newer entry's stake is numerically closer. Entries must be
// sorted by creation time ascending.
func PickOpponent(entries []models.QueueEntry, stake int64, toleranceBPS int) *models.QueueEntry {
	lo, hi := ToleranceBand(stake, toleranceBPS)
	for i := range entries {
		e := &entries[i]
		if e.Status != models.QueueStatusWaiting {
			continue
		}
		if e.StakeAmount >= lo && e.StakeAmount <= hi {
			return e
		}
	}
	return nil
}

// StakeDeltas maps a matched pair's contributions onto the challenge's
// per-side totals.
func StakeDeltas(joinSide string, joinStake, opponentStake int64) (yesDelta, noDelta int64) {
	if joinSide == models.SideYes {
		return joinStake, opponentStake
	}
	return opponentStake, joinStake
}
