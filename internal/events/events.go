package events

import "context"

// Streams
const (
	StreamChallenge = "events:challenge"
	StreamNotify    = "events:notify"
)

// Event types
const (
	EventMatchFound       = "match_found"
	EventQueueAdded       = "queue_added"
	EventQueueCancelled   = "queue_cancelled"
	EventStakeReserved    = "stake_reserved"
	EventProofUploaded    = "proof_uploaded"
	EventVoteSubmitted    = "vote_submitted"
	EventAutoReleased     = "auto_released"
	EventDisputeOpened    = "dispute_opened"
	EventDisputeResolved  = "dispute_resolved"
	EventChallengeExpired = "challenge_expired"
	EventDueDateWarning   = "due_date_warning"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
