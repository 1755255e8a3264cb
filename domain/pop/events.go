package pop

// EventKind tags the variant carried by an Event.
type EventKind string

const (
	EventPlayVerified EventKind = "play_verified"
	EventInvalidPlay  EventKind = "invalid_play"
)

// Event is an immutable outcome record. Only the fields of its Kind are set:
// PlayVerified uses Player, Entropy and Minted; InvalidPlay uses Reason.
type Event struct {
	Kind    EventKind `json:"kind"`
	Player  AccountID `json:"player,omitempty"`
	Entropy uint32    `json:"entropy,omitempty"`
	Minted  Balance   `json:"tt_minted,omitempty"`
	Reason  ErrorKind `json:"reason,omitempty"`
}

// PlayVerified builds the success record.
func PlayVerified(player AccountID, entropy uint32, minted Balance) Event {
	return Event{
		Kind:    EventPlayVerified,
		Player:  player,
		Entropy: entropy,
		Minted:  minted,
	}
}

// InvalidPlay builds the failure record for a rejected submission.
func InvalidPlay(reason ErrorKind) Event {
	return Event{Kind: EventInvalidPlay, Reason: reason}
}
