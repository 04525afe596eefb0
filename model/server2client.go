package model

// TurnMessage is broadcast to every player once per round.
type TurnMessage struct {
	// Turn is set only for the player who acts this round.
	Turn bool
	// Defender is set for the player controlling the guards.
	Defender  bool
	Positions []Position
	Guards    []Guard
	// Status is already transformed for the recipient: a loser reads Quit.
	Status Status
}

// UpdateMessage is what a player sends back after acting. The defender
// also sends one before the first round with its guard placement.
type UpdateMessage struct {
	New     Position
	Guards  []Guard
	Status  Status
	Escaped bool
}
