package entities

// RaffleState represents the lifecycle state of a raffle
type RaffleState string

const (
	RaffleStateOpen        RaffleState = "open"
	RaffleStateCalculating RaffleState = "calculating"
)

// IsValid returns true if the state is a known raffle state
func (s RaffleState) IsValid() bool {
	return s == RaffleStateOpen || s == RaffleStateCalculating
}

// String returns the string representation of the raffle state
func (s RaffleState) String() string {
	return string(s)
}
