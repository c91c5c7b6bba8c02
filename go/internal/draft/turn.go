package draft

// TotalPicks is the number of picks needed to fill every roster.
func TotalPicks(participants, rosterSize int) int {
	return participants * rosterSize
}

// RoundForPick returns the 1-based round of a 1-based overall pick number.
func RoundForPick(pickNumber, participants int) int {
	return (pickNumber + participants - 1) / participants
}

// TurnIndex returns the index into the draft order that owns pickNumber.
// Odd rounds run forward through the order and even rounds run backward.
func TurnIndex(pickNumber, participants int) int {
	pos := (pickNumber - 1) % participants
	if RoundForPick(pickNumber, participants)%2 == 0 {
		return participants - 1 - pos
	}
	return pos
}
