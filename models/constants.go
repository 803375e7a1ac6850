package models

// Swipe actions accepted by the API
const (
	SwipeActionLike    = "like"
	SwipeActionDislike = "dislike"
)

// Session defaults
const (
	DefaultMaxParticipants = 4
	MinMaxParticipants     = 2
	MaxMaxParticipants     = 10

	// MinParticipantsToStart is the smallest roster that makes a group match meaningful.
	MinParticipantsToStart = 2
)

// Default DynamoDB table names
const (
	SessionsTable            = "Sessions"
	SessionParticipantsTable = "SessionParticipants"
)
