package services

import "errors"

// Sentinel errors shared across services and the HTTP error mapping.
var (
	// Not-found family.
	ErrNotFound           = errors.New("requested resource not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrGroupNotFound      = errors.New("tournament group not found")
	ErrTournamentNotFound = errors.New("tournament not found")

	// Validation and business rules.
	ErrValidationFailed    = errors.New("validation failed")
	ErrTeamNameRequired    = errors.New("team name is required")
	ErrGamertagRequired    = errors.New("player gamertag is required")
	ErrSameTeam            = errors.New("a match requires two distinct teams")
	ErrTeamRetired         = errors.New("team is retired")
	ErrTeamHasMatchHistory = errors.New("team with match history cannot be deleted, retire it instead")

	// Lifecycle / idempotency guards. AlreadySeeded and AlreadyGenerated
	// signal "no-op, already done": callers receive the existing data
	// alongside the error and must not treat it as a failure.
	ErrInvalidState     = errors.New("operation not allowed in the current state")
	ErrAlreadySeeded    = errors.New("bracket already seeded for this tournament")
	ErrAlreadyGenerated = errors.New("bracket matches already generated for this tournament")
	ErrMatchNotDecided  = errors.New("match has no winner to advance")

	// Insufficient data.
	ErrInsufficientTeams = errors.New("not enough qualifying teams to seed a bracket")
)
