package services

import "errors"

// Common errors shared by the services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrValidationFailed     = errors.New("validation failed")
	ErrInvalidPhaseType     = errors.New("phase type must be swiss or elimination")
	ErrInvalidRound         = errors.New("invalid round for the phase type")
	ErrInvalidScore         = errors.New("scores must be non-negative")
	ErrInvalidTeamStatus    = errors.New("invalid team status")
	ErrInvalidFormatGroup   = errors.New("format must be 1v1, 2v2 or 3v3")
	ErrNotEnoughTeams       = errors.New("at least 2 approved teams are required to generate a bracket")
	ErrMatchNotInTournament = errors.New("match does not belong to this tournament")
	ErrMatchSlotsIncomplete = errors.New("match is still waiting for its participants")

	// Conflicts
	ErrRoundAlreadyExists          = errors.New("matches already exist for this round; delete them before generating again")
	ErrTeamInvalidStatusTransition = errors.New("invalid team status transition")
	ErrCorrectionRunConflict       = errors.New("correction job with this key is already being applied")

	// Entity specific not-found errors
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrMatchNotFound      = errors.New("match not found")
)
