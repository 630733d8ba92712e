package table

import (
	"errors"

	"github.com/vvv-blip/baccarat-bot/internal/model"
)

// Error kinds. Every table error wraps exactly one of these.
var (
	// ErrValidation marks bad user input. The user can correct it.
	ErrValidation = errors.New("validation error")
	// ErrStateConflict marks an operation in the wrong phase or by the wrong actor.
	ErrStateConflict = errors.New("state conflict")
	// ErrResourceMissing marks a missing wallet or session.
	ErrResourceMissing = errors.New("resource missing")
)

// tableError is a sentinel that belongs to one error kind.
type tableError struct {
	kind error
	msg  string
}

func (e *tableError) Error() string { return e.msg }
func (e *tableError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &tableError{kind: kind, msg: msg}
}

// Validation errors.
var (
	ErrInvalidAmount  = newError(ErrValidation, "invalid bet amount")
	ErrInvalidCard    = newError(ErrValidation, "invalid card")
	ErrInvalidChoice  = newError(ErrValidation, "invalid bet choice")
	ErrInvalidMode    = newError(ErrValidation, "invalid game mode")
	ErrInvalidSupport = newError(ErrValidation, "invalid support username")
)

// State conflicts.
var (
	ErrAlreadyRunning      = newError(ErrStateConflict, "a game is already running in this chat")
	ErrSessionOpen         = newError(ErrStateConflict, "a game is already waiting for players")
	ErrAlreadyJoined       = newError(ErrStateConflict, "already joined")
	ErrNotAcceptingPlayers = newError(ErrStateConflict, "game is not accepting players")
	ErrSessionFull         = newError(ErrStateConflict, "game is full")
	ErrUnknownPlayer       = newError(ErrStateConflict, "not a player in this game")
	ErrDuplicateBet        = newError(ErrStateConflict, "bet already placed")
	ErrDuplicateChoice     = newError(ErrStateConflict, "card already chosen")
	ErrNotCreator          = newError(ErrStateConflict, "only the game creator can do that")
	ErrStaleRound          = newError(ErrStateConflict, "this button belongs to a finished game")
	ErrWrongPhase          = newError(ErrStateConflict, "not allowed in the current phase")
	ErrAlreadyConfigured   = newError(ErrStateConflict, "game is already configured")
	ErrModeRequired        = newError(ErrStateConflict, "choose a game mode first")
	ErrIllegalTransition   = newError(ErrStateConflict, "illegal status transition")
)

// Missing resources.
var (
	ErrNoSession      = newError(ErrResourceMissing, "no game in this chat")
	ErrWalletRequired = newError(ErrResourceMissing, "a wallet is required for paid games")
)

// PhaseError reports the phase an operation found the session in.
type PhaseError struct {
	Want model.Status
	Got  model.Status
}

func (e *PhaseError) Error() string {
	return "expected status " + string(e.Want) + ", got " + string(e.Got)
}

// Is makes every PhaseError match ErrWrongPhase.
func (e *PhaseError) Is(target error) bool { return target == ErrWrongPhase }

// Unwrap places PhaseError under ErrStateConflict.
func (e *PhaseError) Unwrap() error { return ErrStateConflict }

func wrongPhase(want, got model.Status) error {
	return &PhaseError{Want: want, Got: got}
}
