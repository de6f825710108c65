package engine

import "errors"

var ErrInvalidState = errors.New("invalid state")
var ErrInsufficientParticipants = errors.New("insufficient participants")
var ErrUnknownParticipant = errors.New("unknown participant")
var ErrInsufficientBudget = errors.New("insufficient budget")
var ErrBidTooLow = errors.New("bid too low")
var ErrNotAuthorized = errors.New("not authorized")
var ErrRoomNotFound = errors.New("room not found")
var ErrNoActiveAuction = errors.New("no active auction")
var ErrInvalidInput = errors.New("invalid input")
var ErrUnsupportedCommand = errors.New("unsupported command")

// ErrStaleTimer is returned for timer firings that no longer match the live lot.
var ErrStaleTimer = errors.New("stale timer")

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidState, "InvalidStateError"},
	{ErrInsufficientParticipants, "InsufficientParticipantsError"},
	{ErrUnknownParticipant, "UnknownParticipantError"},
	{ErrInsufficientBudget, "InsufficientBudgetError"},
	{ErrBidTooLow, "BidTooLowError"},
	{ErrNotAuthorized, "NotAuthorizedError"},
	{ErrRoomNotFound, "RoomNotFoundError"},
	{ErrNoActiveAuction, "NoActiveAuctionError"},
	{ErrInvalidInput, "InvalidInputError"},
	{ErrUnsupportedCommand, "UnsupportedCommandError"},
	{ErrStaleTimer, "StaleTimerError"},
}

const KindInternal = "InternalError"

// KindOf maps err to the error kind reported to clients.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Message is the client-facing text for err. Internal errors are not described.
func Message(err error) string {
	if KindOf(err) == KindInternal {
		return "internal error"
	}
	return err.Error()
}
