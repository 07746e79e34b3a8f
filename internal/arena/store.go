package arena

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by the store and service, mapped to HTTP status
// codes at the handler boundary.
var (
	ErrInvalidStake      = errors.New("invalid stake")
	ErrInsufficientCoins = errors.New("not enough coins")
	ErrUserNotFound      = errors.New("user not found")
	ErrTargetNotFound    = errors.New("target not found")
	ErrMatchNotFound     = errors.New("match not found")
	ErrNotInMatch        = errors.New("not in match")
	ErrMatchFull         = errors.New("match full")
	ErrMatchNotActive    = errors.New("match not active")
	ErrMatchEnded        = errors.New("match ended")
	ErrMatchFinished     = errors.New("match already finished")
	ErrInvalidTask       = errors.New("invalid task")
)

// Store is the transactional registry and ledger the arena runs on.
// Multi-row operations (ActivateMatch, Settle) must be atomic: either the
// whole unit commits or nothing is mutated.
type Store interface {
	// GetUser fetches a ledger row. ErrUserNotFound if absent.
	GetUser(ctx context.Context, userID uuid.UUID) (User, error)

	// FindWaitingMatch returns the oldest WAITING match for a stake, or
	// nil when none exists.
	FindWaitingMatch(ctx context.Context, stake int64) (*MatchState, error)

	// CreateMatch inserts a WAITING match with the caller as its sole
	// participant.
	CreateMatch(ctx context.Context, stake int64, userID uuid.UUID, now time.Time) (*MatchState, error)

	// ActivateMatch pairs a second participant with a WAITING match as one
	// atomic unit: re-check both balances, debit both stakes, insert the
	// joiner with a liveness stamp, and flip WAITING to ACTIVE. Returns
	// ErrMatchFull if the slot was already claimed and ErrInsufficientCoins
	// if either balance no longer covers the stake; in both cases nothing
	// is mutated.
	ActivateMatch(ctx context.Context, matchID, firstUserID, joiningUserID uuid.UUID, stake int64, startedAt, endsAt time.Time) error

	// GetMatchState loads a match with participants. ErrMatchNotFound if
	// absent.
	GetMatchState(ctx context.Context, matchID uuid.UUID) (*MatchState, error)

	// TouchParticipant refreshes a participant's liveness stamp.
	// ErrNotInMatch if the user has no row in the match.
	TouchParticipant(ctx context.Context, matchID, userID uuid.UUID, at time.Time) error

	// MarkLeft sets leftAt once; later calls keep the first timestamp.
	MarkLeft(ctx context.Context, matchID, userID uuid.UUID, at time.Time) error

	// RecordCorrectAnswer bumps score by one and refreshes the liveness
	// stamp in a single statement.
	RecordCorrectAnswer(ctx context.Context, matchID, userID uuid.UUID, at time.Time) error

	// Settle applies a settlement atomically: flip ACTIVE to FINISHED
	// (recording reason, winner, fee), credit every ledger delta, and mark
	// the winner row. Returns ErrMatchFinished without mutating anything
	// if the match already left ACTIVE, which makes settlement at-most-once
	// under concurrent finalize calls.
	Settle(ctx context.Context, s Settlement) error

	// ChargeInspectFee debits a fixed fee with a balance guard.
	// ErrInsufficientCoins if the viewer cannot cover it.
	ChargeInspectFee(ctx context.Context, viewerID uuid.UUID, fee int64) error
}
