package arena

import (
	"time"

	"github.com/google/uuid"
)

// Match lifecycle states. A match never moves backwards and FINISHED is
// terminal.
const (
	StatusWaiting  = "WAITING"
	StatusActive   = "ACTIVE"
	StatusFinished = "FINISHED"
)

// Termination reasons recorded at settlement.
const (
	ReasonTime       = "TIME"
	ReasonLeave      = "LEAVE"
	ReasonDisconnect = "DISCONNECT"
	ReasonTie        = "TIE"
)

// User mirrors the ledger row for a player. Balances and counters are only
// ever mutated through atomic store operations, never read-modify-written
// in application code.
type User struct {
	ID                   uuid.UUID
	Username             string
	DisplayName          string
	Avatar               string
	Coins                int64
	BattleWins           int
	BattleLosses         int
	BattleEarnings       int64
	BattleSystemFeesPaid int64
}

// Match is the authoritative record of one 1v1 battle.
type Match struct {
	ID           uuid.UUID
	Stake        int64
	Status       string
	CreatedAt    time.Time
	StartedAt    *time.Time
	EndsAt       *time.Time
	FinishedAt   *time.Time
	Reason       *string
	WinnerUserID *uuid.UUID
	SystemFee    int64
}

// Participant is one user's membership in one match.
type Participant struct {
	MatchID    uuid.UUID
	UserID     uuid.UUID
	Username   string
	Score      int
	LastPingAt *time.Time
	LeftAt     *time.Time
	IsWinner   bool
	JoinedAt   time.Time
}

// MatchState bundles a match with its participants, the unit every read
// and liveness decision operates on.
type MatchState struct {
	Match        Match
	Participants []Participant
}

// ParticipantFor returns the participant row for a user, or nil.
func (st *MatchState) ParticipantFor(userID uuid.UUID) *Participant {
	for i := range st.Participants {
		if st.Participants[i].UserID == userID {
			return &st.Participants[i]
		}
	}
	return nil
}

// LedgerDelta is one user's share of a settlement: a coin credit plus
// counter increments, applied atomically with the match status flip.
type LedgerDelta struct {
	UserID   uuid.UUID
	Coins    int64
	Wins     int
	Losses   int
	Earnings int64
	FeesPaid int64
}

// Settlement is the complete, precomputed outcome of a match. Applying it
// is the only way a match reaches FINISHED.
type Settlement struct {
	MatchID      uuid.UUID
	Reason       string
	WinnerUserID *uuid.UUID
	SystemFee    int64
	Deltas       []LedgerDelta
}
