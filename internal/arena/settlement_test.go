package arena

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeMatch(stake int64) (Match, []Participant) {
	now := time.Now()
	endsAt := now.Add(60 * time.Second)
	m := Match{
		ID:        uuid.New(),
		Stake:     stake,
		Status:    StatusActive,
		CreatedAt: now,
		StartedAt: &now,
		EndsAt:    &endsAt,
	}
	parts := []Participant{
		{MatchID: m.ID, UserID: uuid.New(), JoinedAt: now, LastPingAt: &now},
		{MatchID: m.ID, UserID: uuid.New(), JoinedAt: now, LastPingAt: &now},
	}
	return m, parts
}

func deltaFor(t *testing.T, s Settlement, userID uuid.UUID) LedgerDelta {
	t.Helper()
	for _, d := range s.Deltas {
		if d.UserID == userID {
			return d
		}
	}
	t.Fatalf("no ledger delta for user %s", userID)
	return LedgerDelta{}
}

func TestComputeSettlement_TimeWithWinner(t *testing.T) {
	m, parts := activeMatch(100)
	parts[0].Score = 3
	parts[1].Score = 1

	s := computeSettlement(m, parts, ReasonTime)

	require.NotNil(t, s.WinnerUserID)
	assert.Equal(t, parts[0].UserID, *s.WinnerUserID)
	assert.Equal(t, ReasonTime, s.Reason)
	assert.Equal(t, int64(0), s.SystemFee)

	winner := deltaFor(t, s, parts[0].UserID)
	assert.Equal(t, int64(200), winner.Coins) // the whole bank
	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, int64(100), winner.Earnings)

	loser := deltaFor(t, s, parts[1].UserID)
	assert.Equal(t, int64(0), loser.Coins)
	assert.Equal(t, 1, loser.Losses)
	assert.Equal(t, int64(0), loser.FeesPaid)
}

func TestComputeSettlement_TimeEqualScoresIsTie(t *testing.T) {
	m, parts := activeMatch(101) // odd stake exercises the floor
	parts[0].Score = 2
	parts[1].Score = 2

	s := computeSettlement(m, parts, ReasonTime)

	assert.Equal(t, ReasonTie, s.Reason)
	assert.Nil(t, s.WinnerUserID)

	refund := int64(50) // floor(101 / 2)
	assert.Equal(t, int64(202-2*50), s.SystemFee)
	for _, p := range parts {
		d := deltaFor(t, s, p.UserID)
		assert.Equal(t, refund, d.Coins)
		assert.Equal(t, int64(101-50), d.FeesPaid)
		assert.Zero(t, d.Wins)
		assert.Zero(t, d.Losses)
	}
}

func TestComputeSettlement_Leave(t *testing.T) {
	m, parts := activeMatch(1000)
	leftAt := time.Now()
	parts[0].LeftAt = &leftAt

	s := computeSettlement(m, parts, ReasonLeave)

	require.NotNil(t, s.WinnerUserID)
	assert.Equal(t, parts[1].UserID, *s.WinnerUserID)
	assert.Equal(t, ReasonLeave, s.Reason)
	assert.Equal(t, int64(1000), s.SystemFee) // bank 2000, winner takes half

	winner := deltaFor(t, s, parts[1].UserID)
	assert.Equal(t, int64(1000), winner.Coins)
	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, int64(0), winner.Earnings) // prize equals stake, no gain

	leaver := deltaFor(t, s, parts[0].UserID)
	assert.Equal(t, int64(0), leaver.Coins)
	assert.Equal(t, 1, leaver.Losses)
	assert.Equal(t, int64(1000), leaver.FeesPaid)
}

func TestComputeSettlement_DisconnectMirrorsLeave(t *testing.T) {
	m, parts := activeMatch(500)
	leftAt := time.Now()
	parts[1].LeftAt = &leftAt

	s := computeSettlement(m, parts, ReasonDisconnect)

	require.NotNil(t, s.WinnerUserID)
	assert.Equal(t, parts[0].UserID, *s.WinnerUserID)
	assert.Equal(t, ReasonDisconnect, s.Reason)
	assert.Equal(t, int64(500), s.SystemFee)
	assert.Equal(t, int64(500), deltaFor(t, s, parts[0].UserID).Coins)
}

func TestComputeSettlement_BothLeftFirstParticipantWins(t *testing.T) {
	// Both rows stamped in the same window: the first participant takes
	// the tiebreak, the second is booked as the leaver.
	m, parts := activeMatch(100)
	leftAt := time.Now()
	parts[0].LeftAt = &leftAt
	parts[1].LeftAt = &leftAt

	s := computeSettlement(m, parts, ReasonDisconnect)

	require.NotNil(t, s.WinnerUserID)
	assert.Equal(t, parts[0].UserID, *s.WinnerUserID)

	loser := deltaFor(t, s, parts[1].UserID)
	assert.Equal(t, 1, loser.Losses)
	assert.Equal(t, int64(100), loser.FeesPaid)
}

func TestComputeSettlement_BankConservation(t *testing.T) {
	// Every settlement splits the bank exactly between payouts and fee.
	for _, stake := range []int64{100, 101, 500, 999, 1000} {
		for _, tc := range []struct {
			name   string
			reason string
			setup  func(parts []Participant)
		}{
			{"time_winner", ReasonTime, func(p []Participant) { p[0].Score = 5 }},
			{"tie", ReasonTime, func(p []Participant) {}},
			{"leave", ReasonLeave, func(p []Participant) {
				at := time.Now()
				p[1].LeftAt = &at
			}},
		} {
			m, parts := activeMatch(stake)
			tc.setup(parts)
			s := computeSettlement(m, parts, tc.reason)

			var paid int64
			for _, d := range s.Deltas {
				paid += d.Coins
			}
			assert.Equal(t, stake*2, paid+s.SystemFee,
				"%s stake=%d: payouts plus fee must equal the bank", tc.name, stake)
		}
	}
}
