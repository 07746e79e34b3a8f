package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mathpets/battle-arena/internal/arena"
)

const matchColumns = `
	id, stake, status, created_at, started_at, ends_at, finished_at,
	reason, winner_user_id, system_fee`

// FindWaitingMatch returns the oldest WAITING match for a stake, with
// participants, or nil when nobody is queued at that stake.
func (s *Store) FindWaitingMatch(ctx context.Context, stake int64) (*arena.MatchState, error) {
	q := `SELECT ` + matchColumns + `
		FROM battle_matches
		WHERE status = $1 AND stake = $2
		ORDER BY created_at ASC
		LIMIT 1`

	m, err := scanMatch(s.pool.QueryRow(ctx, q, arena.StatusWaiting, stake))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find waiting match: %w", err)
	}
	return s.loadState(ctx, m)
}

// CreateMatch inserts a WAITING match owned by its first participant.
func (s *Store) CreateMatch(ctx context.Context, stake int64, userID uuid.UUID, now time.Time) (*arena.MatchState, error) {
	matchID := uuid.New()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create match: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO battle_matches (id, stake, status, created_at) VALUES ($1, $2, $3, $4)`,
		matchID, stake, arena.StatusWaiting, now,
	); err != nil {
		return nil, fmt.Errorf("insert match: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO battle_participants (match_id, user_id, joined_at) VALUES ($1, $2, $3)`,
		matchID, userID, now,
	); err != nil {
		return nil, fmt.Errorf("insert participant: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create match: %w", err)
	}

	return s.GetMatchState(ctx, matchID)
}

// ActivateMatch pairs the joiner with a WAITING match in one transaction:
// claim the WAITING slot, debit both stakes with balance guards, stamp
// liveness for the first participant, and insert the joiner. Any failed
// step rolls back the whole unit.
func (s *Store) ActivateMatch(ctx context.Context, matchID, firstUserID, joiningUserID uuid.UUID, stake int64, startedAt, endsAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin activate: %w", err)
	}
	defer tx.Rollback(ctx)

	// Claim the slot first so a racing third joiner fails fast.
	tag, err := tx.Exec(ctx,
		`UPDATE battle_matches
		 SET status = $2, started_at = $3, ends_at = $4
		 WHERE id = $1 AND status = $5`,
		matchID, arena.StatusActive, startedAt, endsAt, arena.StatusWaiting,
	)
	if err != nil {
		return fmt.Errorf("claim waiting match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return arena.ErrMatchFull
	}

	for _, userID := range []uuid.UUID{firstUserID, joiningUserID} {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET coins = coins - $2, updated_at = now() WHERE id = $1 AND coins >= $2`,
			userID, stake,
		)
		if err != nil {
			return fmt.Errorf("debit stake: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return arena.ErrInsufficientCoins
		}
	}

	// Both liveness clocks start at activation.
	if _, err := tx.Exec(ctx,
		`UPDATE battle_participants SET last_ping_at = $2 WHERE match_id = $1`,
		matchID, startedAt,
	); err != nil {
		return fmt.Errorf("stamp first participant: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO battle_participants (match_id, user_id, joined_at, last_ping_at)
		 VALUES ($1, $2, $3, $3)`,
		matchID, joiningUserID, startedAt,
	); err != nil {
		return fmt.Errorf("insert joining participant: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit activate: %w", err)
	}
	return nil
}

// GetMatchState loads a match with its participants.
func (s *Store) GetMatchState(ctx context.Context, matchID uuid.UUID) (*arena.MatchState, error) {
	q := `SELECT ` + matchColumns + ` FROM battle_matches WHERE id = $1`

	m, err := scanMatch(s.pool.QueryRow(ctx, q, matchID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, arena.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return s.loadState(ctx, m)
}

// TouchParticipant refreshes a participant's liveness stamp.
func (s *Store) TouchParticipant(ctx context.Context, matchID, userID uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE battle_participants SET last_ping_at = $3 WHERE match_id = $1 AND user_id = $2`,
		matchID, userID, at,
	)
	if err != nil {
		return fmt.Errorf("touch participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return arena.ErrNotInMatch
	}
	return nil
}

// MarkLeft stamps leftAt once; the first timestamp wins.
func (s *Store) MarkLeft(ctx context.Context, matchID, userID uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE battle_participants SET left_at = $3
		 WHERE match_id = $1 AND user_id = $2 AND left_at IS NULL`,
		matchID, userID, at,
	)
	if err != nil {
		return fmt.Errorf("mark left: %w", err)
	}
	return nil
}

// RecordCorrectAnswer bumps score and refreshes liveness in one statement.
func (s *Store) RecordCorrectAnswer(ctx context.Context, matchID, userID uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE battle_participants SET score = score + 1, last_ping_at = $3
		 WHERE match_id = $1 AND user_id = $2`,
		matchID, userID, at,
	)
	if err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return arena.ErrNotInMatch
	}
	return nil
}

// Settle flips the match to FINISHED and applies all ledger deltas as one
// transaction. The conditional status update is the at-most-once guard:
// a match that already left ACTIVE returns ErrMatchFinished untouched.
func (s *Store) Settle(ctx context.Context, settlement arena.Settlement) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin settle: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE battle_matches
		 SET status = $2, reason = $3, winner_user_id = $4, system_fee = $5, finished_at = now()
		 WHERE id = $1 AND status = $6`,
		settlement.MatchID, arena.StatusFinished, settlement.Reason,
		settlement.WinnerUserID, settlement.SystemFee, arena.StatusActive,
	)
	if err != nil {
		return fmt.Errorf("finish match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return arena.ErrMatchFinished
	}

	for _, d := range settlement.Deltas {
		if _, err := tx.Exec(ctx,
			`UPDATE users
			 SET coins = coins + $2,
			     battle_wins = battle_wins + $3,
			     battle_losses = battle_losses + $4,
			     battle_earnings = battle_earnings + $5,
			     battle_system_fees_paid = battle_system_fees_paid + $6,
			     updated_at = now()
			 WHERE id = $1`,
			d.UserID, d.Coins, d.Wins, d.Losses, d.Earnings, d.FeesPaid,
		); err != nil {
			return fmt.Errorf("apply ledger delta: %w", err)
		}
	}

	if settlement.WinnerUserID != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE battle_participants SET is_winner = TRUE WHERE match_id = $1 AND user_id = $2`,
			settlement.MatchID, *settlement.WinnerUserID,
		); err != nil {
			return fmt.Errorf("mark winner: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settle: %w", err)
	}
	return nil
}

func (s *Store) loadState(ctx context.Context, m arena.Match) (*arena.MatchState, error) {
	const q = `
		SELECT p.match_id, p.user_id, u.username, p.score,
		       p.last_ping_at, p.left_at, p.is_winner, p.joined_at
		FROM battle_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.match_id = $1
		ORDER BY p.joined_at ASC`

	rows, err := s.pool.Query(ctx, q, m.ID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	st := &arena.MatchState{Match: m}
	for rows.Next() {
		var p arena.Participant
		if err := rows.Scan(&p.MatchID, &p.UserID, &p.Username, &p.Score,
			&p.LastPingAt, &p.LeftAt, &p.IsWinner, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		st.Participants = append(st.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read participants: %w", err)
	}
	return st, nil
}

func scanMatch(row pgx.Row) (arena.Match, error) {
	var m arena.Match
	err := row.Scan(&m.ID, &m.Stake, &m.Status, &m.CreatedAt, &m.StartedAt,
		&m.EndsAt, &m.FinishedAt, &m.Reason, &m.WinnerUserID, &m.SystemFee)
	return m, err
}
