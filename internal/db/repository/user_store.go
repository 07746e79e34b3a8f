package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mathpets/battle-arena/internal/arena"
	"github.com/mathpets/battle-arena/internal/leaderboard"
)

// GetUser fetches a ledger row by id.
func (s *Store) GetUser(ctx context.Context, userID uuid.UUID) (arena.User, error) {
	const q = `
		SELECT id, username, display_name, avatar, coins,
		       battle_wins, battle_losses, battle_earnings, battle_system_fees_paid
		FROM users
		WHERE id = $1`

	var u arena.User
	err := s.pool.QueryRow(ctx, q, userID).Scan(
		&u.ID, &u.Username, &u.DisplayName, &u.Avatar, &u.Coins,
		&u.BattleWins, &u.BattleLosses, &u.BattleEarnings, &u.BattleSystemFeesPaid,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return arena.User{}, arena.ErrUserNotFound
	}
	if err != nil {
		return arena.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ChargeInspectFee debits the inspection fee with a balance guard; the
// conditional update is the re-validation, no prior read is trusted.
func (s *Store) ChargeInspectFee(ctx context.Context, viewerID uuid.UUID, fee int64) error {
	const q = `
		UPDATE users
		SET coins = coins - $2, updated_at = now()
		WHERE id = $1 AND coins >= $2`

	tag, err := s.pool.Exec(ctx, q, viewerID, fee)
	if err != nil {
		return fmt.Errorf("charge inspect fee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return arena.ErrInsufficientCoins
	}
	return nil
}

// TopByEarnings lists users ranked by cumulative battle earnings.
func (s *Store) TopByEarnings(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	const q = `
		SELECT id, username, display_name, avatar,
		       battle_wins, battle_losses, battle_earnings
		FROM users
		ORDER BY battle_earnings DESC, updated_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []leaderboard.Entry
	for rows.Next() {
		var e leaderboard.Entry
		if err := rows.Scan(&e.UserID, &e.Username, &e.DisplayName, &e.Avatar, &e.Wins, &e.Losses, &e.Earnings); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read leaderboard rows: %w", err)
	}
	return entries, nil
}
