package leaderboard

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	entries []Entry
	calls   int
}

func (f *fakeSource) TopByEarnings(_ context.Context, limit int) ([]Entry, error) {
	f.calls++
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func TestTop_AssignsRanksInSourceOrder(t *testing.T) {
	src := &fakeSource{entries: []Entry{
		{UserID: uuid.New(), Username: "first", Earnings: 5_000},
		{UserID: uuid.New(), Username: "second", Earnings: 3_000},
		{UserID: uuid.New(), Username: "third", Earnings: 100},
	}}
	svc := NewService(src, nil, zerolog.Nop(), ServiceOptions{})

	top, err := svc.Top(context.Background())
	require.NoError(t, err)
	require.Len(t, top, 3)

	for i, e := range top {
		assert.Equal(t, i+1, e.Rank)
	}
	assert.Equal(t, "first", top[0].Username)
}

func TestTop_RespectsLimit(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 20; i++ {
		src.entries = append(src.entries, Entry{UserID: uuid.New()})
	}
	svc := NewService(src, nil, zerolog.Nop(), ServiceOptions{TopN: 5})

	top, err := svc.Top(context.Background())
	require.NoError(t, err)
	assert.Len(t, top, 5)
}

func TestTop_EmptyLedger(t *testing.T) {
	svc := NewService(&fakeSource{}, nil, zerolog.Nop(), ServiceOptions{})

	top, err := svc.Top(context.Background())
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestTop_WithoutRedisHitsSourceEveryTime(t *testing.T) {
	src := &fakeSource{entries: []Entry{{UserID: uuid.New()}}}
	svc := NewService(src, nil, zerolog.Nop(), ServiceOptions{})

	ctx := context.Background()
	_, err := svc.Top(ctx)
	require.NoError(t, err)
	_, err = svc.Top(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, src.calls)
}
