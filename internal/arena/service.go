package arena

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options tunes the arena rules. Zero values fall back to the defaults
// used in production.
type Options struct {
	Stakes              []int64
	RoundDuration       time.Duration
	DisconnectThreshold time.Duration
	InspectFee          int64
}

// Service runs matchmaking, lazy liveness, and settlement. All progress is
// driven by incoming requests; there is no background scheduler, so how
// quickly a dead match is detected is bounded by how often clients poll.
type Service struct {
	store   Store
	tasks   TaskStore
	metrics *Metrics
	logger  zerolog.Logger

	stakes              map[int64]struct{}
	roundDuration       time.Duration
	disconnectThreshold time.Duration
	inspectFee          int64

	now func() time.Time
}

// NewService creates the arena service.
func NewService(store Store, tasks TaskStore, opts Options, metrics *Metrics, logger zerolog.Logger) *Service {
	if opts.RoundDuration <= 0 {
		opts.RoundDuration = 60 * time.Second
	}
	if opts.DisconnectThreshold <= 0 {
		opts.DisconnectThreshold = 7 * time.Second
	}
	if opts.InspectFee <= 0 {
		opts.InspectFee = 1000
	}
	if len(opts.Stakes) == 0 {
		opts.Stakes = []int64{100, 500, 1000}
	}

	stakes := make(map[int64]struct{}, len(opts.Stakes))
	for _, s := range opts.Stakes {
		stakes[s] = struct{}{}
	}

	return &Service{
		store:               store,
		tasks:               tasks,
		metrics:             metrics,
		logger:              logger.With().Str("component", "arena").Logger(),
		stakes:              stakes,
		roundDuration:       opts.RoundDuration,
		disconnectThreshold: opts.DisconnectThreshold,
		inspectFee:          opts.InspectFee,
		now:                 time.Now,
	}
}

// JoinQueue either creates a new WAITING match for the stake or pairs the
// caller with one that is already waiting. Pairing debits both stakes and
// activates the match as one atomic unit; if the second balance check
// fails nothing is mutated and the match keeps waiting.
func (s *Service) JoinQueue(ctx context.Context, userID uuid.UUID, stake int64) (*MatchState, error) {
	if _, ok := s.stakes[stake]; !ok {
		return nil, ErrInvalidStake
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Coins < stake {
		return nil, ErrInsufficientCoins
	}

	waiting, err := s.store.FindWaitingMatch(ctx, stake)
	if err != nil {
		return nil, fmt.Errorf("find waiting match: %w", err)
	}

	if waiting == nil {
		st, err := s.store.CreateMatch(ctx, stake, userID, s.now())
		if err != nil {
			return nil, fmt.Errorf("create match: %w", err)
		}
		s.metrics.MatchesCreated.Inc()
		s.logger.Info().
			Str("match_id", st.Match.ID.String()).
			Str("user_id", userID.String()).
			Int64("stake", stake).
			Msg("match created, waiting for opponent")
		return st, nil
	}

	// Re-joining the same queue is idempotent.
	if waiting.ParticipantFor(userID) != nil {
		return waiting, nil
	}
	if len(waiting.Participants) >= 2 {
		return nil, ErrMatchFull
	}

	startedAt := s.now()
	endsAt := startedAt.Add(s.roundDuration)
	firstUserID := waiting.Participants[0].UserID

	if err := s.store.ActivateMatch(ctx, waiting.Match.ID, firstUserID, userID, stake, startedAt, endsAt); err != nil {
		return nil, err
	}
	s.metrics.MatchesActivated.Inc()
	s.logger.Info().
		Str("match_id", waiting.Match.ID.String()).
		Str("user_id", userID.String()).
		Int64("stake", stake).
		Time("ends_at", endsAt).
		Msg("match activated")

	return s.store.GetMatchState(ctx, waiting.Match.ID)
}

// State returns the caller's view of a match, advancing it through the
// liveness rules first so stale matches settle before they are reported.
func (s *Service) State(ctx context.Context, userID, matchID uuid.UUID) (*MatchState, error) {
	st, err := s.loadForParticipant(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}
	return s.advance(ctx, st)
}

// Ping refreshes the caller's liveness stamp, then runs the liveness rules
// so the other side's disconnect is still detected. The refresh comes
// first: a ping must never flag its own sender as stale.
func (s *Service) Ping(ctx context.Context, userID, matchID uuid.UUID) error {
	st, err := s.loadForParticipant(ctx, userID, matchID)
	if err != nil {
		return err
	}

	if err := s.store.TouchParticipant(ctx, matchID, userID, s.now()); err != nil {
		return err
	}

	if st.Match.Status == StatusActive {
		if st, err = s.store.GetMatchState(ctx, matchID); err != nil {
			return err
		}
		if _, err := s.advance(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// TaskFor returns the caller's outstanding task, generating one if none
// exists. The same task is returned until it is answered correctly, so a
// player cannot cycle requests hunting for an easy problem.
func (s *Service) TaskFor(ctx context.Context, userID, matchID uuid.UUID) (PendingTask, error) {
	st, err := s.loadForParticipant(ctx, userID, matchID)
	if err != nil {
		return PendingTask{}, err
	}

	st, err = s.advance(ctx, st)
	if err != nil {
		return PendingTask{}, err
	}
	if st.Match.Status != StatusActive {
		return PendingTask{}, ErrMatchNotActive
	}

	return s.tasks.GetOrCreate(ctx, matchID, userID)
}

// Answer checks a submission against the caller's outstanding task. A
// correct answer scores a point, refreshes liveness, and discards the
// task; a wrong one mutates nothing. A task id that is not the current
// outstanding one is rejected outright so regenerated tasks cannot be
// replayed.
func (s *Service) Answer(ctx context.Context, userID, matchID, taskID uuid.UUID, value int) (bool, error) {
	st, err := s.loadForParticipant(ctx, userID, matchID)
	if err != nil {
		return false, err
	}
	if st.Match.Status != StatusActive {
		return false, ErrMatchNotActive
	}
	if st.Match.EndsAt != nil && s.now().After(*st.Match.EndsAt) {
		// The round is over; settle before rejecting.
		if _, err := s.advance(ctx, st); err != nil {
			return false, err
		}
		return false, ErrMatchEnded
	}

	task, err := s.tasks.Outstanding(ctx, matchID, userID)
	if err != nil {
		return false, err
	}
	if task == nil || task.TaskID != taskID {
		return false, ErrInvalidTask
	}

	if value != task.Correct {
		s.metrics.Answers.WithLabelValues("wrong").Inc()
		return false, nil
	}

	if err := s.store.RecordCorrectAnswer(ctx, matchID, userID, s.now()); err != nil {
		return false, err
	}
	if err := s.tasks.Clear(ctx, matchID, userID); err != nil {
		s.logger.Warn().Err(err).Str("match_id", matchID.String()).Msg("failed to clear answered task")
	}
	s.metrics.Answers.WithLabelValues("correct").Inc()
	return true, nil
}

// Leave marks the caller as gone and settles the match with reason LEAVE
// if it is running. Leaving a WAITING match only stamps the row.
func (s *Service) Leave(ctx context.Context, userID, matchID uuid.UUID) error {
	st, err := s.loadForParticipant(ctx, userID, matchID)
	if err != nil {
		return err
	}

	if err := s.store.MarkLeft(ctx, matchID, userID, s.now()); err != nil {
		return err
	}

	if st, err = s.store.GetMatchState(ctx, matchID); err != nil {
		return err
	}
	return s.finalize(ctx, st, ReasonLeave)
}

// ForceFinish settles a running match immediately with reason TIME, so
// scores (or a tie) decide the payout. Unknown or already finished
// matches are a no-op.
func (s *Service) ForceFinish(ctx context.Context, matchID uuid.UUID) error {
	st, err := s.store.GetMatchState(ctx, matchID)
	if errors.Is(err, ErrMatchNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.finalize(ctx, st, ReasonTime)
}

// Inspect charges the fixed fee and returns the target's public battle
// stats. The fee is debited with a balance guard so a concurrent spend
// cannot push the viewer negative.
func (s *Service) Inspect(ctx context.Context, viewerID, targetID uuid.UUID) (User, int64, error) {
	viewer, err := s.store.GetUser(ctx, viewerID)
	if err != nil {
		return User{}, 0, err
	}
	if viewer.Coins < s.inspectFee {
		return User{}, 0, ErrInsufficientCoins
	}

	target, err := s.store.GetUser(ctx, targetID)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, 0, ErrTargetNotFound
	}
	if err != nil {
		return User{}, 0, err
	}

	if err := s.store.ChargeInspectFee(ctx, viewerID, s.inspectFee); err != nil {
		return User{}, 0, err
	}
	return target, s.inspectFee, nil
}

func (s *Service) loadForParticipant(ctx context.Context, userID, matchID uuid.UUID) (*MatchState, error) {
	st, err := s.store.GetMatchState(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if st.ParticipantFor(userID) == nil {
		return nil, ErrNotInMatch
	}
	return st, nil
}

// advance applies the liveness rules once and settles the match if a rule
// fired. It returns the freshest state it has.
func (s *Service) advance(ctx context.Context, st *MatchState) (*MatchState, error) {
	v := checkLiveness(st, s.now(), s.disconnectThreshold)
	if v.reason == "" {
		return st, nil
	}

	if v.staleUser != nil {
		if err := s.store.MarkLeft(ctx, st.Match.ID, *v.staleUser, s.now()); err != nil {
			return nil, err
		}
		var err error
		if st, err = s.store.GetMatchState(ctx, st.Match.ID); err != nil {
			return nil, err
		}
	}

	if err := s.finalize(ctx, st, v.reason); err != nil {
		return nil, err
	}
	return s.store.GetMatchState(ctx, st.Match.ID)
}

// finalize settles a match at most once. Losing the settlement race to a
// concurrent finalize is not an error; the store's FINISHED guard makes
// the second application a no-op.
func (s *Service) finalize(ctx context.Context, st *MatchState, reason string) error {
	if st.Match.Status != StatusActive || len(st.Participants) < 2 {
		return nil
	}

	settlement := computeSettlement(st.Match, st.Participants, reason)
	if err := s.store.Settle(ctx, settlement); err != nil {
		if errors.Is(err, ErrMatchFinished) {
			return nil
		}
		return fmt.Errorf("settle match: %w", err)
	}

	s.metrics.Settlements.WithLabelValues(settlement.Reason).Inc()
	event := s.logger.Info().
		Str("match_id", st.Match.ID.String()).
		Str("reason", settlement.Reason).
		Int64("system_fee", settlement.SystemFee)
	if settlement.WinnerUserID != nil {
		event = event.Str("winner_user_id", settlement.WinnerUserID.String())
	}
	event.Msg("match settled")

	// Outstanding tasks are garbage once the match is FINISHED.
	for _, p := range st.Participants {
		if err := s.tasks.Clear(ctx, st.Match.ID, p.UserID); err != nil {
			s.logger.Warn().Err(err).Str("match_id", st.Match.ID.String()).Msg("failed to drop finished match task")
		}
	}
	return nil
}
