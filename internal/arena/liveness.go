package arena

import (
	"time"

	"github.com/google/uuid"
)

// livenessVerdict is the outcome of applying the liveness rules to an
// ACTIVE match at one instant.
type livenessVerdict struct {
	reason    string     // "" when the match should keep running
	staleUser *uuid.UUID // set only for DISCONNECT: whose leftAt to stamp
}

// checkLiveness applies the rules in fixed order and returns the first
// that fires:
//
//  1. the round clock ran out           -> TIME
//  2. a participant already left        -> LEAVE
//  3. a participant's last ping/answer is older than the threshold
//     -> DISCONNECT (that participant is marked as left first)
//
// A participant with no liveness stamp at all counts as stale.
func checkLiveness(st *MatchState, now time.Time, threshold time.Duration) livenessVerdict {
	if st.Match.Status != StatusActive || len(st.Participants) < 2 {
		return livenessVerdict{}
	}

	if st.Match.EndsAt != nil && now.After(*st.Match.EndsAt) {
		return livenessVerdict{reason: ReasonTime}
	}

	for _, p := range st.Participants {
		if p.LeftAt != nil {
			return livenessVerdict{reason: ReasonLeave}
		}
	}

	for _, p := range st.Participants {
		if p.LastPingAt == nil || now.Sub(*p.LastPingAt) > threshold {
			userID := p.UserID
			return livenessVerdict{reason: ReasonDisconnect, staleUser: &userID}
		}
	}

	return livenessVerdict{}
}
