package arena

// computeSettlement turns a termination reason and the current participant
// rows into the full settlement: winner, system fee, and one ledger delta
// per participant. The bank is stake x 2, debited from both players at
// pairing time.
//
// LEAVE / DISCONNECT: the participant still present takes half the bank,
// the platform keeps the rest. If neither row has leftAt (both dropped in
// the same window) the first participant wins the tiebreak.
//
// TIME with unequal scores: the higher score takes the whole bank, no fee.
// TIME with equal scores settles as TIE: each side is refunded half its
// stake and the platform keeps the remainder.
func computeSettlement(m Match, parts []Participant, reason string) Settlement {
	stake := m.Stake
	bank := stake * 2

	s := Settlement{MatchID: m.ID, Reason: reason}

	if reason == ReasonLeave || reason == ReasonDisconnect {
		winner := parts[0]
		for _, p := range parts {
			if p.LeftAt == nil {
				winner = p
				break
			}
		}

		prize := bank / 2
		s.WinnerUserID = &winner.UserID
		s.SystemFee = bank - prize

		earnings := prize - stake
		if earnings < 0 {
			earnings = 0
		}
		s.Deltas = append(s.Deltas, LedgerDelta{
			UserID:   winner.UserID,
			Coins:    prize,
			Wins:     1,
			Earnings: earnings,
		})

		for _, p := range parts {
			if p.UserID == winner.UserID || p.LeftAt == nil {
				continue
			}
			s.Deltas = append(s.Deltas, LedgerDelta{
				UserID:   p.UserID,
				Losses:   1,
				FeesPaid: stake,
			})
		}
		return s
	}

	// TIME: scores decide, equal scores settle as a tie.
	p1, p2 := parts[0], parts[1]
	var winner, loser *Participant
	switch {
	case p1.Score > p2.Score:
		winner, loser = &p1, &p2
	case p2.Score > p1.Score:
		winner, loser = &p2, &p1
	}

	if winner != nil {
		s.Reason = ReasonTime
		s.WinnerUserID = &winner.UserID
		s.Deltas = append(s.Deltas,
			LedgerDelta{
				UserID:   winner.UserID,
				Coins:    bank,
				Wins:     1,
				Earnings: stake,
			},
			LedgerDelta{
				UserID: loser.UserID,
				Losses: 1,
			},
		)
		return s
	}

	refund := stake / 2
	s.Reason = ReasonTie
	s.SystemFee = bank - refund*2
	for _, p := range parts {
		s.Deltas = append(s.Deltas, LedgerDelta{
			UserID:   p.UserID,
			Coins:    refund,
			FeesPaid: stake - refund,
		})
	}
	return s
}
