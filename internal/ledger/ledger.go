// Package ledger holds the payout and settlement arithmetic for shared bets.
// Everything here is a pure function over its inputs; persistence and locking
// live in the service layer.
package ledger

import (
	"errors"
	"fmt"
	"math"

	"github.com/RyanDutko/Bet-Ledger/internal/model"
	"github.com/shopspring/decimal"
)

// ShareEpsilon is the tolerance when checking that fractions sum to 1.0.
const ShareEpsilon = 1e-6

var (
	ErrInvalidOdds          = errors.New("ledger: american odds must be a nonzero integer")
	ErrInvalidStake         = errors.New("ledger: stake must be positive")
	ErrShareMismatch        = errors.New("ledger: participant shares do not cover the total stake")
	ErrUnresolved           = errors.New("ledger: bet has pending legs and no losing leg")
	ErrUnknownLegResult     = errors.New("ledger: unknown leg result")
	ErrAlreadySettled       = errors.New("ledger: bet is already settled")
	ErrConcurrentSettlement = errors.New("ledger: bet was modified by a concurrent settlement")
)

var oneHundred = decimal.NewFromInt(100)

// AmericanToDecimal converts American odds to a decimal payout multiplier.
// +150 -> 2.5, -200 -> 1.5.
func AmericanToDecimal(americanOdds int) (float64, error) {
	if americanOdds == 0 {
		return 0, ErrInvalidOdds
	}
	if americanOdds > 0 {
		return 1 + float64(americanOdds)/100, nil
	}
	return 1 + 100/math.Abs(float64(americanOdds)), nil
}

// DecimalToAmerican converts a decimal payout multiplier back to American
// odds for display. Multipliers at or below 1.0 carry no payout and are
// rejected.
func DecimalToAmerican(decimalOdds float64) (int, error) {
	if decimalOdds <= 1 {
		return 0, fmt.Errorf("%w: decimal odds %v", ErrInvalidOdds, decimalOdds)
	}
	if decimalOdds >= 2 {
		return int(math.Round((decimalOdds - 1) * 100)), nil
	}
	return int(math.Round(-100 / (decimalOdds - 1))), nil
}

// ComputePayout returns the winnings (excluding the returned stake) in cents
// for a single price. Positive odds pay stake*odds/100, negative odds pay
// stake*100/|odds|, rounded half-up to whole cents.
func ComputePayout(stakeCents int64, americanOdds int) (int64, error) {
	if stakeCents <= 0 {
		return 0, ErrInvalidStake
	}
	if americanOdds == 0 {
		return 0, ErrInvalidOdds
	}
	stake := decimal.NewFromInt(stakeCents)
	var payout decimal.Decimal
	if americanOdds > 0 {
		payout = stake.Mul(decimal.NewFromInt(int64(americanOdds))).Div(oneHundred)
	} else {
		payout = stake.Mul(oneHundred).Div(decimal.NewFromInt(-int64(americanOdds)))
	}
	return payout.Round(0).IntPart(), nil
}

// ParlayPayout is the gross return (stake included) in cents for a stake at
// combined decimal odds, rounded half-up to whole cents.
func ParlayPayout(stakeCents int64, decimalOdds float64) (int64, error) {
	if stakeCents <= 0 {
		return 0, ErrInvalidStake
	}
	if decimalOdds <= 0 {
		return 0, fmt.Errorf("%w: decimal odds %v", ErrInvalidOdds, decimalOdds)
	}
	return decimal.NewFromInt(stakeCents).
		Mul(decimal.NewFromFloat(decimalOdds)).
		Round(0).IntPart(), nil
}

// Share is one participant's fraction of a stake.
type Share struct {
	PersonID uint64
	Fraction float64
}

// SplitStakes divides totalCents between participants according to their
// fractions. Every fraction must be positive and they must sum to 1.0 within
// ShareEpsilon. Each amount is
// the proportional part rounded to whole cents; the last participant absorbs
// the rounding residual so the amounts always sum exactly to totalCents.
func SplitStakes(totalCents int64, shares []Share) ([]int64, error) {
	if totalCents <= 0 {
		return nil, ErrInvalidStake
	}
	if len(shares) == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrShareMismatch)
	}
	sum := 0.0
	for _, s := range shares {
		if s.Fraction <= 0 {
			return nil, fmt.Errorf("%w: fraction %v", ErrShareMismatch, s.Fraction)
		}
		sum += s.Fraction
	}
	if math.Abs(sum-1.0) > ShareEpsilon {
		return nil, fmt.Errorf("%w: fractions sum to %v", ErrShareMismatch, sum)
	}

	total := decimal.NewFromInt(totalCents)
	amounts := make([]int64, len(shares))
	var allocated int64
	for i, s := range shares[:len(shares)-1] {
		amounts[i] = total.Mul(decimal.NewFromFloat(s.Fraction)).Round(0).IntPart()
		allocated += amounts[i]
	}
	amounts[len(shares)-1] = totalCents - allocated
	return amounts, nil
}

// LegInput is one leg's price and resolved state as fed into Settle.
type LegInput struct {
	LegID        uint64
	AmericanOdds int
	Result       model.LegResult
}

// ParticipantStake is one person's fixed stake in the bet.
type ParticipantStake struct {
	PersonID   uint64
	StakeCents int64
}

// SettleInput is everything Settle needs; callers snapshot it from storage.
type SettleInput struct {
	StakeCents   int64
	Legs         []LegInput
	Participants []ParticipantStake
}

// Line is one participant's realized net in a settlement.
type Line struct {
	PersonID uint64
	NetCents int64
}

// Result is the settlement decision for a bet. GrossPayoutCents is zero
// unless the bet was won.
type Result struct {
	Outcome          model.BetOutcome
	GrossPayoutCents int64
	Lines            []Line
}

// Settle decides a bet from its leg outcomes. The forfeiture policy is
// parlay semantics: the first LOST leg loses the entire stake immediately,
// even while other legs are still pending. A win requires every leg to be
// resolved with no losses and at least one WON leg; VOID legs price at 1.0.
// All-void bets return every stake (net zero). With pending legs and no loss
// there is nothing to settle and ErrUnresolved is returned.
//
// Settle is deterministic: identical inputs always produce identical Results.
func Settle(in SettleInput) (*Result, error) {
	if in.StakeCents <= 0 {
		return nil, ErrInvalidStake
	}
	if len(in.Legs) == 0 {
		return nil, fmt.Errorf("%w: bet has no legs", ErrUnknownLegResult)
	}
	var participantTotal int64
	for _, p := range in.Participants {
		if p.StakeCents <= 0 {
			return nil, ErrInvalidStake
		}
		participantTotal += p.StakeCents
	}
	if participantTotal != in.StakeCents {
		return nil, fmt.Errorf("%w: participant stakes sum to %d, bet stake is %d",
			ErrShareMismatch, participantTotal, in.StakeCents)
	}

	anyLost, anyPending, anyWon := false, false, false
	for _, leg := range in.Legs {
		switch leg.Result {
		case model.LegResultLost:
			anyLost = true
		case model.LegResultPending:
			anyPending = true
		case model.LegResultWon:
			anyWon = true
		case model.LegResultVoid:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownLegResult, leg.Result)
		}
		if leg.AmericanOdds == 0 {
			return nil, ErrInvalidOdds
		}
	}

	switch {
	case anyLost:
		lines := make([]Line, len(in.Participants))
		for i, p := range in.Participants {
			lines[i] = Line{PersonID: p.PersonID, NetCents: -p.StakeCents}
		}
		return &Result{Outcome: model.BetOutcomeLost, Lines: lines}, nil

	case anyPending:
		return nil, ErrUnresolved

	case !anyWon:
		// Every leg void: stakes come back, nobody wins or loses.
		lines := make([]Line, len(in.Participants))
		for i, p := range in.Participants {
			lines[i] = Line{PersonID: p.PersonID}
		}
		return &Result{Outcome: model.BetOutcomeVoid, Lines: lines}, nil
	}

	decimalOdds, err := CombinedDecimalOdds(in.Legs)
	if err != nil {
		return nil, err
	}
	gross, err := ParlayPayout(in.StakeCents, decimalOdds)
	if err != nil {
		return nil, err
	}

	shares := make([]Share, len(in.Participants))
	for i, p := range in.Participants {
		shares[i] = Share{
			PersonID: p.PersonID,
			Fraction: float64(p.StakeCents) / float64(in.StakeCents),
		}
	}
	amounts, err := SplitStakes(gross, shares)
	if err != nil {
		return nil, err
	}

	lines := make([]Line, len(in.Participants))
	for i, p := range in.Participants {
		lines[i] = Line{PersonID: p.PersonID, NetCents: amounts[i] - p.StakeCents}
	}
	return &Result{
		Outcome:          model.BetOutcomeWon,
		GrossPayoutCents: gross,
		Lines:            lines,
	}, nil
}

// CombinedDecimalOdds multiplies the decimal odds of every WON or PENDING
// leg; VOID legs contribute 1.0. Used both for settlement and for the
// potential-payout preview on open bets.
func CombinedDecimalOdds(legs []LegInput) (float64, error) {
	combined := 1.0
	for _, leg := range legs {
		if leg.Result == model.LegResultVoid {
			continue
		}
		dec, err := AmericanToDecimal(leg.AmericanOdds)
		if err != nil {
			return 0, err
		}
		combined *= dec
	}
	return combined, nil
}
