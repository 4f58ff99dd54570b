package service

import (
	"context"

	"github.com/RyanDutko/Bet-Ledger/internal/ledger"
	"github.com/RyanDutko/Bet-Ledger/internal/model"
	"github.com/RyanDutko/Bet-Ledger/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SummaryService computes the dashboard aggregates: per-person ownership,
// live money and exposure, plus the open-bet list with potential payouts.
type SummaryService struct {
	logger  *logrus.Logger
	bets    repository.BetRepository
	persons repository.PersonRepository
}

// NewSummaryService creates a SummaryService.
func NewSummaryService(db *gorm.DB, logger *logrus.Logger) *SummaryService {
	return &SummaryService{
		logger:  logger,
		bets:    repository.NewBetRepository(db),
		persons: repository.NewPersonRepository(db),
	}
}

// PersonSummary is one person's position in the shared bankroll.
// Ownership = deposits/withdrawals/adjustments + realized settlement nets.
// Live money = ownership minus the stake tied up in open bets.
type PersonSummary struct {
	PersonID         uint64 `json:"person_id"`
	Name             string `json:"name"`
	OwnershipCents   int64  `json:"ownership_cents"`
	OwnershipDollars string `json:"ownership_dollars"`
	LiveMoneyCents   int64  `json:"live_money_cents"`
	LiveMoneyDollars string `json:"live_money_dollars"`
	ExposureCents    int64  `json:"exposure_cents"`
	ExposureDollars  string `json:"exposure_dollars"`
}

// OpenBetSummary is one unsettled bet with its potential gross payout.
type OpenBetSummary struct {
	BetUUID                string                 `json:"bet_uuid"`
	Status                 model.BetStatus        `json:"status"`
	PlacedAt               string                 `json:"placed_at"`
	Legs                   []model.BetLeg         `json:"legs"`
	Participants           []model.BetParticipant `json:"participants"`
	TotalStakeCents        int64                  `json:"total_stake_cents"`
	TotalStakeDollars      string                 `json:"total_stake_dollars"`
	PotentialPayoutCents   int64                  `json:"potential_payout_cents"`
	PotentialPayoutDollars string                 `json:"potential_payout_dollars"`
}

// Overview is the dashboard payload.
type Overview struct {
	People               []PersonSummary  `json:"people"`
	OpenBets             []OpenBetSummary `json:"open_bets"`
	TotalExposureCents   int64            `json:"total_exposure_cents"`
	TotalExposureDollars string           `json:"total_exposure_dollars"`
}

// Overview aggregates the whole ledger for the dashboard.
func (s *SummaryService) Overview(ctx context.Context) (*Overview, error) {
	persons, err := s.persons.ListPersons(ctx)
	if err != nil {
		return nil, err
	}

	people := make([]PersonSummary, 0, len(persons))
	for _, p := range persons {
		txTotal, err := s.persons.SumTransactions(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		netTotal, err := s.persons.SumSettlementNets(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		exposure, err := s.persons.SumOpenStakes(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		ownership := txTotal + netTotal
		live := ownership - exposure
		people = append(people, PersonSummary{
			PersonID:         p.ID,
			Name:             p.Name,
			OwnershipCents:   ownership,
			OwnershipDollars: FormatDollars(ownership),
			LiveMoneyCents:   live,
			LiveMoneyDollars: FormatDollars(live),
			ExposureCents:    exposure,
			ExposureDollars:  FormatDollars(exposure),
		})
	}

	openBets, err := s.bets.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]OpenBetSummary, 0, len(openBets))
	for _, bet := range openBets {
		legs := make([]ledger.LegInput, 0, len(bet.Legs))
		for _, leg := range bet.Legs {
			legs = append(legs, ledger.LegInput{
				LegID:        leg.ID,
				AmericanOdds: leg.AmericanOdds,
				Result:       leg.Result,
			})
		}
		decimalOdds, err := ledger.CombinedDecimalOdds(legs)
		if err != nil {
			return nil, err
		}
		payout, err := ledger.ParlayPayout(bet.StakeCents, decimalOdds)
		if err != nil {
			return nil, err
		}
		open = append(open, OpenBetSummary{
			BetUUID:                bet.BetUUID,
			Status:                 bet.Status,
			PlacedAt:               bet.PlacedAt.Format("2006-01-02 15:04"),
			Legs:                   bet.Legs,
			Participants:           bet.Participants,
			TotalStakeCents:        bet.StakeCents,
			TotalStakeDollars:      FormatDollars(bet.StakeCents),
			PotentialPayoutCents:   payout,
			PotentialPayoutDollars: FormatDollars(payout),
		})
	}

	totalExposure, err := s.persons.SumTotalOpenStakes(ctx)
	if err != nil {
		return nil, err
	}
	return &Overview{
		People:               people,
		OpenBets:             open,
		TotalExposureCents:   totalExposure,
		TotalExposureDollars: FormatDollars(totalExposure),
	}, nil
}
