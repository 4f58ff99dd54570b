package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RyanDutko/Bet-Ledger/internal/ledger"
	"github.com/RyanDutko/Bet-Ledger/internal/model"
	"github.com/RyanDutko/Bet-Ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrValidation marks malformed requests; handlers map it to 400.
var ErrValidation = errors.New("service: invalid request")

// BetService creates and queries bets.
type BetService struct {
	db      *gorm.DB
	logger  *logrus.Logger
	bets    repository.BetRepository
	persons repository.PersonRepository
}

// NewBetService creates a BetService.
func NewBetService(db *gorm.DB, logger *logrus.Logger) *BetService {
	return &BetService{
		db:      db,
		logger:  logger,
		bets:    repository.NewBetRepository(db),
		persons: repository.NewPersonRepository(db),
	}
}

// CreateLegRequest is one leg of a new bet.
type CreateLegRequest struct {
	Matchup      string `json:"matchup"`
	Description  string `json:"description"`
	AmericanOdds int    `json:"american_odds"`
}

// CreateParticipantRequest is one person's stake on a new bet, in dollars.
type CreateParticipantRequest struct {
	PersonID uint64 `json:"person_id"`
	Stake    string `json:"stake"`
}

// CreateBetRequest is the body of POST /api/bets.
type CreateBetRequest struct {
	Legs         []CreateLegRequest         `json:"legs"`
	Participants []CreateParticipantRequest `json:"participants"`
}

// Create validates and stores a new OPEN bet with its legs and participants.
// The bet's stake is the sum of the participant stakes.
func (s *BetService) Create(ctx context.Context, req *CreateBetRequest) (*model.Bet, error) {
	if len(req.Legs) == 0 {
		return nil, fmt.Errorf("%w: at least one leg is required", ErrValidation)
	}
	if len(req.Participants) == 0 {
		return nil, fmt.Errorf("%w: at least one participant is required", ErrValidation)
	}

	legs := make([]model.BetLeg, 0, len(req.Legs))
	for _, l := range req.Legs {
		if l.Matchup == "" || l.Description == "" {
			return nil, fmt.Errorf("%w: leg matchup and description are required", ErrValidation)
		}
		if l.AmericanOdds == 0 {
			return nil, ledger.ErrInvalidOdds
		}
		legs = append(legs, model.BetLeg{
			Matchup:      l.Matchup,
			Description:  l.Description,
			AmericanOdds: l.AmericanOdds,
			Result:       model.LegResultPending,
		})
	}

	var totalStake int64
	participants := make([]model.BetParticipant, 0, len(req.Participants))
	for _, p := range req.Participants {
		cents, err := ParseDollars(p.Stake)
		if err != nil {
			return nil, err
		}
		if cents <= 0 {
			return nil, ledger.ErrInvalidStake
		}
		if _, err := s.persons.GetPerson(ctx, p.PersonID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: unknown person %d", ErrValidation, p.PersonID)
			}
			return nil, err
		}
		participants = append(participants, model.BetParticipant{
			PersonID:   p.PersonID,
			StakeCents: cents,
		})
		totalStake += cents
	}

	bet := &model.Bet{
		BetUUID:      uuid.NewString(),
		StakeCents:   totalStake,
		Status:       model.BetStatusOpen,
		Version:      1,
		PlacedAt:     time.Now(),
		Legs:         legs,
		Participants: participants,
	}
	if err := s.bets.CreateBet(ctx, bet); err != nil {
		return nil, fmt.Errorf("create bet: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"bet_uuid":    bet.BetUUID,
		"stake_cents": bet.StakeCents,
		"legs":        len(bet.Legs),
	}).Info("bet created")
	return bet, nil
}

// PreviewResponse is the potential payout for a bet that has not been placed.
type PreviewResponse struct {
	TotalStakeCents        int64   `json:"total_stake_cents"`
	TotalStakeDollars      string  `json:"total_stake_dollars"`
	DecimalOdds            float64 `json:"decimal_odds"`
	TotalAmericanOdds      int     `json:"total_american_odds"`
	PotentialPayoutCents   int64   `json:"potential_payout_cents"`
	PotentialPayoutDollars string  `json:"potential_payout_dollars"`
}

// Preview computes combined odds and gross potential payout without
// persisting anything. The payout figure includes the returned stake,
// mirroring what a sportsbook slip shows.
func (s *BetService) Preview(req *CreateBetRequest) (*PreviewResponse, error) {
	if len(req.Legs) == 0 {
		return nil, fmt.Errorf("%w: at least one leg is required", ErrValidation)
	}
	legs := make([]ledger.LegInput, 0, len(req.Legs))
	for _, l := range req.Legs {
		legs = append(legs, ledger.LegInput{
			AmericanOdds: l.AmericanOdds,
			Result:       model.LegResultPending,
		})
	}
	decimalOdds, err := ledger.CombinedDecimalOdds(legs)
	if err != nil {
		return nil, err
	}
	american, err := ledger.DecimalToAmerican(decimalOdds)
	if err != nil {
		return nil, err
	}

	var totalStake int64
	for _, p := range req.Participants {
		cents, err := ParseDollars(p.Stake)
		if err != nil {
			return nil, err
		}
		if cents <= 0 {
			return nil, ledger.ErrInvalidStake
		}
		totalStake += cents
	}
	if totalStake <= 0 {
		return nil, ledger.ErrInvalidStake
	}

	gross, err := ledger.ParlayPayout(totalStake, decimalOdds)
	if err != nil {
		return nil, err
	}
	return &PreviewResponse{
		TotalStakeCents:        totalStake,
		TotalStakeDollars:      FormatDollars(totalStake),
		DecimalOdds:            decimalOdds,
		TotalAmericanOdds:      american,
		PotentialPayoutCents:   gross,
		PotentialPayoutDollars: FormatDollars(gross),
	}, nil
}

// Get loads one bet with legs, participants and settlements.
func (s *BetService) Get(ctx context.Context, betUUID string) (*model.Bet, error) {
	return s.bets.GetByUUID(ctx, betUUID)
}

// ListResponse is a page of bet history.
type ListResponse struct {
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Bets     []*model.Bet `json:"bets"`
}

// List returns filtered bet history, newest first.
func (s *BetService) List(ctx context.Context, filter repository.BetFilter, page, pageSize int) (*ListResponse, error) {
	bets, total, err := s.bets.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &ListResponse{Total: total, Page: page, PageSize: pageSize, Bets: bets}, nil
}
