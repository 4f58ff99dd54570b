package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/RyanDutko/Bet-Ledger/internal/ledger"
	"github.com/RyanDutko/Bet-Ledger/internal/model"
	"github.com/RyanDutko/Bet-Ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettlementService applies leg outcomes to a bet and books the results.
// The arithmetic lives in the ledger package; this layer owns persistence,
// idempotency and the per-bet mutual exclusion.
type SettlementService struct {
	db     *gorm.DB
	logger *logrus.Logger
	bets   repository.BetRepository
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(db *gorm.DB, logger *logrus.Logger) *SettlementService {
	return &SettlementService{
		db:     db,
		logger: logger,
		bets:   repository.NewBetRepository(db),
	}
}

// LegOutcomeInput is one submitted leg result. PENDING leaves the stored
// result untouched, so a settle form can be submitted with partial results.
type LegOutcomeInput struct {
	LegID  uint64          `json:"leg_id"`
	Result model.LegResult `json:"result"`
}

// SettleRequest is the body of POST /api/bets/:bet_uuid/settle.
type SettleRequest struct {
	Outcomes []LegOutcomeInput `json:"outcomes"`
}

// SettleResponse reports what the settle call did. Settlements is empty when
// the bet merely advanced to PARTIALLY_SETTLED.
type SettleResponse struct {
	BetUUID          string              `json:"bet_uuid"`
	Status           model.BetStatus     `json:"status"`
	Outcome          model.BetOutcome    `json:"outcome,omitempty"`
	GrossPayoutCents int64               `json:"gross_payout_cents"`
	Settlements      []*model.Settlement `json:"settlements,omitempty"`
}

// snapshotLeg is the canonical per-leg entry in the outcome snapshot.
type snapshotLeg struct {
	LegID  uint64          `json:"leg_id"`
	Result model.LegResult `json:"result"`
}

// Settle resolves leg outcomes for a bet inside one transaction.
//
// Re-submitting the exact outcomes of an already settled bet returns the
// stored settlement rows unchanged; submitting different outcomes fails with
// ErrAlreadySettled. The status transition is guarded by the version the bet
// was read at, so of two simultaneous settle calls exactly one applies and
// the other fails with ErrConcurrentSettlement.
func (s *SettlementService) Settle(ctx context.Context, betUUID string, req *SettleRequest) (*SettleResponse, error) {
	var resp *SettleResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		resp, err = s.settleTx(ctx, s.bets.WithTx(tx), betUUID, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *SettlementService) settleTx(ctx context.Context, repo repository.BetRepository, betUUID string, req *SettleRequest) (*SettleResponse, error) {
	bet, err := repo.GetByUUID(ctx, betUUID)
	if err != nil {
		return nil, err
	}

	updates, err := applyOutcomes(bet.Legs, req.Outcomes)
	if err != nil {
		return nil, err
	}
	entries := snapshotEntries(bet.Legs)

	if bet.Status == model.BetStatusSettled {
		// Comparison is on decoded values, not bytes: the jsonb column type
		// re-renders the stored document and does not preserve formatting.
		var stored []snapshotLeg
		if err := json.Unmarshal(bet.OutcomeSnapshot, &stored); err != nil {
			return nil, fmt.Errorf("decode outcome snapshot: %w", err)
		}
		if slices.Equal(stored, entries) {
			// Same inputs as the settlement on record: answer with the
			// existing rows instead of booking anything twice.
			settlements := make([]*model.Settlement, len(bet.Settlements))
			var gross int64
			for i := range bet.Settlements {
				settlements[i] = &bet.Settlements[i]
				gross += bet.Settlements[i].NetCents
			}
			if bet.Outcome == model.BetOutcomeWon {
				gross += bet.StakeCents
			} else {
				gross = 0
			}
			return &SettleResponse{
				BetUUID:          bet.BetUUID,
				Status:           bet.Status,
				Outcome:          bet.Outcome,
				GrossPayoutCents: gross,
				Settlements:      settlements,
			}, nil
		}
		return nil, ledger.ErrAlreadySettled
	}

	in := ledger.SettleInput{StakeCents: bet.StakeCents}
	for _, leg := range bet.Legs {
		in.Legs = append(in.Legs, ledger.LegInput{
			LegID:        leg.ID,
			AmericanOdds: leg.AmericanOdds,
			Result:       leg.Result,
		})
	}
	for _, p := range bet.Participants {
		in.Participants = append(in.Participants, ledger.ParticipantStake{
			PersonID:   p.PersonID,
			StakeCents: p.StakeCents,
		})
	}

	result, err := ledger.Settle(in)
	if errors.Is(err, ledger.ErrUnresolved) {
		// Nothing final yet: record the leg results and keep the bet live.
		if err := repo.UpdateLegResults(ctx, updates); err != nil {
			return nil, err
		}
		status := model.BetStatusOpen
		for _, leg := range bet.Legs {
			if leg.Result != model.LegResultPending {
				status = model.BetStatusPartiallySettled
				break
			}
		}
		rows, err := repo.AdvanceBet(ctx, bet.ID, bet.Version, status)
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			return nil, ledger.ErrConcurrentSettlement
		}
		return &SettleResponse{BetUUID: bet.BetUUID, Status: status}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := repo.UpdateLegResults(ctx, updates); err != nil {
		return nil, err
	}
	now := time.Now()
	settlements := make([]*model.Settlement, len(result.Lines))
	for i, line := range result.Lines {
		settlements[i] = &model.Settlement{
			SettlementUUID: uuid.NewString(),
			BetID:          bet.ID,
			PersonID:       line.PersonID,
			NetCents:       line.NetCents,
			TS:             now,
		}
	}
	if err := repo.CreateSettlements(ctx, settlements); err != nil {
		return nil, fmt.Errorf("create settlements: %w", err)
	}
	snapshot, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode outcome snapshot: %w", err)
	}
	rows, err := repo.FinalizeBet(ctx, bet.ID, bet.Version, result.Outcome, snapshot, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Rolls back the settlement rows with the transaction.
		return nil, ledger.ErrConcurrentSettlement
	}

	s.logger.WithFields(logrus.Fields{
		"bet_uuid": bet.BetUUID,
		"outcome":  result.Outcome,
		"gross":    result.GrossPayoutCents,
	}).Info("bet settled")
	return &SettleResponse{
		BetUUID:          bet.BetUUID,
		Status:           model.BetStatusSettled,
		Outcome:          result.Outcome,
		GrossPayoutCents: result.GrossPayoutCents,
		Settlements:      settlements,
	}, nil
}

// applyOutcomes mutates legs in place with the submitted results and returns
// the changed results keyed by leg id.
func applyOutcomes(legs []model.BetLeg, outcomes []LegOutcomeInput) (map[uint64]model.LegResult, error) {
	byID := make(map[uint64]*model.BetLeg, len(legs))
	for i := range legs {
		byID[legs[i].ID] = &legs[i]
	}
	updates := make(map[uint64]model.LegResult)
	for _, o := range outcomes {
		leg, ok := byID[o.LegID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown leg %d", ErrValidation, o.LegID)
		}
		switch o.Result {
		case model.LegResultPending, "":
			// Leaves the stored result as is.
		case model.LegResultWon, model.LegResultLost, model.LegResultVoid:
			if leg.Result != o.Result {
				leg.Result = o.Result
				updates[o.LegID] = o.Result
			}
		default:
			return nil, fmt.Errorf("%w: %q", ledger.ErrUnknownLegResult, o.Result)
		}
	}
	return updates, nil
}

// snapshotEntries lists leg results in leg-id order so equal inputs always
// produce equal snapshots regardless of submission order.
func snapshotEntries(legs []model.BetLeg) []snapshotLeg {
	entries := make([]snapshotLeg, len(legs))
	for i, leg := range legs {
		entries[i] = snapshotLeg{LegID: leg.ID, Result: leg.Result}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].LegID < entries[j].LegID })
	return entries
}
