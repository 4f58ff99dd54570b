package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/RyanDutko/Bet-Ledger/internal/ledger"
	"github.com/RyanDutko/Bet-Ledger/internal/model"
	"github.com/RyanDutko/Bet-Ledger/internal/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func singleLeg(odds int) []CreateLegRequest {
	return []CreateLegRequest{{Matchup: "DET @ GB", Description: "DET ML", AmericanOdds: odds}}
}

func TestSettlementService_WinPaysProRata(t *testing.T) {
	db := newTestDB(t)
	bet := createSixtyFortyBet(t, db, singleLeg(150))
	svc := NewSettlementService(db, newTestLogger())

	resp, err := svc.Settle(context.Background(), bet.BetUUID, &SettleRequest{
		Outcomes: []LegOutcomeInput{{LegID: bet.Legs[0].ID, Result: model.LegResultWon}},
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if resp.Status != model.BetStatusSettled || resp.Outcome != model.BetOutcomeWon {
		t.Fatalf("got status=%s outcome=%s, want SETTLED/WON", resp.Status, resp.Outcome)
	}
	if resp.GrossPayoutCents != 25000 {
		t.Errorf("gross = %d, want 25000", resp.GrossPayoutCents)
	}
	nets := map[uint64]int64{}
	for _, s := range resp.Settlements {
		nets[s.PersonID] = s.NetCents
	}
	if nets[bet.Participants[0].PersonID] != 9000 || nets[bet.Participants[1].PersonID] != 6000 {
		t.Errorf("nets = %v, want 9000/6000", nets)
	}

	var stored model.Bet
	if err := db.Where("bet_uuid = ?", bet.BetUUID).First(&stored).Error; err != nil {
		t.Fatalf("reload bet: %v", err)
	}
	if stored.Status != model.BetStatusSettled || stored.SettledAt == nil {
		t.Errorf("stored bet not settled: status=%s settled_at=%v", stored.Status, stored.SettledAt)
	}
	if stored.Version != bet.Version+1 {
		t.Errorf("version = %d, want %d", stored.Version, bet.Version+1)
	}
}

func TestSettlementService_ResubmitIdenticalOutcomesIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	bet := createSixtyFortyBet(t, db, singleLeg(150))
	svc := NewSettlementService(db, newTestLogger())
	req := &SettleRequest{
		Outcomes: []LegOutcomeInput{{LegID: bet.Legs[0].ID, Result: model.LegResultWon}},
	}

	first, err := svc.Settle(context.Background(), bet.BetUUID, req)
	if err != nil {
		t.Fatalf("first settle: %v", err)
	}
	second, err := svc.Settle(context.Background(), bet.BetUUID, req)
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}

	if len(first.Settlements) != len(second.Settlements) {
		t.Fatalf("settlement counts differ: %d vs %d", len(first.Settlements), len(second.Settlements))
	}
	firstByUUID := map[string]int64{}
	for _, s := range first.Settlements {
		firstByUUID[s.SettlementUUID] = s.NetCents
	}
	for _, s := range second.Settlements {
		if net, ok := firstByUUID[s.SettlementUUID]; !ok || net != s.NetCents {
			t.Errorf("second settle returned a different record: %s net=%d", s.SettlementUUID, s.NetCents)
		}
	}

	var count int64
	if err := db.Model(&model.Settlement{}).Count(&count).Error; err != nil {
		t.Fatalf("count settlements: %v", err)
	}
	if count != 2 {
		t.Errorf("settlement rows = %d, want 2 (no double-booking)", count)
	}
}

func TestSettlementService_DifferentOutcomesAfterSettled(t *testing.T) {
	db := newTestDB(t)
	bet := createSixtyFortyBet(t, db, singleLeg(150))
	svc := NewSettlementService(db, newTestLogger())

	if _, err := svc.Settle(context.Background(), bet.BetUUID, &SettleRequest{
		Outcomes: []LegOutcomeInput{{LegID: bet.Legs[0].ID, Result: model.LegResultWon}},
	}); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	_, err := svc.Settle(context.Background(), bet.BetUUID, &SettleRequest{
		Outcomes: []LegOutcomeInput{{LegID: bet.Legs[0].ID, Result: model.LegResultLost}},
	})
	if !errors.Is(err, ledger.ErrAlreadySettled) {
		t.Errorf("expected ErrAlreadySettled, got %v", err)
	}
}

func TestSettlementService_PartialResolutionKeepsBetLive(t *testing.T) {
	db := newTestDB(t)
	bet := createSixtyFortyBet(t, db, []CreateLegRequest{
		{Matchup: "DET @ GB", Description: "DET ML", AmericanOdds: 150},
		{Matchup: "LAL @ BOS", Description: "over 210.5", AmericanOdds: -110},
	})
	svc := NewSettlementService(db, newTestLogger())

	resp, err := svc.Settle(context.Background(), bet.BetUUID, &SettleRequest{
		Outcomes: []LegOutcomeInput{{LegID: bet.Legs[0].ID, Result: model.LegResultWon}},
	})
	if err != nil {
		t.Fatalf("partial settle: %v", err)
	}
	if resp.Status != model.BetStatusPartiallySettled {
		t.Fatalf("status = %s, want PARTIALLY_SETTLED", resp.Status)
	}
	if len(resp.Settlements) != 0 {
		t.Errorf("partial resolution wrote %d settlements, want none", len(resp.Settlements))
	}

	// Second leg wins: now the parlay settles at 2.5 * 1.909... combined.
	resp, err = svc.Settle(context.Background(), bet.BetUUID, &SettleRequest{
		Outcomes: []LegOutcomeInput{{LegID: bet.Legs[1].ID, Result: model.LegResultWon}},
	})
	if err != nil {
		t.Fatalf("final settle: %v", err)
	}
	if resp.Status != model.BetStatusSettled || resp.Outcome != model.BetOutcomeWon {
		t.Fatalf("got status=%s outcome=%s, want SETTLED/WON", resp.Status, resp.Outcome)
	}
	// $100 at 2.5 * (1+100/110) = 4.772727... rounds to $477.27 gross.
	if resp.GrossPayoutCents != 47727 {
		t.Errorf("gross = %d, want 47727", resp.GrossPayoutCents)
	}
}

func TestSettlementService_EarlyLossForfeitsWholeStake(t *testing.T) {
	db := newTestDB(t)
	bet := createSixtyFortyBet(t, db, []CreateLegRequest{
		{Matchup: "DET @ GB", Description: "DET ML", AmericanOdds: 150},
		{Matchup: "LAL @ BOS", Description: "over 210.5", AmericanOdds: -110},
	})
	svc := NewSettlementService(db, newTestLogger())

	// One leg loses while the other is still pending: the parlay is dead and
	// settles immediately for the full stake.
	resp, err := svc.Settle(context.Background(), bet.BetUUID, &SettleRequest{
		Outcomes: []LegOutcomeInput{{LegID: bet.Legs[0].ID, Result: model.LegResultLost}},
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if resp.Status != model.BetStatusSettled || resp.Outcome != model.BetOutcomeLost {
		t.Fatalf("got status=%s outcome=%s, want SETTLED/LOST", resp.Status, resp.Outcome)
	}
	var totalNet int64
	for _, s := range resp.Settlements {
		totalNet += s.NetCents
	}
	if totalNet != -10000 {
		t.Errorf("total net = %d, want -10000", totalNet)
	}
}

func TestSettlementService_AllVoidReturnsStakes(t *testing.T) {
	db := newTestDB(t)
	bet := createSixtyFortyBet(t, db, singleLeg(150))
	svc := NewSettlementService(db, newTestLogger())

	resp, err := svc.Settle(context.Background(), bet.BetUUID, &SettleRequest{
		Outcomes: []LegOutcomeInput{{LegID: bet.Legs[0].ID, Result: model.LegResultVoid}},
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if resp.Outcome != model.BetOutcomeVoid {
		t.Fatalf("outcome = %s, want VOID", resp.Outcome)
	}
	for _, s := range resp.Settlements {
		if s.NetCents != 0 {
			t.Errorf("person %d net = %d, want 0", s.PersonID, s.NetCents)
		}
	}
}

func TestSettlementService_IdempotentAcrossSnapshotReformatting(t *testing.T) {
	db := newTestDB(t)
	bet := createSixtyFortyBet(t, db, singleLeg(150))
	svc := NewSettlementService(db, newTestLogger())
	req := &SettleRequest{
		Outcomes: []LegOutcomeInput{{LegID: bet.Legs[0].ID, Result: model.LegResultWon}},
	}

	if _, err := svc.Settle(context.Background(), bet.BetUUID, req); err != nil {
		t.Fatalf("first settle: %v", err)
	}

	// A jsonb column re-renders the stored document with its own spacing and
	// key order, so the bytes on disk need not match what was written.
	reformatted := fmt.Sprintf(`[{"result": "WON", "leg_id": %d}]`, bet.Legs[0].ID)
	if err := db.Model(&model.Bet{}).Where("bet_uuid = ?", bet.BetUUID).
		Update("outcome_snapshot", datatypes.JSON(reformatted)).Error; err != nil {
		t.Fatalf("rewrite snapshot: %v", err)
	}

	resp, err := svc.Settle(context.Background(), bet.BetUUID, req)
	if err != nil {
		t.Fatalf("identical re-submit: %v", err)
	}
	if resp.Outcome != model.BetOutcomeWon || len(resp.Settlements) != 2 {
		t.Errorf("got outcome=%s with %d settlements, want WON with 2", resp.Outcome, len(resp.Settlements))
	}
	var count int64
	if err := db.Model(&model.Settlement{}).Count(&count).Error; err != nil {
		t.Fatalf("count settlements: %v", err)
	}
	if count != 2 {
		t.Errorf("settlement rows = %d, want 2 (no double-booking)", count)
	}
}

// versionBumpingRepo advances the bet's version right after it is read,
// standing in for a second settle call that commits in between.
type versionBumpingRepo struct {
	repository.BetRepository
	tx *gorm.DB
}

func (r *versionBumpingRepo) GetByUUID(ctx context.Context, betUUID string) (*model.Bet, error) {
	bet, err := r.BetRepository.GetByUUID(ctx, betUUID)
	if err != nil {
		return nil, err
	}
	if err := r.tx.Model(&model.Bet{}).Where("id = ?", bet.ID).
		Update("version", bet.Version+1).Error; err != nil {
		return nil, err
	}
	return bet, nil
}

func (r *versionBumpingRepo) WithTx(tx *gorm.DB) repository.BetRepository {
	return &versionBumpingRepo{BetRepository: r.BetRepository.WithTx(tx), tx: tx}
}

func TestSettlementService_ConcurrentUpdateRolledBack(t *testing.T) {
	db := newTestDB(t)
	bet := createSixtyFortyBet(t, db, singleLeg(150))
	svc := NewSettlementService(db, newTestLogger())
	svc.bets = &versionBumpingRepo{BetRepository: repository.NewBetRepository(db), tx: db}

	_, err := svc.Settle(context.Background(), bet.BetUUID, &SettleRequest{
		Outcomes: []LegOutcomeInput{{LegID: bet.Legs[0].ID, Result: model.LegResultWon}},
	})
	if !errors.Is(err, ledger.ErrConcurrentSettlement) {
		t.Fatalf("expected ErrConcurrentSettlement, got %v", err)
	}

	// The losing call's transaction rolled back: nothing was booked.
	var count int64
	if err := db.Model(&model.Settlement{}).Count(&count).Error; err != nil {
		t.Fatalf("count settlements: %v", err)
	}
	if count != 0 {
		t.Errorf("settlement rows = %d, want 0", count)
	}
	var stored model.Bet
	if err := db.Where("bet_uuid = ?", bet.BetUUID).First(&stored).Error; err != nil {
		t.Fatalf("reload bet: %v", err)
	}
	if stored.Status == model.BetStatusSettled {
		t.Errorf("bet was settled despite the version conflict")
	}
}

func TestSettlementService_UnknownLegRejected(t *testing.T) {
	db := newTestDB(t)
	bet := createSixtyFortyBet(t, db, singleLeg(150))
	svc := NewSettlementService(db, newTestLogger())

	_, err := svc.Settle(context.Background(), bet.BetUUID, &SettleRequest{
		Outcomes: []LegOutcomeInput{{LegID: 9999, Result: model.LegResultWon}},
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
