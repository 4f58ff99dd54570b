package repository

import (
	"context"
	"time"

	"github.com/RyanDutko/Bet-Ledger/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BetFilter narrows history queries.
type BetFilter struct {
	PersonID uint64     // filter through bet_participants when nonzero
	Status   string     // OPEN / PARTIALLY_SETTLED / SETTLED
	From     *time.Time // placed_at >= From
	To       *time.Time // placed_at <= To
}

// BetRepository persists bets, legs, participants and settlement rows.
type BetRepository interface {
	// CreateBet stores a bet together with its legs and participants.
	CreateBet(ctx context.Context, bet *model.Bet) error
	// GetByUUID loads a bet with legs, participants and settlements.
	GetByUUID(ctx context.Context, betUUID string) (*model.Bet, error)
	// List returns bets matching filter, newest first, with the total count.
	List(ctx context.Context, filter BetFilter, page, pageSize int) ([]*model.Bet, int64, error)
	// ListOpen returns OPEN and PARTIALLY_SETTLED bets with associations, newest first.
	ListOpen(ctx context.Context) ([]*model.Bet, error)
	// ListSettled returns SETTLED bets with associations, newest first.
	ListSettled(ctx context.Context) ([]*model.Bet, error)
	// UpdateLegResults writes the given results by leg id.
	UpdateLegResults(ctx context.Context, results map[uint64]model.LegResult) error
	// AdvanceBet moves a bet to a new status, guarded by the version it was
	// read at. Returns the rows affected so callers can detect a lost race.
	AdvanceBet(ctx context.Context, betID uint64, fromVersion int64, status model.BetStatus) (int64, error)
	// FinalizeBet marks a bet SETTLED with its outcome and snapshot, guarded
	// by the version it was read at.
	FinalizeBet(ctx context.Context, betID uint64, fromVersion int64, outcome model.BetOutcome, snapshot datatypes.JSON, settledAt time.Time) (int64, error)
	// CreateSettlements appends settlement rows. Never updates existing rows.
	CreateSettlements(ctx context.Context, settlements []*model.Settlement) error
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *gorm.DB) BetRepository
}

type betRepository struct {
	db *gorm.DB
}

// NewBetRepository creates a BetRepository over the given gorm handle.
func NewBetRepository(db *gorm.DB) BetRepository {
	return &betRepository{db: db}
}

func (r *betRepository) WithTx(tx *gorm.DB) BetRepository {
	return &betRepository{db: tx}
}

func (r *betRepository) CreateBet(ctx context.Context, bet *model.Bet) error {
	return r.db.WithContext(ctx).Create(bet).Error
}

func (r *betRepository) GetByUUID(ctx context.Context, betUUID string) (*model.Bet, error) {
	var bet model.Bet
	if err := r.db.WithContext(ctx).
		Preload("Legs").
		Preload("Participants").
		Preload("Settlements").
		Where("bet_uuid = ?", betUUID).
		First(&bet).Error; err != nil {
		return nil, err
	}
	return &bet, nil
}

func (r *betRepository) List(ctx context.Context, filter BetFilter, page, pageSize int) ([]*model.Bet, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	db := r.db.WithContext(ctx).Model(&model.Bet{})
	if filter.PersonID != 0 {
		sub := r.db.Model(&model.BetParticipant{}).
			Select("bet_id").
			Where("person_id = ?", filter.PersonID)
		db = db.Where("bets.id IN (?)", sub)
	}
	if filter.Status != "" {
		db = db.Where("bets.status = ?", filter.Status)
	}
	if filter.From != nil {
		db = db.Where("bets.placed_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("bets.placed_at <= ?", *filter.To)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var bets []*model.Bet
	if err := db.Preload("Legs").Preload("Participants").Preload("Settlements").
		Order("bets.placed_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&bets).Error; err != nil {
		return nil, 0, err
	}
	return bets, total, nil
}

func (r *betRepository) ListOpen(ctx context.Context) ([]*model.Bet, error) {
	return r.listByStatuses(ctx, []model.BetStatus{model.BetStatusOpen, model.BetStatusPartiallySettled})
}

func (r *betRepository) ListSettled(ctx context.Context) ([]*model.Bet, error) {
	return r.listByStatuses(ctx, []model.BetStatus{model.BetStatusSettled})
}

func (r *betRepository) listByStatuses(ctx context.Context, statuses []model.BetStatus) ([]*model.Bet, error) {
	var bets []*model.Bet
	if err := r.db.WithContext(ctx).
		Preload("Legs").
		Preload("Participants").
		Preload("Settlements").
		Where("status IN ?", statuses).
		Order("placed_at DESC").
		Find(&bets).Error; err != nil {
		return nil, err
	}
	return bets, nil
}

func (r *betRepository) UpdateLegResults(ctx context.Context, results map[uint64]model.LegResult) error {
	for legID, result := range results {
		if err := r.db.WithContext(ctx).Model(&model.BetLeg{}).
			Where("id = ?", legID).
			Update("result", result).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *betRepository) AdvanceBet(ctx context.Context, betID uint64, fromVersion int64, status model.BetStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Bet{}).
		Where("id = ? AND version = ?", betID, fromVersion).
		Updates(map[string]interface{}{
			"status":  status,
			"version": fromVersion + 1,
		})
	return res.RowsAffected, res.Error
}

func (r *betRepository) FinalizeBet(ctx context.Context, betID uint64, fromVersion int64, outcome model.BetOutcome, snapshot datatypes.JSON, settledAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Bet{}).
		Where("id = ? AND version = ?", betID, fromVersion).
		Updates(map[string]interface{}{
			"status":           model.BetStatusSettled,
			"outcome":          outcome,
			"outcome_snapshot": snapshot,
			"settled_at":       settledAt,
			"version":          fromVersion + 1,
		})
	return res.RowsAffected, res.Error
}

func (r *betRepository) CreateSettlements(ctx context.Context, settlements []*model.Settlement) error {
	return r.db.WithContext(ctx).Create(settlements).Error
}
