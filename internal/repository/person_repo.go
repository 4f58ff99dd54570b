package repository

import (
	"context"

	"github.com/RyanDutko/Bet-Ledger/internal/model"

	"gorm.io/gorm"
)

// PersonRepository persists people and their bankroll transactions, and runs
// the ledger aggregates behind the dashboard.
type PersonRepository interface {
	ListPersons(ctx context.Context) ([]*model.Person, error)
	GetPerson(ctx context.Context, id uint64) (*model.Person, error)
	CreatePerson(ctx context.Context, person *model.Person) error
	RenamePerson(ctx context.Context, id uint64, name string) error
	CountPersons(ctx context.Context) (int64, error)

	CreateTransaction(ctx context.Context, tx *model.Transaction) error
	ListTransactions(ctx context.Context, personID uint64) ([]*model.Transaction, error)

	// SumTransactions is the signed sum of a person's bankroll movements.
	SumTransactions(ctx context.Context, personID uint64) (int64, error)
	// SumSettlementNets is the signed sum of a person's realized bet results.
	SumSettlementNets(ctx context.Context, personID uint64) (int64, error)
	// SumOpenStakes is a person's stake tied up in unsettled bets.
	SumOpenStakes(ctx context.Context, personID uint64) (int64, error)
	// SumTotalOpenStakes is the whole pool's open exposure.
	SumTotalOpenStakes(ctx context.Context) (int64, error)
}

type personRepository struct {
	db *gorm.DB
}

// NewPersonRepository creates a PersonRepository over the given gorm handle.
func NewPersonRepository(db *gorm.DB) PersonRepository {
	return &personRepository{db: db}
}

func (r *personRepository) ListPersons(ctx context.Context) ([]*model.Person, error) {
	var persons []*model.Person
	if err := r.db.WithContext(ctx).Order("id").Find(&persons).Error; err != nil {
		return nil, err
	}
	return persons, nil
}

func (r *personRepository) GetPerson(ctx context.Context, id uint64) (*model.Person, error) {
	var p model.Person
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *personRepository) CreatePerson(ctx context.Context, person *model.Person) error {
	return r.db.WithContext(ctx).Create(person).Error
}

func (r *personRepository) RenamePerson(ctx context.Context, id uint64, name string) error {
	return r.db.WithContext(ctx).Model(&model.Person{}).
		Where("id = ?", id).
		Update("name", name).Error
}

func (r *personRepository) CountPersons(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Person{}).Count(&count).Error
	return count, err
}

func (r *personRepository) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *personRepository) ListTransactions(ctx context.Context, personID uint64) ([]*model.Transaction, error) {
	var txs []*model.Transaction
	if err := r.db.WithContext(ctx).
		Where("person_id = ?", personID).
		Order("ts DESC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *personRepository) SumTransactions(ctx context.Context, personID uint64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("person_id = ?", personID).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error
	return total, err
}

func (r *personRepository) SumSettlementNets(ctx context.Context, personID uint64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Settlement{}).
		Where("person_id = ?", personID).
		Select("COALESCE(SUM(net_cents), 0)").
		Scan(&total).Error
	return total, err
}

func (r *personRepository) SumOpenStakes(ctx context.Context, personID uint64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.BetParticipant{}).
		Joins("JOIN bets ON bets.id = bet_participants.bet_id").
		Where("bet_participants.person_id = ? AND bets.status IN ?",
			personID, []model.BetStatus{model.BetStatusOpen, model.BetStatusPartiallySettled}).
		Select("COALESCE(SUM(bet_participants.stake_cents), 0)").
		Scan(&total).Error
	return total, err
}

func (r *personRepository) SumTotalOpenStakes(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.BetParticipant{}).
		Joins("JOIN bets ON bets.id = bet_participants.bet_id").
		Where("bets.status IN ?",
			[]model.BetStatus{model.BetStatusOpen, model.BetStatusPartiallySettled}).
		Select("COALESCE(SUM(bet_participants.stake_cents), 0)").
		Scan(&total).Error
	return total, err
}
