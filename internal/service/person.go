package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RyanDutko/Bet-Ledger/internal/model"
	"github.com/RyanDutko/Bet-Ledger/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PersonService manages people and their bankroll transactions.
type PersonService struct {
	logger  *logrus.Logger
	persons repository.PersonRepository
}

// NewPersonService creates a PersonService.
func NewPersonService(db *gorm.DB, logger *logrus.Logger) *PersonService {
	return &PersonService{
		logger:  logger,
		persons: repository.NewPersonRepository(db),
	}
}

// List returns every person, oldest first.
func (s *PersonService) List(ctx context.Context) ([]*model.Person, error) {
	return s.persons.ListPersons(ctx)
}

// Create adds a person with a non-empty name.
func (s *PersonService) Create(ctx context.Context, name string) (*model.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	p := &model.Person{Name: name, CreatedAt: time.Now()}
	if err := s.persons.CreatePerson(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Rename changes a person's name; the new name must be non-empty.
func (s *PersonService) Rename(ctx context.Context, id uint64, name string) (*model.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	if _, err := s.persons.GetPerson(ctx, id); err != nil {
		return nil, err
	}
	if err := s.persons.RenamePerson(ctx, id, name); err != nil {
		return nil, err
	}
	return s.persons.GetPerson(ctx, id)
}

// TransactionRequest is the body of POST /api/transactions. Amount is a
// dollar string; withdrawals are stored negative.
type TransactionRequest struct {
	PersonID uint64 `json:"person_id"`
	Type     string `json:"type"`
	Amount   string `json:"amount"`
	Note     string `json:"note"`
}

// RecordTransaction appends a DEPOSIT, WITHDRAW or ADJUSTMENT for a person.
func (s *PersonService) RecordTransaction(ctx context.Context, req *TransactionRequest) (*model.Transaction, error) {
	if _, err := s.persons.GetPerson(ctx, req.PersonID); err != nil {
		return nil, err
	}
	cents, err := ParseDollars(req.Amount)
	if err != nil {
		return nil, err
	}

	var txType model.TransactionType
	switch model.TransactionType(strings.ToUpper(req.Type)) {
	case model.TransactionDeposit:
		txType = model.TransactionDeposit
		if cents <= 0 {
			return nil, fmt.Errorf("%w: deposit amount must be positive", ErrValidation)
		}
	case model.TransactionWithdraw:
		txType = model.TransactionWithdraw
		if cents <= 0 {
			return nil, fmt.Errorf("%w: withdraw amount must be positive", ErrValidation)
		}
		cents = -cents
	case model.TransactionAdjustment:
		// Adjustments may be signed either way.
		txType = model.TransactionAdjustment
	default:
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrValidation, req.Type)
	}

	tx := &model.Transaction{
		PersonID:    req.PersonID,
		Type:        txType,
		AmountCents: cents,
		Note:        req.Note,
		TS:          time.Now(),
	}
	if err := s.persons.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"person_id":    tx.PersonID,
		"type":         tx.Type,
		"amount_cents": tx.AmountCents,
	}).Info("transaction recorded")
	return tx, nil
}
