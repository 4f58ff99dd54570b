package service

import (
	"context"
	"io"
	"testing"

	"github.com/RyanDutko/Bet-Ledger/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory SQLite database with the full schema.
// Connections are capped at one so every query sees the same memory DB.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&model.Person{},
		&model.Transaction{},
		&model.Bet{},
		&model.BetLeg{},
		&model.BetParticipant{},
		&model.Settlement{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// seedTwoPersons creates Ryan and Friend and returns their ids.
func seedTwoPersons(t *testing.T, db *gorm.DB) (uint64, uint64) {
	t.Helper()
	ryan := model.Person{Name: "Ryan"}
	friend := model.Person{Name: "Friend"}
	if err := db.Create(&ryan).Error; err != nil {
		t.Fatalf("seed ryan: %v", err)
	}
	if err := db.Create(&friend).Error; err != nil {
		t.Fatalf("seed friend: %v", err)
	}
	return ryan.ID, friend.ID
}

// createSixtyFortyBet places a $100 bet split 60/40 with the given legs.
func createSixtyFortyBet(t *testing.T, db *gorm.DB, legs []CreateLegRequest) *model.Bet {
	t.Helper()
	ryanID, friendID := seedTwoPersons(t, db)
	svc := NewBetService(db, newTestLogger())
	bet, err := svc.Create(context.Background(), &CreateBetRequest{
		Legs: legs,
		Participants: []CreateParticipantRequest{
			{PersonID: ryanID, Stake: "60.00"},
			{PersonID: friendID, Stake: "40.00"},
		},
	})
	if err != nil {
		t.Fatalf("create bet: %v", err)
	}
	return bet
}
