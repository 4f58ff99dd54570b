package model

import (
	"time"

	"gorm.io/datatypes"
)

// TransactionType classifies bankroll movements.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdraw   TransactionType = "WITHDRAW"
	TransactionAdjustment TransactionType = "ADJUSTMENT"
)

// BetStatus tracks how far a bet is through its lifecycle.
// A bet is PARTIALLY_SETTLED while some (but not all) legs have resolved and
// none has lost; the first losing leg settles the whole bet immediately.
type BetStatus string

const (
	BetStatusOpen             BetStatus = "OPEN"
	BetStatusPartiallySettled BetStatus = "PARTIALLY_SETTLED"
	BetStatusSettled          BetStatus = "SETTLED"
)

// BetOutcome is the final result of a settled bet. Empty until settled.
type BetOutcome string

const (
	BetOutcomeWon  BetOutcome = "WON"
	BetOutcomeLost BetOutcome = "LOST"
	BetOutcomeVoid BetOutcome = "VOID"
)

// LegResult is the per-leg outcome within a parlay.
type LegResult string

const (
	LegResultPending LegResult = "PENDING"
	LegResultWon     LegResult = "WON"
	LegResultLost    LegResult = "LOST"
	LegResultVoid    LegResult = "VOID"
)

// Person is a member of the shared bankroll.
type Person struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(100);not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (Person) TableName() string { return "persons" }

// Transaction is an append-only bankroll movement for one person.
// AmountCents is stored signed: withdrawals are negative.
type Transaction struct {
	ID          uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PersonID    uint64          `gorm:"column:person_id;index;not null" json:"person_id"`
	Type        TransactionType `gorm:"column:type;type:varchar(16);not null" json:"type"`
	AmountCents int64           `gorm:"column:amount_cents;not null" json:"amount_cents"`
	Note        string          `gorm:"column:note;type:varchar(500)" json:"note"`
	TS          time.Time       `gorm:"column:ts;not null" json:"ts"`
}

func (Transaction) TableName() string { return "transactions" }

// Bet is a (possibly multi-leg) parlay shared between participants.
// StakeCents always equals the sum of the participants' stakes.
// Version guards settlement: every status transition is applied with
// WHERE version = ?, so two concurrent settle requests cannot both win.
type Bet struct {
	ID         uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	BetUUID    string     `gorm:"column:bet_uuid;type:varchar(64);uniqueIndex;not null" json:"bet_uuid"`
	StakeCents int64      `gorm:"column:stake_cents;not null" json:"stake_cents"`
	Status     BetStatus  `gorm:"column:status;type:varchar(24);not null;default:OPEN" json:"status"`
	Outcome    BetOutcome `gorm:"column:outcome;type:varchar(8);not null;default:''" json:"outcome,omitempty"`
	Version    int64      `gorm:"column:version;not null;default:1" json:"-"`
	PlacedAt   time.Time  `gorm:"column:placed_at;not null" json:"placed_at"`
	SettledAt  *time.Time `gorm:"column:settled_at" json:"settled_at,omitempty"`

	// OutcomeSnapshot records the exact leg outcomes that produced the
	// settlement, so a repeated settle call with identical input can be
	// recognized and answered with the existing settlement rows.
	OutcomeSnapshot datatypes.JSON `gorm:"column:outcome_snapshot" json:"-"`

	Legs         []BetLeg         `gorm:"foreignKey:BetID" json:"legs,omitempty"`
	Participants []BetParticipant `gorm:"foreignKey:BetID" json:"participants,omitempty"`
	Settlements  []Settlement     `gorm:"foreignKey:BetID" json:"settlements,omitempty"`
}

func (Bet) TableName() string { return "bets" }

// BetLeg is one independent outcome inside a parlay.
type BetLeg struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	BetID        uint64    `gorm:"column:bet_id;index;not null" json:"-"`
	Matchup      string    `gorm:"column:matchup;type:varchar(200);not null" json:"matchup"`
	Description  string    `gorm:"column:description;type:varchar(200);not null" json:"description"`
	AmericanOdds int       `gorm:"column:american_odds;not null" json:"american_odds"`
	Result       LegResult `gorm:"column:result;type:varchar(8);not null;default:PENDING" json:"result"`
}

func (BetLeg) TableName() string { return "bet_legs" }

// BetParticipant fixes one person's stake in a bet at placement time.
type BetParticipant struct {
	ID         uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	BetID      uint64 `gorm:"column:bet_id;index;not null" json:"-"`
	PersonID   uint64 `gorm:"column:person_id;index;not null" json:"person_id"`
	StakeCents int64  `gorm:"column:stake_cents;not null" json:"stake_cents"`
}

func (BetParticipant) TableName() string { return "bet_participants" }

// Settlement is the immutable realized result for one person on one bet,
// written once when the bet settles and never mutated afterwards.
type Settlement struct {
	ID             uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	SettlementUUID string    `gorm:"column:settlement_uuid;type:varchar(64);uniqueIndex;not null" json:"settlement_uuid"`
	BetID          uint64    `gorm:"column:bet_id;index;not null" json:"-"`
	PersonID       uint64    `gorm:"column:person_id;index;not null" json:"person_id"`
	NetCents       int64     `gorm:"column:net_cents;not null" json:"net_cents"`
	TS             time.Time `gorm:"column:ts;not null" json:"ts"`
}

func (Settlement) TableName() string { return "settlements" }
