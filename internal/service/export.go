package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/RyanDutko/Bet-Ledger/internal/ledger"
	"github.com/RyanDutko/Bet-Ledger/internal/model"
	"github.com/RyanDutko/Bet-Ledger/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ExportService renders settled bet history as CSV.
type ExportService struct {
	logger  *logrus.Logger
	bets    repository.BetRepository
	persons repository.PersonRepository
}

// NewExportService creates an ExportService.
func NewExportService(db *gorm.DB, logger *logrus.Logger) *ExportService {
	return &ExportService{
		logger:  logger,
		bets:    repository.NewBetRepository(db),
		persons: repository.NewPersonRepository(db),
	}
}

// WriteHistory streams one CSV row per settled bet:
// date, stake, odds, participants, payout, net.
func (s *ExportService) WriteHistory(ctx context.Context, w io.Writer) error {
	bets, err := s.bets.ListSettled(ctx)
	if err != nil {
		return err
	}
	persons, err := s.persons.ListPersons(ctx)
	if err != nil {
		return err
	}
	names := make(map[uint64]string, len(persons))
	for _, p := range persons {
		names[p.ID] = p.Name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "stake", "odds", "participants", "payout", "net"}); err != nil {
		return err
	}
	for _, bet := range bets {
		if err := cw.Write(historyRow(bet, names)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func historyRow(bet *model.Bet, names map[uint64]string) []string {
	odds := ""
	legs := make([]ledger.LegInput, 0, len(bet.Legs))
	for _, leg := range bet.Legs {
		legs = append(legs, ledger.LegInput{AmericanOdds: leg.AmericanOdds, Result: leg.Result})
	}
	if decimalOdds, err := ledger.CombinedDecimalOdds(legs); err == nil {
		if american, err := ledger.DecimalToAmerican(decimalOdds); err == nil {
			odds = fmt.Sprintf("%+d", american)
		}
	}

	parts := make([]string, 0, len(bet.Participants))
	for _, p := range bet.Participants {
		name := names[p.PersonID]
		if name == "" {
			name = fmt.Sprintf("person %d", p.PersonID)
		}
		parts = append(parts, fmt.Sprintf("%s ($%s)", name, FormatDollars(p.StakeCents)))
	}

	var net int64
	for _, st := range bet.Settlements {
		net += st.NetCents
	}
	var payout int64
	if bet.Outcome == model.BetOutcomeWon {
		payout = bet.StakeCents + net
	}

	date := ""
	if bet.SettledAt != nil {
		date = bet.SettledAt.Format("2006-01-02 15:04")
	}
	return []string{
		date,
		FormatDollars(bet.StakeCents),
		odds,
		strings.Join(parts, "; "),
		FormatDollars(payout),
		FormatDollars(net),
	}
}
