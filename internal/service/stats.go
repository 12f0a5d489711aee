package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/imadegautama/simple-library/internal/model"
	"github.com/imadegautama/simple-library/internal/repository"
)

const topListLimit = 5

type StatsService struct {
	log  *zap.Logger
	repo repository.Repository
}

func NewStatsService(repo repository.Repository, log *zap.Logger) *StatsService {
	return &StatsService{
		log:  log,
		repo: repo,
	}
}

// Summary re-reads persisted loan state for the dashboard; it is never part
// of the engine's write path. The independent aggregates are fanned out.
func (s *StatsService) Summary(ctx context.Context) (model.Summary, error) {
	var sum model.Summary

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	weekAgo := today.AddDate(0, 0, -6)

	gg, ctx := errgroup.WithContext(ctx)
	gg.Go(func() (err error) {
		sum.TotalMembers, err = s.repo.CountMembers(ctx)
		return err
	})
	gg.Go(func() (err error) {
		sum.StatusCounts, err = s.repo.LoanStatusCounts(ctx)
		return err
	})
	gg.Go(func() (err error) {
		sum.OverdueLoans, err = s.repo.CountOverdueLoans(ctx, today)
		return err
	})
	gg.Go(func() (err error) {
		sum.FineTotal, err = s.repo.FineTotal(ctx)
		return err
	})
	gg.Go(func() (err error) {
		sum.Stock, err = s.repo.BookStockStats(ctx)
		return err
	})
	gg.Go(func() (err error) {
		sum.LoansToday, err = s.repo.CountLoansBetween(ctx, today, tomorrow)
		return err
	})
	gg.Go(func() (err error) {
		sum.ReturnsToday, err = s.repo.CountReturnsBetween(ctx, today, tomorrow)
		return err
	})
	gg.Go(func() (err error) {
		sum.LoansThisWeek, err = s.repo.CountLoansBetween(ctx, weekAgo, tomorrow)
		return err
	})
	gg.Go(func() (err error) {
		sum.TopBooks, err = s.repo.TopBooks(ctx, topListLimit)
		return err
	})
	gg.Go(func() (err error) {
		sum.ActiveMembers, err = s.repo.MostActiveMembers(ctx, topListLimit)
		return err
	})
	gg.Go(func() (err error) {
		sum.Recent, err = s.repo.RecentLoanEvents(ctx, 10)
		return err
	})

	if err := gg.Wait(); err != nil {
		return model.Summary{}, err
	}
	return sum, nil
}

// RecordLoanEvent persists a consumed loan lifecycle event for the activity
// feed.
func (s *StatsService) RecordLoanEvent(ctx context.Context, msg model.LoanEventMsg, payload []byte) error {
	s.log.Debug("loan event",
		zap.String("type", msg.EventType),
		zap.Int64("loan_id", msg.LoanID))
	return s.repo.InsertLoanEvent(ctx, model.LoanEvent{
		LoanID:     msg.LoanID,
		MemberID:   msg.MemberID,
		EventType:  msg.EventType,
		Payload:    payload,
		OccurredAt: msg.At,
	})
}
