package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/imadegautama/simple-library/internal/model"
)

//go:generate mockgen -source=repository.go -destination=mocks/mock.go -package=repo_mocks

type Repository interface {
	// WithinTx runs fn against a transaction-bound repository. Nested calls
	// reuse the surrounding transaction. fn returning an error rolls
	// everything back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error

	GetMember(ctx context.Context, id int64) (model.Member, error)
	ListMembers(ctx context.Context) ([]model.Member, error)
	CreateMember(ctx context.Context, m model.Member) (model.Member, error)
	UpdateMember(ctx context.Context, m model.Member) (model.Member, error)
	DeleteMember(ctx context.Context, id int64) error

	GetBook(ctx context.Context, id int64) (model.Book, error)
	ListBooks(ctx context.Context, onlyAvailable bool) ([]model.Book, error)
	CreateBook(ctx context.Context, b model.Book) (model.Book, error)
	UpdateBook(ctx context.Context, b model.Book) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	// LockBooks reads the requested book rows FOR UPDATE in id order; missing
	// ids are simply absent from the result.
	LockBooks(ctx context.Context, ids []int64) ([]model.Book, error)
	AdjustStock(ctx context.Context, bookID int64, delta int) error

	GetLoan(ctx context.Context, id int64) (model.Loan, error)
	GetLoanForUpdate(ctx context.Context, id int64) (model.Loan, error)
	ListLoans(ctx context.Context) ([]model.Loan, error)
	ListLoansByMember(ctx context.Context, memberID int64, status model.Status) ([]model.Loan, error)
	CountActiveLoans(ctx context.Context, memberID, excludeLoanID int64) (int, error)
	InsertLoan(ctx context.Context, l model.Loan) (model.Loan, error)
	UpdateLoan(ctx context.Context, l model.Loan) (model.Loan, error)
	DeleteLoan(ctx context.Context, id int64) error
	LoanLineBookIDs(ctx context.Context, loanID int64) ([]int64, error)
	InsertLoanLines(ctx context.Context, loanID int64, bookIDs []int64) error
	DeleteLoanLines(ctx context.Context, loanID int64, bookIDs []int64) error

	LoanStatusCounts(ctx context.Context) ([]model.StatusCount, error)
	CountOverdueLoans(ctx context.Context, asOf time.Time) (int, error)
	FineTotal(ctx context.Context) (int64, error)
	BookStockStats(ctx context.Context) (model.StockStats, error)
	CountMembers(ctx context.Context) (int, error)
	CountLoansBetween(ctx context.Context, from, to time.Time) (int, error)
	CountReturnsBetween(ctx context.Context, from, to time.Time) (int, error)
	TopBooks(ctx context.Context, limit int) ([]model.BookCount, error)
	MostActiveMembers(ctx context.Context, limit int) ([]model.MemberCount, error)
	RecentLoanEvents(ctx context.Context, limit int) ([]model.LoanEvent, error)
	InsertLoanEvent(ctx context.Context, ev model.LoanEvent) error
}

// DB is the subset shared by pgxpool.Pool and pgx.Tx, so the same query code
// serves both the pool-bound and the tx-bound repository.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db   DB
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewRepository(pool *pgxpool.Pool, log *zap.Logger) (*repository, error) {
	return &repository{
		db:   pool,
		pool: pool,
		log:  log.Named("repo"),
	}, nil
}

const (
	memberTableName    = `member`
	bookTableName      = `book`
	loanTableName      = `loan`
	loanLineTableName  = `loan_line`
	loanEventTableName = `loan_event`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (r *repository) WithinTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, &repository{db: tx, log: r.log}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
