package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/imadegautama/simple-library/internal/model"
)

func (r *repository) LoanStatusCounts(ctx context.Context) ([]model.StatusCount, error) {
	query, args, err := qb.Select("status", "count(*) as count").
		From(loanTableName).
		GroupBy("status").
		OrderBy("status").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[model.StatusCount])
}

// CountOverdueLoans treats overdue as derived: active loans past due as of
// the given day.
func (r *repository) CountOverdueLoans(ctx context.Context, asOf time.Time) (int, error) {
	query, args, err := qb.Select("count(*)").
		From(loanTableName).
		Where(sq.Eq{"status": model.StatusActive}).
		Where(sq.Lt{"due_date": asOf}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) FineTotal(ctx context.Context) (int64, error) {
	q := `
	select coalesce(sum(fine), 0) from loan
	where status = 'returned' and fine > 0
`
	var total int64
	if err := r.db.QueryRow(ctx, q).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) BookStockStats(ctx context.Context) (model.StockStats, error) {
	q := `
	select count(*)                                as total_books,
	       coalesce(sum(stock), 0)::int           as total_stock,
	       count(*) filter (where stock > 0)::int  as books_available,
	       count(*) filter (where stock = 0)::int  as books_exhausted
	from book
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return model.StockStats{}, err
	}
	defer rows.Close()

	return pgx.CollectOneRow(rows, pgx.RowToStructByName[model.StockStats])
}

func (r *repository) CountMembers(ctx context.Context) (int, error) {
	query, args, err := qb.Select("count(*)").
		From(memberTableName).
		Where(sq.Eq{"role": model.RoleMember}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) CountLoansBetween(ctx context.Context, from, to time.Time) (int, error) {
	return r.countDateRange(ctx, "loan_date", from, to)
}

func (r *repository) CountReturnsBetween(ctx context.Context, from, to time.Time) (int, error) {
	return r.countDateRange(ctx, "return_date", from, to)
}

func (r *repository) countDateRange(ctx context.Context, column string, from, to time.Time) (int, error) {
	query, args, err := qb.Select("count(*)").
		From(loanTableName).
		Where(sq.GtOrEq{column: from}).
		Where(sq.Lt{column: to}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) TopBooks(ctx context.Context, limit int) ([]model.BookCount, error) {
	q := `
	select b.title, b.author, count(*)::int as count
	from loan_line ll
	join book b on b.id = ll.book_id
	group by b.id, b.title, b.author
	order by count desc
	limit $1
`
	rows, err := r.db.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[model.BookCount])
}

func (r *repository) MostActiveMembers(ctx context.Context, limit int) ([]model.MemberCount, error) {
	q := `
	select m.name, m.email, count(l.id)::int as count
	from member m
	left join loan l on l.member_id = m.id
	where m.role = 'member'
	group by m.id, m.name, m.email
	order by count desc
	limit $1
`
	rows, err := r.db.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[model.MemberCount])
}

func (r *repository) RecentLoanEvents(ctx context.Context, limit int) ([]model.LoanEvent, error) {
	query, args, err := qb.Select("id", "loan_id", "member_id", "event_type", "payload", "occurred_at").
		From(loanEventTableName).
		OrderBy("occurred_at desc").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[model.LoanEvent])
}

func (r *repository) InsertLoanEvent(ctx context.Context, ev model.LoanEvent) error {
	query, args, err := qb.Insert(loanEventTableName).
		Columns("loan_id", "member_id", "event_type", "payload", "occurred_at").
		Values(ev.LoanID, ev.MemberID, ev.EventType, ev.Payload, ev.OccurredAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}
