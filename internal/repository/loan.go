package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/imadegautama/simple-library/internal/errs"
	"github.com/imadegautama/simple-library/internal/model"
)

const loanColumns = `l.id, l.member_id, l.loan_date, l.due_date, l.return_date, l.status, l.fine, l.note, l.created_by`

func (r *repository) GetLoan(ctx context.Context, id int64) (model.Loan, error) {
	query, args, err := qb.Select(loanColumns + ", m.name as member_name").
		From(loanTableName + " l").
		Join(fmt.Sprintf("%s m on m.id = l.member_id", memberTableName)).
		Where(sq.Eq{"l.id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}

	loan, err := r.collectLoan(ctx, query, args)
	if err != nil {
		return model.Loan{}, err
	}
	if loan.BookIDs, err = r.LoanLineBookIDs(ctx, loan.ID); err != nil {
		return model.Loan{}, err
	}
	return loan, nil
}

// GetLoanForUpdate locks the loan row for the rest of the transaction; no
// join, postgres forbids FOR UPDATE on the nullable side of one.
func (r *repository) GetLoanForUpdate(ctx context.Context, id int64) (model.Loan, error) {
	query, args, err := qb.Select(loanColumns).
		From(loanTableName + " l").
		Where(sq.Eq{"l.id": id}).
		Suffix("for update").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	return r.collectLoan(ctx, query, args)
}

func (r *repository) collectLoan(ctx context.Context, query string, args []any) (model.Loan, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Loan{}, err
	}
	defer rows.Close()

	loan, err := pgx.CollectOneRow(rows, pgx.RowToStructByNameLax[model.Loan])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Loan{}, errs.ErrNotFound
		}
		return model.Loan{}, err
	}
	return loan, nil
}

func (r *repository) ListLoans(ctx context.Context) ([]model.Loan, error) {
	query, args, err := qb.Select(loanColumns + ", m.name as member_name").
		From(loanTableName + " l").
		Join(fmt.Sprintf("%s m on m.id = l.member_id", memberTableName)).
		OrderBy("l.created_at desc").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.collectLoans(ctx, query, args)
}

// ListLoansByMember returns a member's loans, newest first; status narrows
// the list when non-empty.
func (r *repository) ListLoansByMember(ctx context.Context, memberID int64, status model.Status) ([]model.Loan, error) {
	q := qb.Select(loanColumns + ", m.name as member_name").
		From(loanTableName + " l").
		Join(fmt.Sprintf("%s m on m.id = l.member_id", memberTableName)).
		Where(sq.Eq{"l.member_id": memberID}).
		OrderBy("l.created_at desc")
	if status != "" {
		q = q.Where(sq.Eq{"l.status": status})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return r.collectLoans(ctx, query, args)
}

func (r *repository) collectLoans(ctx context.Context, query string, args []any) ([]model.Loan, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[model.Loan])
	if err != nil {
		return nil, err
	}
	for i := range loans {
		if loans[i].BookIDs, err = r.LoanLineBookIDs(ctx, loans[i].ID); err != nil {
			return nil, err
		}
	}
	return loans, nil
}

func (r *repository) CountActiveLoans(ctx context.Context, memberID, excludeLoanID int64) (int, error) {
	q := qb.Select("count(*)").
		From(loanTableName).
		Where(sq.Eq{"member_id": memberID}).
		Where(sq.Eq{"status": model.StatusActive})
	if excludeLoanID != 0 {
		q = q.Where(sq.NotEq{"id": excludeLoanID})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) InsertLoan(ctx context.Context, l model.Loan) (model.Loan, error) {
	query, args, err := qb.Insert(loanTableName).
		Columns("member_id", "loan_date", "due_date", "return_date", "status", "fine", "note", "created_by").
		Values(l.MemberID, l.LoanDate, l.DueDate, l.ReturnDate, l.Status, l.Fine, l.Note, l.CreatedBy).
		Suffix("returning id, member_id, loan_date, due_date, return_date, status, fine, note, created_by").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}

	loan, err := r.collectLoan(ctx, query, args)
	if err != nil {
		r.log.Error("InsertLoan", zap.String("q", query), zap.Any("args", args))
		return model.Loan{}, classifyPgError(err)
	}
	return loan, nil
}

func (r *repository) UpdateLoan(ctx context.Context, l model.Loan) (model.Loan, error) {
	query, args, err := qb.Update(loanTableName).
		Set("member_id", l.MemberID).
		Set("loan_date", l.LoanDate).
		Set("due_date", l.DueDate).
		Set("return_date", l.ReturnDate).
		Set("status", l.Status).
		Set("fine", l.Fine).
		Set("note", l.Note).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": l.ID}).
		Suffix("returning id, member_id, loan_date, due_date, return_date, status, fine, note, created_by").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}

	loan, err := r.collectLoan(ctx, query, args)
	if err != nil {
		return model.Loan{}, classifyPgError(err)
	}
	return loan, nil
}

func (r *repository) DeleteLoan(ctx context.Context, id int64) error {
	query, args, err := qb.Delete(loanTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) LoanLineBookIDs(ctx context.Context, loanID int64) ([]int64, error) {
	query, args, err := qb.Select("book_id").
		From(loanLineTableName).
		Where(sq.Eq{"loan_id": loanID}).
		OrderBy("book_id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *repository) InsertLoanLines(ctx context.Context, loanID int64, bookIDs []int64) error {
	if len(bookIDs) == 0 {
		return nil
	}
	q := qb.Insert(loanLineTableName).Columns("loan_id", "book_id")
	for _, bookID := range bookIDs {
		q = q.Values(loanID, bookID)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return classifyPgError(err)
	}
	return nil
}

func (r *repository) DeleteLoanLines(ctx context.Context, loanID int64, bookIDs []int64) error {
	if len(bookIDs) == 0 {
		return nil
	}
	query, args, err := qb.Delete(loanLineTableName).
		Where(sq.Eq{"loan_id": loanID}).
		Where(sq.Eq{"book_id": bookIDs}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}
