package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/imadegautama/simple-library/internal/errs"
	"github.com/imadegautama/simple-library/internal/model"
)

const bookColumns = "id, title, author, publisher, year, isbn, description, stock, cover, created_at, updated_at"

func (r *repository) GetBook(ctx context.Context, id int64) (model.Book, error) {
	query, args, err := qb.Select(bookColumns).
		From(bookTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Book{}, err
	}
	defer rows.Close()

	b, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return b, nil
}

func (r *repository) ListBooks(ctx context.Context, onlyAvailable bool) ([]model.Book, error) {
	q := qb.Select(bookColumns).
		From(bookTableName).
		OrderBy("title")
	if onlyAvailable {
		q = q.Where(sq.Gt{"stock": 0})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListBooks", zap.String("query", query), zap.Any("args", args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[model.Book])
}

func (r *repository) CreateBook(ctx context.Context, b model.Book) (model.Book, error) {
	query, args, err := qb.Insert(bookTableName).
		Columns("title", "author", "publisher", "year", "isbn", "description", "stock", "cover").
		Values(b.Title, b.Author, b.Publisher, b.Year, b.ISBN, b.Description, b.Stock, b.Cover).
		Suffix("returning " + bookColumns).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Book{}, classifyPgError(err)
	}
	defer rows.Close()

	created, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		r.log.Error("CreateBook", zap.String("q", query), zap.Any("args", args))
		return model.Book{}, classifyPgError(err)
	}
	return created, nil
}

func (r *repository) UpdateBook(ctx context.Context, b model.Book) (model.Book, error) {
	query, args, err := qb.Update(bookTableName).
		Set("title", b.Title).
		Set("author", b.Author).
		Set("publisher", b.Publisher).
		Set("year", b.Year).
		Set("isbn", b.ISBN).
		Set("description", b.Description).
		Set("stock", b.Stock).
		Set("cover", b.Cover).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": b.ID}).
		Suffix("returning " + bookColumns).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Book{}, classifyPgError(err)
	}
	defer rows.Close()

	updated, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, classifyPgError(err)
	}
	return updated, nil
}

// DeleteBook relies on the loan_line restrict constraint as backstop: a book
// still referenced by any loan line comes back as ErrIntegrity.
func (r *repository) DeleteBook(ctx context.Context, id int64) error {
	query, args, err := qb.Delete(bookTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return classifyPgError(err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) LockBooks(ctx context.Context, ids []int64) ([]model.Book, error) {
	query, args, err := qb.Select(bookColumns).
		From(bookTableName).
		Where(sq.Eq{"id": ids}).
		OrderBy("id").
		Suffix("for update").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[model.Book])
}

func (r *repository) AdjustStock(ctx context.Context, bookID int64, delta int) error {
	q := `
update book
    set stock = stock + $2, updated_at = now()
where id = $1 and stock + $2 >= 0`
	ct, err := r.db.Exec(ctx, q, bookID, delta)
	if err != nil {
		return classifyPgError(err)
	}
	if ct.RowsAffected() == 0 {
		return errors.WithMessagef(errs.ErrStockExhausted, "book %d", bookID)
	}
	return nil
}
