package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/imadegautama/simple-library/internal/errs"
	"github.com/imadegautama/simple-library/internal/model"
)

const memberColumns = "id, name, email, phone, address, role, created_at"

func (r *repository) GetMember(ctx context.Context, id int64) (model.Member, error) {
	query, args, err := qb.Select(memberColumns).
		From(memberTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Member{}, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Member{}, err
	}
	defer rows.Close()

	m, err := pgx.CollectOneRow(rows, pgx.RowToStructByNameLax[model.Member])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Member{}, errs.ErrNotFound
		}
		return model.Member{}, err
	}
	return m, nil
}

func (r *repository) ListMembers(ctx context.Context) ([]model.Member, error) {
	query, args, err := qb.Select(memberColumns).
		From(memberTableName).
		Where(sq.Eq{"role": model.RoleMember}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByNameLax[model.Member])
}

func (r *repository) CreateMember(ctx context.Context, m model.Member) (model.Member, error) {
	query, args, err := qb.Insert(memberTableName).
		Columns("name", "email", "phone", "address", "role").
		Values(m.Name, m.Email, m.Phone, m.Address, m.Role).
		Suffix("returning " + memberColumns).
		ToSql()
	if err != nil {
		return model.Member{}, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Member{}, classifyPgError(err)
	}
	defer rows.Close()

	created, err := pgx.CollectOneRow(rows, pgx.RowToStructByNameLax[model.Member])
	if err != nil {
		r.log.Error("CreateMember", zap.String("q", query), zap.Any("args", args))
		return model.Member{}, classifyPgError(err)
	}
	return created, nil
}

func (r *repository) UpdateMember(ctx context.Context, m model.Member) (model.Member, error) {
	query, args, err := qb.Update(memberTableName).
		Set("name", m.Name).
		Set("email", m.Email).
		Set("phone", m.Phone).
		Set("address", m.Address).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": m.ID}).
		Suffix("returning " + memberColumns).
		ToSql()
	if err != nil {
		return model.Member{}, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Member{}, classifyPgError(err)
	}
	defer rows.Close()

	updated, err := pgx.CollectOneRow(rows, pgx.RowToStructByNameLax[model.Member])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Member{}, errs.ErrNotFound
		}
		return model.Member{}, classifyPgError(err)
	}
	return updated, nil
}

func (r *repository) DeleteMember(ctx context.Context, id int64) error {
	query, args, err := qb.Delete(memberTableName).
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

// classifyPgError maps the constraint violations the engine relies on as a
// storage-level backstop onto the error taxonomy.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return errors.WithMessage(errs.ErrDuplicate, pgErr.ConstraintName)
	case pgerrcode.ForeignKeyViolation:
		return errors.WithMessage(errs.ErrIntegrity, pgErr.ConstraintName)
	case pgerrcode.CheckViolation:
		if pgErr.ConstraintName == "book_stock_non_negative" {
			return errors.WithMessage(errs.ErrStockExhausted, pgErr.ConstraintName)
		}
		return errors.WithMessage(errs.ErrIntegrity, pgErr.ConstraintName)
	}
	return err
}
