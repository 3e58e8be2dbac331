package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
)

var fineColumns = []string{"id", "member_id", "loan_id", "amount", "paid_at"}

func (r *repository) CreateFine(ctx context.Context, fine model.Fine) (model.Fine, error) {
	return getOne[model.Fine](ctx, r, "CreateFine", insertFineQuery(fine), errs.ErrFineNotFound)
}

func (r *repository) LockFine(ctx context.Context, id int64) (model.Fine, error) {
	return getOne[model.Fine](ctx, r, "LockFine", lockByID(finesTableName, fineColumns, id), errs.ErrFineNotFound)
}

func (r *repository) UpdateFine(ctx context.Context, fine model.Fine) error {
	q := qb.Update(finesTableName).
		Set("paid_at", fine.PaidAt).
		Where(sq.Eq{"id": fine.ID})
	n, err := r.exec(ctx, "UpdateFine", q)
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrFineNotFound
	}
	return nil
}

func (r *repository) CountUnpaidFines(ctx context.Context, memberID int64) (int, error) {
	q := qb.Select("count(*)").
		From(finesTableName).
		Where(sq.Eq{"member_id": memberID}).
		Where(sq.Eq{"paid_at": nil})
	return r.count(ctx, "CountUnpaidFines", q)
}

// insertFineQuery stores the amount at the scale of the NUMERIC(10,2) column.
func insertFineQuery(fine model.Fine) sq.InsertBuilder {
	return qb.Insert(finesTableName).
		Columns("member_id", "loan_id", "amount").
		Values(fine.MemberID, fine.LoanID, fine.Amount.StringFixed(2)).
		Suffix("RETURNING " + strings.Join(fineColumns, ", "))
}

func (r *repository) ListFines(ctx context.Context) ([]model.Fine, error) {
	q := qb.Select(fineColumns...).
		From(finesTableName).
		OrderBy("id")
	return getAll[model.Fine](ctx, r, "ListFines", q)
}
