package repository

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
)

var loanColumns = []string{
	"id", "member_id", "book_id", "borrowed_at", "due_date", "returned_at", "status",
}

func (r *repository) CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	q := qb.Insert(loansTableName).
		Columns("member_id", "book_id", "borrowed_at", "due_date", "status").
		Values(loan.MemberID, loan.BookID, loan.BorrowedAt, loan.DueDate, loan.Status).
		Suffix("RETURNING " + strings.Join(loanColumns, ", "))
	return getOne[model.Loan](ctx, r, "CreateLoan", q, errs.ErrLoanNotFound)
}

func (r *repository) LockLoan(ctx context.Context, id int64) (model.Loan, error) {
	return getOne[model.Loan](ctx, r, "LockLoan", lockByID(loansTableName, loanColumns, id), errs.ErrLoanNotFound)
}

func (r *repository) UpdateLoan(ctx context.Context, loan model.Loan) error {
	q := qb.Update(loansTableName).
		Set("returned_at", loan.ReturnedAt).
		Set("status", loan.Status).
		Where(sq.Eq{"id": loan.ID})
	n, err := r.exec(ctx, "UpdateLoan", q)
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrLoanNotFound
	}
	return nil
}

func (r *repository) CountLoans(ctx context.Context, memberID int64, statuses ...model.LoanStatus) (int, error) {
	return r.count(ctx, "CountLoans", countLoansQuery(memberID, statuses))
}

func countLoansQuery(memberID int64, statuses []model.LoanStatus) sq.SelectBuilder {
	q := qb.Select("count(*)").
		From(loansTableName).
		Where(sq.Eq{"member_id": memberID})
	if len(statuses) > 0 {
		q = q.Where(sq.Eq{"status": statuses})
	}
	return q
}

func (r *repository) ListLoans(ctx context.Context, filter LoanFilter) ([]model.Loan, error) {
	q := qb.Select(loanColumns...).
		From(loansTableName).
		OrderBy("due_date", "id")
	if filter.MemberID != 0 {
		q = q.Where(sq.Eq{"member_id": filter.MemberID})
	}
	if len(filter.Statuses) > 0 {
		q = q.Where(sq.Eq{"status": filter.Statuses})
	}
	return getAll[model.Loan](ctx, r, "ListLoans", q)
}

func (r *repository) MarkOverdue(ctx context.Context, now time.Time) ([]int64, error) {
	query, args, err := markOverdueQuery(now).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "MarkOverdue")
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "MarkOverdue")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, errors.Wrap(err, "MarkOverdue: pgx.CollectRows")
	}
	if len(ids) > 0 {
		r.log.Debug("loans marked overdue", zap.Int("count", len(ids)))
	}
	return distinct(ids), nil
}

// markOverdueQuery only moves loans still active, so concurrent sweeps
// report each loan once.
func markOverdueQuery(now time.Time) sq.UpdateBuilder {
	return qb.Update(loansTableName).
		Set("status", model.LoanOverdue).
		Where(sq.Eq{"status": model.LoanActive}).
		Where(sq.Lt{"due_date": now}).
		Suffix("RETURNING member_id")
}

func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
