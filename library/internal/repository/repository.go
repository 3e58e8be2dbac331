package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
)

// Querier is the set of statements the ledger runs. Lock* methods take a
// row-level exclusive lock (SELECT ... FOR UPDATE) held until the enclosing
// transaction ends, so they are only meaningful inside Atomic.
type Querier interface {
	CreateBook(ctx context.Context, book model.Book) (model.Book, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	LockBook(ctx context.Context, id int64) (model.Book, error)
	ListBooks(ctx context.Context, onlyAvailable bool) ([]model.Book, error)
	UpdateBook(ctx context.Context, book model.Book) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) error

	CreateMember(ctx context.Context, member model.Member) (model.Member, error)
	GetMember(ctx context.Context, id int64) (model.Member, error)
	LockMember(ctx context.Context, id int64) (model.Member, error)
	ListMembers(ctx context.Context) ([]model.Member, error)
	UpdateMember(ctx context.Context, member model.Member) (model.Member, error)
	DeleteMember(ctx context.Context, id int64) error

	CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error)
	LockLoan(ctx context.Context, id int64) (model.Loan, error)
	UpdateLoan(ctx context.Context, loan model.Loan) error
	CountLoans(ctx context.Context, memberID int64, statuses ...model.LoanStatus) (int, error)
	ListLoans(ctx context.Context, filter LoanFilter) ([]model.Loan, error)
	// MarkOverdue moves every active loan due before now to overdue and
	// returns the distinct members owning the moved loans.
	MarkOverdue(ctx context.Context, now time.Time) ([]int64, error)

	CreateFine(ctx context.Context, fine model.Fine) (model.Fine, error)
	LockFine(ctx context.Context, id int64) (model.Fine, error)
	UpdateFine(ctx context.Context, fine model.Fine) error
	CountUnpaidFines(ctx context.Context, memberID int64) (int, error)
	ListFines(ctx context.Context) ([]model.Fine, error)
}

type Repository interface {
	Querier
	// Atomic runs fn in a single transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	Atomic(ctx context.Context, fn func(q Querier) error) error
}

type LoanFilter struct {
	MemberID int64
	Statuses []model.LoanStatus
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type repository struct {
	db  dbtx
	log *zap.Logger
}

func NewRepository(db *pgxpool.Pool, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

var _ Repository = (*repository)(nil)

const (
	booksTableName   = `books`
	membersTableName = `members`
	loansTableName   = `loans`
	finesTableName   = `fines`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// lockByID selects the row with id and holds its lock until the enclosing
// transaction ends.
func lockByID(table string, columns []string, id int64) sq.SelectBuilder {
	return qb.Select(columns...).
		From(table).
		Where(sq.Eq{"id": id}).
		Suffix("FOR UPDATE")
}

func (r *repository) Atomic(ctx context.Context, fn func(q Querier) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&repository{db: tx, log: r.log})
	})
}

func (r *repository) exec(ctx context.Context, op string, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, op)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error(op, zap.String("q", query), zap.Any("args", args), zap.Error(err))
		return 0, translate(err, op)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) count(ctx context.Context, op string, b sq.SelectBuilder) (int, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, op)
	}
	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.Wrap(err, op)
	}
	return n, nil
}

// getOne runs b and scans exactly one row into T, mapping no rows to notFound.
func getOne[T any](ctx context.Context, r *repository, op string, b sq.Sqlizer, notFound error) (T, error) {
	var zero T
	query, args, err := b.ToSql()
	if err != nil {
		return zero, errors.Wrap(err, op)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return zero, translate(err, op)
	}
	item, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, notFound
		}
		r.log.Error(op, zap.String("q", query), zap.Any("args", args), zap.Error(err))
		return zero, translate(err, op)
	}
	return item, nil
}

func getAll[T any](ctx context.Context, r *repository, op string, b sq.Sqlizer) ([]T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	r.log.Debug(op, zap.String("query", query), zap.Any("args", args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, errors.Wrapf(err, "%s: pgx.CollectRows", op)
	}
	return items, nil
}

func translate(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return errs.ErrDuplicate
		case pgerrcode.ForeignKeyViolation:
			return errs.ErrInUse
		case pgerrcode.CheckViolation:
			return errs.ErrConstraint
		}
	}
	return errors.Wrap(err, op)
}
