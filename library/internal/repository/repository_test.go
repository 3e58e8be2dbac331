package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
)

func TestLockByID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		table   string
		columns []string
	}{
		{name: "book", table: booksTableName, columns: bookColumns},
		{name: "member", table: membersTableName, columns: memberColumns},
		{name: "loan", table: loansTableName, columns: loanColumns},
		{name: "fine", table: finesTableName, columns: fineColumns},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			query, args, err := lockByID(tt.table, tt.columns, 42).ToSql()
			require.NoError(t, err)
			require.Equal(t,
				"SELECT "+strings.Join(tt.columns, ", ")+" FROM "+tt.table+" WHERE id = $1 FOR UPDATE",
				query)
			require.Equal(t, []any{int64(42)}, args)
		})
	}
}

func TestMarkOverdueQuery(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	query, args, err := markOverdueQuery(now).ToSql()
	require.NoError(t, err)
	require.Equal(t, "UPDATE loans SET status = $1 WHERE status = $2 AND due_date < $3 RETURNING member_id", query)
	require.Equal(t, []any{model.LoanOverdue, model.LoanActive, now}, args)
}

func TestCountLoansQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		statuses  []model.LoanStatus
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "all statuses",
			wantQuery: "SELECT count(*) FROM loans WHERE member_id = $1",
			wantArgs:  []any{int64(5)},
		},
		{
			name:      "open loans",
			statuses:  []model.LoanStatus{model.LoanActive, model.LoanOverdue},
			wantQuery: "SELECT count(*) FROM loans WHERE member_id = $1 AND status IN ($2,$3)",
			wantArgs:  []any{int64(5), model.LoanActive, model.LoanOverdue},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			query, args, err := countLoansQuery(5, tt.statuses).ToSql()
			require.NoError(t, err)
			require.Equal(t, tt.wantQuery, query)
			require.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestInsertFineQuery(t *testing.T) {
	t.Parallel()

	query, args, err := insertFineQuery(model.Fine{
		MemberID: 1,
		LoanID:   7,
		Amount:   decimal.RequireFromString("0.5"),
	}).ToSql()
	require.NoError(t, err)
	require.Equal(t,
		"INSERT INTO fines (member_id,loan_id,amount) VALUES ($1,$2,$3) RETURNING id, member_id, loan_id, amount, paid_at",
		query)
	require.Equal(t, []any{int64(1), int64(7), "0.50"}, args)
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantErr error
		wantMsg string
	}{
		{
			name:    "unique violation",
			err:     &pgconn.PgError{Code: pgerrcode.UniqueViolation},
			wantErr: errs.ErrDuplicate,
		},
		{
			name:    "foreign key violation",
			err:     fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}),
			wantErr: errs.ErrInUse,
		},
		{
			name:    "check violation",
			err:     &pgconn.PgError{Code: pgerrcode.CheckViolation},
			wantErr: errs.ErrConstraint,
		},
		{
			name:    "other",
			err:     errors.New("conn reset"),
			wantMsg: "CreateBook: conn reset",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := translate(tt.err, "CreateBook")
			if tt.wantErr != nil {
				require.ErrorIs(t, got, tt.wantErr)
				return
			}
			require.EqualError(t, got, tt.wantMsg)
		})
	}
}

func TestDistinct(t *testing.T) {
	t.Parallel()
	require.Equal(t, []int64{3, 1, 2}, distinct([]int64{3, 1, 3, 2, 1}))
	require.Empty(t, distinct(nil))
}
