package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
)

var memberColumns = []string{
	"id", "name", "email", "membership_number", "status", "created_at", "updated_at",
}

func (r *repository) CreateMember(ctx context.Context, member model.Member) (model.Member, error) {
	q := qb.Insert(membersTableName).
		Columns("name", "email", "membership_number", "status").
		Values(member.Name, member.Email, member.MembershipNumber, member.Status).
		Suffix("RETURNING " + strings.Join(memberColumns, ", "))
	return getOne[model.Member](ctx, r, "CreateMember", q, errs.ErrMemberNotFound)
}

func (r *repository) GetMember(ctx context.Context, id int64) (model.Member, error) {
	q := qb.Select(memberColumns...).
		From(membersTableName).
		Where(sq.Eq{"id": id})
	return getOne[model.Member](ctx, r, "GetMember", q, errs.ErrMemberNotFound)
}

func (r *repository) LockMember(ctx context.Context, id int64) (model.Member, error) {
	return getOne[model.Member](ctx, r, "LockMember", lockByID(membersTableName, memberColumns, id), errs.ErrMemberNotFound)
}

func (r *repository) ListMembers(ctx context.Context) ([]model.Member, error) {
	q := qb.Select(memberColumns...).
		From(membersTableName).
		OrderBy("id")
	return getAll[model.Member](ctx, r, "ListMembers", q)
}

func (r *repository) UpdateMember(ctx context.Context, member model.Member) (model.Member, error) {
	q := qb.Update(membersTableName).
		SetMap(map[string]any{
			"name":              member.Name,
			"email":             member.Email,
			"membership_number": member.MembershipNumber,
			"status":            member.Status,
			"updated_at":        sq.Expr("now()"),
		}).
		Where(sq.Eq{"id": member.ID}).
		Suffix("RETURNING " + strings.Join(memberColumns, ", "))
	return getOne[model.Member](ctx, r, "UpdateMember", q, errs.ErrMemberNotFound)
}

func (r *repository) DeleteMember(ctx context.Context, id int64) error {
	n, err := r.exec(ctx, "DeleteMember", qb.Delete(membersTableName).Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrMemberNotFound
	}
	return nil
}
