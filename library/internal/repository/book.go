package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
)

var bookColumns = []string{
	"id", "isbn", "title", "author", "category", "status",
	"total_copies", "available_copies", "created_at", "updated_at",
}

func (r *repository) CreateBook(ctx context.Context, book model.Book) (model.Book, error) {
	q := qb.Insert(booksTableName).
		Columns("isbn", "title", "author", "category", "status", "total_copies", "available_copies").
		Values(book.ISBN, book.Title, book.Author, book.Category, book.Status, book.TotalCopies, book.AvailableCopies).
		Suffix("RETURNING " + strings.Join(bookColumns, ", "))
	return getOne[model.Book](ctx, r, "CreateBook", q, errs.ErrBookNotFound)
}

func (r *repository) GetBook(ctx context.Context, id int64) (model.Book, error) {
	q := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": id})
	return getOne[model.Book](ctx, r, "GetBook", q, errs.ErrBookNotFound)
}

func (r *repository) LockBook(ctx context.Context, id int64) (model.Book, error) {
	return getOne[model.Book](ctx, r, "LockBook", lockByID(booksTableName, bookColumns, id), errs.ErrBookNotFound)
}

func (r *repository) ListBooks(ctx context.Context, onlyAvailable bool) ([]model.Book, error) {
	q := qb.Select(bookColumns...).
		From(booksTableName).
		OrderBy("id")
	if onlyAvailable {
		q = q.Where(sq.Eq{"status": model.BookAvailable}).
			Where(sq.Gt{"available_copies": 0})
	}
	return getAll[model.Book](ctx, r, "ListBooks", q)
}

func (r *repository) UpdateBook(ctx context.Context, book model.Book) (model.Book, error) {
	q := qb.Update(booksTableName).
		SetMap(map[string]any{
			"isbn":             book.ISBN,
			"title":            book.Title,
			"author":           book.Author,
			"category":         book.Category,
			"status":           book.Status,
			"total_copies":     book.TotalCopies,
			"available_copies": book.AvailableCopies,
			"updated_at":       sq.Expr("now()"),
		}).
		Where(sq.Eq{"id": book.ID}).
		Suffix("RETURNING " + strings.Join(bookColumns, ", "))
	return getOne[model.Book](ctx, r, "UpdateBook", q, errs.ErrBookNotFound)
}

func (r *repository) DeleteBook(ctx context.Context, id int64) error {
	n, err := r.exec(ctx, "DeleteBook", qb.Delete(booksTableName).Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrBookNotFound
	}
	return nil
}
