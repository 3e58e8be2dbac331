package handler

import (
	"context"

	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/library/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LendingService interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	ListBooks(ctx context.Context, onlyAvailable bool) ([]model.Book, error)
	UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) error

	CreateMember(ctx context.Context, req model.CreateMemberRequest) (model.Member, error)
	GetMember(ctx context.Context, id int64) (model.Member, error)
	ListMembers(ctx context.Context) ([]model.Member, error)
	UpdateMember(ctx context.Context, id int64, req model.UpdateMemberRequest) (model.Member, error)
	DeleteMember(ctx context.Context, id int64) error

	Borrow(ctx context.Context, memberID, bookID int64) (model.Loan, error)
	Return(ctx context.Context, loanID int64) (model.ReturnResult, error)
	ListOverdue(ctx context.Context) ([]model.Loan, error)
	ListBorrowedByMember(ctx context.Context, memberID int64) ([]model.Loan, error)

	ListFines(ctx context.Context) ([]model.Fine, error)
	PayFine(ctx context.Context, fineID int64) (model.Fine, error)
}

var _ LendingService = (*service.Service)(nil)
