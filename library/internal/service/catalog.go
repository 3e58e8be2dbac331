package service

import (
	"context"

	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/library/internal/repository"
)

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	book := req.Book()
	if err := book.Validate(); err != nil {
		return model.Book{}, err
	}
	return s.repo.CreateBook(ctx, book)
}

func (s *Service) GetBook(ctx context.Context, id int64) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *Service) ListBooks(ctx context.Context, onlyAvailable bool) ([]model.Book, error) {
	return s.repo.ListBooks(ctx, onlyAvailable)
}

// UpdateBook applies a partial update under the book row lock so it cannot
// interleave with a borrow or a return of the same book.
func (s *Service) UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest) (model.Book, error) {
	var book model.Book
	err := s.repo.Atomic(ctx, func(q repository.Querier) error {
		var err error
		book, err = q.LockBook(ctx, id)
		if err != nil {
			return err
		}
		req.Apply(&book)
		if err = book.Validate(); err != nil {
			return err
		}
		book, err = q.UpdateBook(ctx, book)
		return err
	})
	if err != nil {
		return model.Book{}, err
	}
	return book, nil
}

func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	return s.repo.DeleteBook(ctx, id)
}

func (s *Service) CreateMember(ctx context.Context, req model.CreateMemberRequest) (model.Member, error) {
	return s.repo.CreateMember(ctx, req.Member())
}

func (s *Service) GetMember(ctx context.Context, id int64) (model.Member, error) {
	return s.repo.GetMember(ctx, id)
}

func (s *Service) ListMembers(ctx context.Context) ([]model.Member, error) {
	return s.repo.ListMembers(ctx)
}

func (s *Service) UpdateMember(ctx context.Context, id int64, req model.UpdateMemberRequest) (model.Member, error) {
	var member model.Member
	err := s.repo.Atomic(ctx, func(q repository.Querier) error {
		var err error
		member, err = q.LockMember(ctx, id)
		if err != nil {
			return err
		}
		req.Apply(&member)
		if err = member.Validate(); err != nil {
			return err
		}
		member, err = q.UpdateMember(ctx, member)
		return err
	})
	if err != nil {
		return model.Member{}, err
	}
	return member, nil
}

func (s *Service) DeleteMember(ctx context.Context, id int64) error {
	return s.repo.DeleteMember(ctx, id)
}
