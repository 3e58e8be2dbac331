package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/library/internal/repository"
)

// memStore is an in-memory Querier. memRepo serializes transactions with a
// single mutex, which is stricter than row locks, and records the row locks
// each transaction asked for so tests can check the engine requests them.
type memStore struct {
	mu      sync.Mutex
	books   map[int64]model.Book
	members map[int64]model.Member
	loans   map[int64]model.Loan
	fines   map[int64]model.Fine
	seq     int64
	failOn  map[string]error
}

type memRepo struct {
	*memStore
	txMu sync.Mutex
	// txLocks holds the rows each committed transaction locked, in order.
	txLocks [][]string
}

// memTx is the Querier handed to an Atomic callback. It records every row
// lock taken through it.
type memTx struct {
	*memStore
	locks []string
}

func (tx *memTx) lock(kind string, id int64) {
	tx.locks = append(tx.locks, fmt.Sprintf("%s:%d", kind, id))
}

func (tx *memTx) LockBook(ctx context.Context, id int64) (model.Book, error) {
	tx.lock("book", id)
	return tx.memStore.LockBook(ctx, id)
}

func (tx *memTx) LockMember(ctx context.Context, id int64) (model.Member, error) {
	tx.lock("member", id)
	return tx.memStore.LockMember(ctx, id)
}

func (tx *memTx) LockLoan(ctx context.Context, id int64) (model.Loan, error) {
	tx.lock("loan", id)
	return tx.memStore.LockLoan(ctx, id)
}

func (tx *memTx) LockFine(ctx context.Context, id int64) (model.Fine, error) {
	tx.lock("fine", id)
	return tx.memStore.LockFine(ctx, id)
}

func (r *memRepo) committedLocks() [][]string {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return r.txLocks
}

func (r *memRepo) resetLocks() {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	r.txLocks = nil
}

var _ repository.Repository = (*memRepo)(nil)

var repositoryFilterAll = repository.LoanFilter{}

func newMemRepo() *memRepo {
	return &memRepo{memStore: &memStore{
		books:   map[int64]model.Book{},
		members: map[int64]model.Member{},
		loans:   map[int64]model.Loan{},
		fines:   map[int64]model.Fine{},
		failOn:  map[string]error{},
	}}
}

type snapshot struct {
	books   map[int64]model.Book
	members map[int64]model.Member
	loans   map[int64]model.Loan
	fines   map[int64]model.Fine
}

func clone[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (r *memRepo) Atomic(_ context.Context, fn func(q repository.Querier) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	snap := snapshot{clone(r.books), clone(r.members), clone(r.loans), clone(r.fines)}
	r.mu.Unlock()

	tx := &memTx{memStore: r.memStore}
	if err := fn(tx); err != nil {
		r.mu.Lock()
		r.books, r.members, r.loans, r.fines = snap.books, snap.members, snap.loans, snap.fines
		r.mu.Unlock()
		return err
	}
	r.txLocks = append(r.txLocks, tx.locks)
	return nil
}

func (r *memRepo) MarkOverdue(ctx context.Context, now time.Time) ([]int64, error) {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return r.memStore.MarkOverdue(ctx, now)
}

func (s *memStore) fail(op string) error {
	return s.failOn[op]
}

func (s *memStore) next() int64 {
	s.seq++
	return s.seq
}

func (s *memStore) CreateBook(_ context.Context, book model.Book) (model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		if b.ISBN == book.ISBN {
			return model.Book{}, errs.ErrDuplicate
		}
	}
	book.ID = s.next()
	s.books[book.ID] = book
	return book, nil
}

func (s *memStore) GetBook(_ context.Context, id int64) (model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return model.Book{}, errs.ErrBookNotFound
	}
	return b, nil
}

func (s *memStore) LockBook(ctx context.Context, id int64) (model.Book, error) {
	return s.GetBook(ctx, id)
}

func (s *memStore) ListBooks(_ context.Context, onlyAvailable bool) ([]model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Book, 0, len(s.books))
	for _, b := range s.books {
		if onlyAvailable && (b.Status != model.BookAvailable || b.AvailableCopies == 0) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpdateBook(_ context.Context, book model.Book) (model.Book, error) {
	if err := s.fail("UpdateBook"); err != nil {
		return model.Book{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[book.ID]; !ok {
		return model.Book{}, errs.ErrBookNotFound
	}
	s.books[book.ID] = book
	return book, nil
}

func (s *memStore) DeleteBook(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return errs.ErrBookNotFound
	}
	for _, l := range s.loans {
		if l.BookID == id {
			return errs.ErrInUse
		}
	}
	delete(s.books, id)
	return nil
}

func (s *memStore) CreateMember(_ context.Context, member model.Member) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.Email == member.Email || m.MembershipNumber == member.MembershipNumber {
			return model.Member{}, errs.ErrDuplicate
		}
	}
	member.ID = s.next()
	s.members[member.ID] = member
	return member, nil
}

func (s *memStore) GetMember(_ context.Context, id int64) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return model.Member{}, errs.ErrMemberNotFound
	}
	return m, nil
}

func (s *memStore) LockMember(ctx context.Context, id int64) (model.Member, error) {
	return s.GetMember(ctx, id)
}

func (s *memStore) ListMembers(_ context.Context) ([]model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpdateMember(_ context.Context, member model.Member) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[member.ID]; !ok {
		return model.Member{}, errs.ErrMemberNotFound
	}
	s.members[member.ID] = member
	return member, nil
}

func (s *memStore) DeleteMember(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return errs.ErrMemberNotFound
	}
	delete(s.members, id)
	return nil
}

func (s *memStore) CreateLoan(_ context.Context, loan model.Loan) (model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loan.ID = s.next()
	s.loans[loan.ID] = loan
	return loan, nil
}

func (s *memStore) LockLoan(_ context.Context, id int64) (model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return model.Loan{}, errs.ErrLoanNotFound
	}
	return l, nil
}

func (s *memStore) UpdateLoan(_ context.Context, loan model.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loans[loan.ID]; !ok {
		return errs.ErrLoanNotFound
	}
	s.loans[loan.ID] = loan
	return nil
}

func hasStatus(st model.LoanStatus, statuses []model.LoanStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s *memStore) CountLoans(_ context.Context, memberID int64, statuses ...model.LoanStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.loans {
		if l.MemberID == memberID && hasStatus(l.Status, statuses) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListLoans(_ context.Context, filter repository.LoanFilter) ([]model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Loan, 0)
	for _, l := range s.loans {
		if filter.MemberID != 0 && l.MemberID != filter.MemberID {
			continue
		}
		if !hasStatus(l.Status, filter.Statuses) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) MarkOverdue(_ context.Context, now time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[int64]bool{}
	ids := make([]int64, 0)
	loanIDs := make([]int64, 0, len(s.loans))
	for id := range s.loans {
		loanIDs = append(loanIDs, id)
	}
	sort.Slice(loanIDs, func(i, j int) bool { return loanIDs[i] < loanIDs[j] })
	for _, id := range loanIDs {
		l := s.loans[id]
		if l.Status != model.LoanActive || !l.DueDate.Before(now) {
			continue
		}
		l.Status = model.LoanOverdue
		s.loans[id] = l
		if !seen[l.MemberID] {
			seen[l.MemberID] = true
			ids = append(ids, l.MemberID)
		}
	}
	return ids, nil
}

func (s *memStore) CreateFine(_ context.Context, fine model.Fine) (model.Fine, error) {
	if err := s.fail("CreateFine"); err != nil {
		return model.Fine{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fine.ID = s.next()
	s.fines[fine.ID] = fine
	return fine, nil
}

func (s *memStore) LockFine(_ context.Context, id int64) (model.Fine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fines[id]
	if !ok {
		return model.Fine{}, errs.ErrFineNotFound
	}
	return f, nil
}

func (s *memStore) UpdateFine(_ context.Context, fine model.Fine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fines[fine.ID]; !ok {
		return errs.ErrFineNotFound
	}
	s.fines[fine.ID] = fine
	return nil
}

func (s *memStore) CountUnpaidFines(_ context.Context, memberID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.fines {
		if f.MemberID == memberID && f.PaidAt == nil {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListFines(_ context.Context) ([]model.Fine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Fine, 0, len(s.fines))
	for _, f := range s.fines {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
