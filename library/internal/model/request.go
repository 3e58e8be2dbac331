package model

type CreateBookRequest struct {
	ISBN        string `json:"isbn" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author" validate:"required"`
	Category    string `json:"category"`
	TotalCopies *int   `json:"total_copies" validate:"omitempty,gte=0"`
}

func (r CreateBookRequest) Book() Book {
	copies := 1
	if r.TotalCopies != nil {
		copies = *r.TotalCopies
	}
	return Book{
		ISBN:            r.ISBN,
		Title:           r.Title,
		Author:          r.Author,
		Category:        r.Category,
		Status:          BookAvailable,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
}

type UpdateBookRequest struct {
	ISBN            *string     `json:"isbn"`
	Title           *string     `json:"title"`
	Author          *string     `json:"author"`
	Category        *string     `json:"category"`
	Status          *BookStatus `json:"status" validate:"omitempty,oneof=available borrowed reserved maintenance"`
	TotalCopies     *int        `json:"total_copies" validate:"omitempty,gte=0"`
	AvailableCopies *int        `json:"available_copies" validate:"omitempty,gte=0"`
}

func (r UpdateBookRequest) Apply(b *Book) {
	if r.ISBN != nil {
		b.ISBN = *r.ISBN
	}
	if r.Title != nil {
		b.Title = *r.Title
	}
	if r.Author != nil {
		b.Author = *r.Author
	}
	if r.Category != nil {
		b.Category = *r.Category
	}
	if r.Status != nil {
		b.Status = *r.Status
	}
	if r.TotalCopies != nil {
		b.TotalCopies = *r.TotalCopies
	}
	if r.AvailableCopies != nil {
		b.AvailableCopies = *r.AvailableCopies
	}
}

type CreateMemberRequest struct {
	Name             string `json:"name" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	MembershipNumber string `json:"membership_number" validate:"required"`
}

func (r CreateMemberRequest) Member() Member {
	return Member{
		Name:             r.Name,
		Email:            r.Email,
		MembershipNumber: r.MembershipNumber,
		Status:           MemberActive,
	}
}

type UpdateMemberRequest struct {
	Name             *string       `json:"name"`
	Email            *string       `json:"email" validate:"omitempty,email"`
	MembershipNumber *string       `json:"membership_number"`
	Status           *MemberStatus `json:"status" validate:"omitempty,oneof=active suspended"`
}

func (r UpdateMemberRequest) Apply(m *Member) {
	if r.Name != nil {
		m.Name = *r.Name
	}
	if r.Email != nil {
		m.Email = *r.Email
	}
	if r.MembershipNumber != nil {
		m.MembershipNumber = *r.MembershipNumber
	}
	if r.Status != nil {
		m.Status = *r.Status
	}
}

type BorrowRequest struct {
	MemberID int64 `json:"member_id" validate:"required"`
	BookID   int64 `json:"book_id" validate:"required"`
}
