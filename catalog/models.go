package catalog

import "time"

// Status is a book's circulation state.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBorrowed  Status = "borrowed"
)

// Borrower describes who currently holds a borrowed book. It is non-nil
// exactly when the book's status is borrowed.
type Borrower struct {
	Name       string    `json:"name"`
	BorrowedAt time.Time `json:"borrowedAt"`
	DueDate    string    `json:"dueDate,omitempty"` // YYYY-MM-DD, optional
}

// Book represents one catalog record. ID and AddedAt are assigned at creation
// and never change; everything else is mutated only through the Store.
type Book struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	ISBN     string    `json:"isbn,omitempty"`
	Category string    `json:"category,omitempty"`
	Year     int       `json:"year,omitempty"`
	Status   Status    `json:"status"`
	Borrower *Borrower `json:"borrower,omitempty"`
	AddedAt  time.Time `json:"addedAt"`
}

// AddParams carries the caller-supplied fields for a new book.
type AddParams struct {
	Title    string `validate:"required"`
	Author   string `validate:"required"`
	ISBN     string `validate:"-"`
	Category string `validate:"-"`
	Year     int    `validate:"omitempty,min=1,max=9998"`
}

// Filter narrows List output. Zero-value fields are ignored; set fields
// combine with logical AND.
type Filter struct {
	// Text matches case-insensitively as a substring of title, author,
	// ISBN, or category.
	Text string
	// Category matches exactly.
	Category string
	// Status matches exactly.
	Status Status
}

// Stats is an aggregate over the current records.
type Stats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Borrowed  int `json:"borrowed"`
}
