// Package catalog implements the book catalog: a newest-first collection of
// book records persisted as a single JSON blob, with borrow/return state
// transitions gated by typed errors.
package catalog

import (
	"context"
	"encoding/json"
	"iter"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"library-catalog/blob"
)

// booksKey is the blob key the whole record set is serialized under.
const booksKey = "lc_books_v1"

// dueDateLayout is the accepted due date format.
const dueDateLayout = "2006-01-02"

// Store owns the in-memory record set and keeps it synchronized with the
// books blob. The in-memory state is the source of truth: persistence
// failures are logged and swallowed, so a caller cannot distinguish a
// persisted success from a save failure. That trades durability across
// restarts for a mutator API that never fails on I/O.
type Store struct {
	kv       blob.Store
	log      *zap.Logger
	validate *validator.Validate

	books []*Book
	now   func() time.Time
}

// NewStore loads the books blob through kv and returns a ready store. A
// missing blob yields an empty catalog; a corrupt blob is logged and also
// yields an empty catalog, matching the original's defensive load.
func NewStore(ctx context.Context, kv blob.Store, log *zap.Logger) *Store {
	s := &Store{
		kv:       kv,
		log:      log,
		validate: validator.New(),
		now:      time.Now,
	}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	raw, err := s.kv.Get(ctx, booksKey)
	if err != nil {
		// ErrNoKey is the normal first run; anything else is degraded I/O.
		// Either way the catalog starts empty.
		s.log.Debug("no books blob loaded", zap.Error(err))
		return
	}
	var books []*Book
	if err := json.Unmarshal(raw, &books); err != nil {
		s.log.Error("books blob corrupt, starting empty", zap.Error(err))
		return
	}
	s.books = books
}

// persist serializes the full record set and writes it back synchronously.
// Failures are logged, not returned.
func (s *Store) persist(ctx context.Context) {
	raw, err := json.Marshal(s.books)
	if err != nil {
		s.log.Error("marshal books", zap.Error(err))
		return
	}
	if err := s.kv.Put(ctx, booksKey, raw); err != nil {
		s.log.Error("persist books", zap.Error(err))
	}
}

// Add validates params, prepends a new available record, and persists.
func (s *Store) Add(ctx context.Context, params AddParams) (Book, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.Author = strings.TrimSpace(params.Author)

	if err := s.validate.Struct(params); err != nil {
		return Book{}, asValidationError(err)
	}

	book := &Book{
		ID:       uuid.NewString(),
		Title:    params.Title,
		Author:   params.Author,
		ISBN:     strings.TrimSpace(params.ISBN),
		Category: strings.TrimSpace(params.Category),
		Year:     params.Year,
		Status:   StatusAvailable,
		AddedAt:  s.now().UTC(),
	}
	// Newest-first ordering.
	s.books = append([]*Book{book}, s.books...)
	s.persist(ctx)
	return *book, nil
}

// Get returns the book with the given id.
func (s *Store) Get(id string) (Book, error) {
	b := s.find(id)
	if b == nil {
		return Book{}, &NotFoundError{ID: id}
	}
	return copyBook(b), nil
}

// List returns a lazy, restartable sequence of the books matching f, in
// newest-first order. Each range over the sequence re-reads current state.
func (s *Store) List(f Filter) iter.Seq[Book] {
	return func(yield func(Book) bool) {
		for _, b := range s.books {
			if !f.matches(b) {
				continue
			}
			if !yield(copyBook(b)) {
				return
			}
		}
	}
}

// Borrow transitions an available book to borrowed and records the borrower.
func (s *Store) Borrow(ctx context.Context, id, borrowerName, dueDate string) (Book, error) {
	borrowerName = strings.TrimSpace(borrowerName)
	if borrowerName == "" {
		return Book{}, &ValidationError{Field: "borrower", Reason: "name is required"}
	}
	if dueDate != "" {
		if _, err := time.Parse(dueDateLayout, dueDate); err != nil {
			return Book{}, &ValidationError{Field: "dueDate", Reason: "must be YYYY-MM-DD"}
		}
	}

	b := s.find(id)
	if b == nil {
		return Book{}, &NotFoundError{ID: id}
	}
	if b.Status != StatusAvailable {
		return Book{}, &StateError{ID: id, Status: b.Status, Op: "borrow"}
	}

	b.Status = StatusBorrowed
	b.Borrower = &Borrower{
		Name:       borrowerName,
		BorrowedAt: s.now().UTC(),
		DueDate:    dueDate,
	}
	s.persist(ctx)
	return copyBook(b), nil
}

// Return transitions a borrowed book back to available and clears the
// borrower. Returning a book that is not borrowed fails with a StateError:
// the state machine has no available-to-available transition.
func (s *Store) Return(ctx context.Context, id string) (Book, error) {
	b := s.find(id)
	if b == nil {
		return Book{}, &NotFoundError{ID: id}
	}
	if b.Status != StatusBorrowed {
		return Book{}, &StateError{ID: id, Status: b.Status, Op: "return"}
	}

	b.Status = StatusAvailable
	b.Borrower = nil
	s.persist(ctx)
	return copyBook(b), nil
}

// Remove deletes the book with the given id.
func (s *Store) Remove(ctx context.Context, id string) error {
	for i, b := range s.books {
		if b.ID == id {
			s.books = append(s.books[:i], s.books[i+1:]...)
			s.persist(ctx)
			return nil
		}
	}
	return &NotFoundError{ID: id}
}

// Stats aggregates over the current records.
func (s *Store) Stats() Stats {
	st := Stats{Total: len(s.books)}
	for _, b := range s.books {
		switch b.Status {
		case StatusAvailable:
			st.Available++
		case StatusBorrowed:
			st.Borrowed++
		}
	}
	return st
}

func (s *Store) find(id string) *Book {
	for _, b := range s.books {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (f Filter) matches(b *Book) bool {
	if f.Text != "" {
		q := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(b.Title), q) &&
			!strings.Contains(strings.ToLower(b.Author), q) &&
			!strings.Contains(strings.ToLower(b.ISBN), q) &&
			!strings.Contains(strings.ToLower(b.Category), q) {
			return false
		}
	}
	if f.Category != "" && b.Category != f.Category {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return true
}

// copyBook returns a detached copy so callers cannot mutate store state.
func copyBook(b *Book) Book {
	out := *b
	if b.Borrower != nil {
		borrower := *b.Borrower
		out.Borrower = &borrower
	}
	return out
}

// asValidationError maps a validator failure to the store's error taxonomy.
func asValidationError(err error) error {
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := "is required"
		if fe.Tag() == "min" || fe.Tag() == "max" {
			reason = "must be between 1 and 9998"
		}
		return &ValidationError{Field: strings.ToLower(fe.Field()), Reason: reason}
	}
	return &ValidationError{Field: "input", Reason: err.Error()}
}
