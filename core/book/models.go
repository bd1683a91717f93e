package book

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/maktaba/core"
)

// Book is a catalog title with a fixed number of copies. TakenCount is only
// ever mutated through TakeCopy/ReleaseCopy so the 0 <= TakenCount <= Count
// invariant has a single choke point.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Count       int       `json:"count"`
	TakenCount  int       `json:"taken_count"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// AvailableCount returns the number of copies still reservable.
func (b *Book) AvailableCount() int {
	return b.Count - b.TakenCount
}

// TakeCopy marks one copy as taken.
func (b *Book) TakeCopy() error {
	if b.TakenCount >= b.Count {
		return ErrNoCopiesAvailable
	}
	b.TakenCount++
	return nil
}

// ReleaseCopy returns one taken copy. An underflow means the counters and the
// reservation ledger got out of sync; callers must treat it as an internal bug,
// not user input.
func (b *Book) ReleaseCopy() error {
	if b.TakenCount == 0 {
		return errTakenCountUnderflow
	}
	b.TakenCount--
	return nil
}

// Reservation is one user's claim on one copy of a book for a bounded window.
// At most one active Reservation exists per (book, user) pair.
type Reservation struct {
	ID             string    `json:"id"`
	BookID         string    `json:"book_id"`
	UserID         string    `json:"user_id"`
	EndDate        time.Time `json:"end_date"` // UTC
	ExtensionCount int       `json:"extension_count"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// BookReservation decorates a reservation with its owner's display data.
type BookReservation struct {
	Reservation
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email,omitempty"`
}

// UserReservation decorates a reservation with its book's display data.
type UserReservation struct {
	Reservation
	BookTitle string `json:"book_title"`
}

// NewBook contains information needed to create a catalog entry.
type NewBook struct {
	Title       string   `json:"title" validate:"required"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Count       int      `json:"count" validate:"required,gt=0"`
}

func (nb *NewBook) Validate(validate *validator.Validate) error {
	nb.Title = core.CleanString(nb.Title)
	nb.Author = core.CleanString(nb.Author)
	nb.Description = core.CleanString(nb.Description)
	return validate.Struct(nb)
}

// UpdateBook defines what information may be provided to modify a catalog entry.
// Zero-valued fields keep their current value.
type UpdateBook struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Count       int      `json:"count" validate:"omitempty,gt=0"`
}

func (ub *UpdateBook) Validate(orig Book, validate *validator.Validate) error {
	if title := core.CleanString(ub.Title); title != "" {
		ub.Title = title
	} else {
		ub.Title = orig.Title
	}
	if author := core.CleanString(ub.Author); author != "" {
		ub.Author = author
	} else {
		ub.Author = orig.Author
	}
	if desc := core.CleanString(ub.Description); desc != "" {
		ub.Description = desc
	} else {
		ub.Description = orig.Description
	}
	if ub.Tags == nil {
		ub.Tags = orig.Tags
	}
	if ub.Count == 0 {
		ub.Count = orig.Count
	}

	if err := validate.Struct(ub); err != nil {
		return err
	}
	if ub.Count < orig.TakenCount {
		return core.NewValidationError(nil, core.FieldError{
			Field: "count", Error: "cannot be lower than the number of copies currently taken",
		})
	}
	return nil
}

type QueryFilter struct {
	Search    string   `query:"search"`
	Tags      []string `query:"tag"`
	Available *bool    `query:"available"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Tags == nil && qf.Available == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single book. ForUpdate locks the row for the remainder
// of the enclosing transaction.
type GetFilter struct {
	ID        string
	ForUpdate bool
}
