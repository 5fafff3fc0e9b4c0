// Package availability decides whether a member can borrow or reserve a
// book right now, and which copy a borrow would consume.
package availability

import (
	"errors"

	"librarydesk/pkg/models"
)

var (
	ErrNoCopies       = errors.New("no copies available for this book")
	ErrNoEligibleCopy = errors.New("no available or reserved copy")
)

type BorrowAction int

const (
	OutOfStock BorrowAction = iota
	BorrowAvailable
	BorrowReserved
)

const (
	LabelBorrow         = "Borrow Book"
	LabelBorrowReserved = "Borrow Reserved Copy"
	LabelOutOfStock     = "Out of Stock"
	LabelAvailable      = "Available"
	LabelReserve        = "Reserve Book"
)

func (a BorrowAction) Label() string {
	switch a {
	case BorrowAvailable:
		return LabelBorrow
	case BorrowReserved:
		return LabelBorrowReserved
	default:
		return LabelOutOfStock
	}
}

// Eligibility is the derived state of a book's action controls.
type Eligibility struct {
	Action            BorrowAction `json:"action"`
	Label             string       `json:"label"`
	BorrowEnabled     bool         `json:"borrowEnabled"`
	Copy              *models.Copy `json:"copy,omitempty"`
	CanReserve        bool         `json:"canReserve"`
	AvailabilityLabel string       `json:"availabilityLabel"`
}

// Evaluate is computed fresh from the book each time; nothing is cached.
func Evaluate(book models.Book) Eligibility {
	e := Eligibility{
		CanReserve:        book.AvailableQuantity == 0,
		AvailabilityLabel: LabelOutOfStock,
	}
	if book.AvailableQuantity > 0 {
		e.AvailabilityLabel = LabelAvailable
	}

	picked, err := SelectCopy(book.Copies)
	if err == nil {
		e.Copy = &picked
		if picked.Status == models.CopyAvailable {
			e.Action = BorrowAvailable
		} else {
			e.Action = BorrowReserved
		}
	}
	e.BorrowEnabled = e.Action != OutOfStock
	e.Label = e.Action.Label()
	return e
}

// SelectCopy prefers an AVAILABLE copy and only falls back to a RESERVED one
// when no AVAILABLE copy exists.
func SelectCopy(copies []models.Copy) (models.Copy, error) {
	if len(copies) == 0 {
		return models.Copy{}, ErrNoCopies
	}
	for _, c := range copies {
		if c.Status == models.CopyAvailable {
			return c, nil
		}
	}
	for _, c := range copies {
		if c.Status == models.CopyReserved {
			return c, nil
		}
	}
	return models.Copy{}, ErrNoEligibleCopy
}

// CanDeleteCopy is false while the copy is on loan.
func CanDeleteCopy(c models.Copy) bool {
	return c.Status != models.CopyLoaned
}

func BorrowRequest(copyID, memberID int64) models.BorrowRequest {
	return models.BorrowRequest{
		Member:   models.Ref{ID: memberID},
		BookCopy: models.Ref{ID: copyID},
	}
}

func ReservationRequest(bookID, memberID int64) models.ReservationRequest {
	return models.ReservationRequest{
		Book:   models.Ref{ID: bookID},
		Member: models.Ref{ID: memberID},
		Status: models.ReservationPending,
	}
}
