package views

import (
	"context"
	"errors"
	"sync"

	"librarydesk/pkg/apiclient"
	"librarydesk/pkg/availability"
	"librarydesk/pkg/models"
	"librarydesk/pkg/normalize"
)

const (
	msgNoCopies          = "No copies available for this book."
	msgLoginToBorrow     = "Please login to borrow books."
	msgLoginToReserve    = "Please login to reserve books."
	msgBorrowFailed      = "Failed to borrow book."
	msgReserveFailed     = "Failed to reserve book."
	msgReserveNotOffered = "This book has available copies; borrow it instead."
	msgBookNotFound      = "Book not found"
	msgBookLoadFailed    = "Failed to load book."
)

type DetailState struct {
	Book        models.Book              `json:"book"`
	Eligibility availability.Eligibility `json:"eligibility"`
	Loaded      bool                     `json:"loaded"`
	Err         string                   `json:"error,omitempty"`
}

// BookDetailView shows one book and owns its borrow and reserve actions.
type BookDetailView struct {
	deps   Deps
	bookID int64
	mount  mount

	mu     sync.Mutex
	book   models.Book
	loaded bool
	err    string
}

func NewBookDetailView(deps Deps, bookID int64) *BookDetailView {
	return &BookDetailView{deps: deps.withDefaults(), bookID: bookID}
}

func (v *BookDetailView) Mount() {
	v.mount.attach(v.deps.Broadcaster, v.deps.Logger, "book detail", v.Refresh)
}

func (v *BookDetailView) Unmount() {
	v.mount.detach()
}

// Refresh re-fetches the book. A 404 drops the last fetched book; any other
// failure keeps it on screen next to the error.
func (v *BookDetailView) Refresh(ctx context.Context) error {
	raw, err := v.deps.API.GetBook(ctx, v.bookID)
	if err != nil {
		v.mu.Lock()
		if apiclient.IsNotFound(err) {
			v.err = msgBookNotFound
			v.book = models.Book{}
			v.loaded = false
		} else {
			v.err = msgBookLoadFailed
		}
		v.mu.Unlock()
		return err
	}
	book := normalize.Book(raw)

	v.mu.Lock()
	v.book = book
	v.loaded = true
	v.err = ""
	v.mu.Unlock()
	return nil
}

// State derives eligibility from the last fetched book on every call.
func (v *BookDetailView) State() DetailState {
	v.mu.Lock()
	book, loaded, msg := v.book, v.loaded, v.err
	v.mu.Unlock()
	s := DetailState{Book: book, Loaded: loaded, Err: msg}
	if loaded {
		s.Eligibility = availability.Evaluate(book)
	}
	return s
}

// Borrow takes the copy eligibility picked and creates a loan for the
// current member. On success the view re-fetches itself and then publishes
// the inventory-updated signal.
func (v *BookDetailView) Borrow(ctx context.Context) (models.Loan, error) {
	v.mu.Lock()
	copies := v.book.Copies
	v.mu.Unlock()

	picked, err := availability.SelectCopy(copies)
	switch {
	case errors.Is(err, availability.ErrNoCopies):
		return models.Loan{}, &ActionError{Message: msgNoCopies, Err: err}
	case err != nil:
		return models.Loan{}, &ActionError{Message: availability.LabelOutOfStock, Err: err}
	}

	user, err := v.deps.member()
	if err != nil {
		return models.Loan{}, &ActionError{Message: msgLoginToBorrow, Err: err}
	}

	raw, err := v.deps.API.Borrow(ctx, availability.BorrowRequest(picked.ID, user.ID))
	if err != nil {
		return models.Loan{}, actionError(err, msgBorrowFailed)
	}

	if err := v.Refresh(ctx); err != nil {
		v.deps.Logger.Printf("book %d refresh after borrow failed: %v", v.bookID, err)
	}
	v.deps.Broadcaster.Publish()
	return normalize.Loan(raw), nil
}

// Reserve places a pending reservation. It is only offered when no copy is
// available.
func (v *BookDetailView) Reserve(ctx context.Context) (models.Reservation, error) {
	v.mu.Lock()
	book := v.book
	v.mu.Unlock()

	if !availability.Evaluate(book).CanReserve {
		return models.Reservation{}, &ActionError{Message: msgReserveNotOffered, Err: ErrReserveNotOffered}
	}
	user, err := v.deps.member()
	if err != nil {
		return models.Reservation{}, &ActionError{Message: msgLoginToReserve, Err: err}
	}

	raw, err := v.deps.API.CreateReservation(ctx, availability.ReservationRequest(v.bookID, user.ID))
	if err != nil {
		return models.Reservation{}, actionError(err, msgReserveFailed)
	}
	return normalize.Reservation(raw), nil
}
