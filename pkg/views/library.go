package views

import (
	"context"
	"sync"
	"time"

	"librarydesk/pkg/loanstatus"
	"librarydesk/pkg/models"
	"librarydesk/pkg/normalize"
)

const (
	msgLibraryLoadFailed = "Failed to load library data."
	msgReturnFailed      = "Failed to return book"
	msgCancelFailed      = "Failed to cancel reservation"
)

// LoanRow is a loan with the bucket it falls in at the time the state was
// read. Overdue rows sit in the active list.
type LoanRow struct {
	models.Loan
	Bucket loanstatus.Bucket `json:"bucket"`
}

type LibraryState struct {
	Active       []LoanRow            `json:"active"`
	History      []LoanRow            `json:"history"`
	Fines        []LoanRow            `json:"fines"`
	Reservations []models.Reservation `json:"reservations"`
	Err          string               `json:"error,omitempty"`
}

func rows(loans []models.Loan, now time.Time) []LoanRow {
	out := make([]LoanRow, 0, len(loans))
	for _, l := range loans {
		out = append(out, LoanRow{Loan: l, Bucket: loanstatus.Classify(l, now)})
	}
	return out
}

// MyLibraryView is the signed-in member's loans and reservations.
type MyLibraryView struct {
	deps  Deps
	mount mount

	mu           sync.Mutex
	loans        []models.Loan
	reservations []models.Reservation
	err          string
}

func NewMyLibraryView(deps Deps) *MyLibraryView {
	return &MyLibraryView{deps: deps.withDefaults()}
}

func (v *MyLibraryView) Mount() {
	v.mount.attach(v.deps.Broadcaster, v.deps.Logger, "my library", v.Refresh)
}

func (v *MyLibraryView) Unmount() {
	v.mount.detach()
}

// Refresh loads the member's loans, then their reservations. Only the loan
// fetch can fail the view.
func (v *MyLibraryView) Refresh(ctx context.Context) error {
	user, err := v.deps.member()
	if err != nil {
		return err
	}

	raws, err := v.deps.API.MemberLoans(ctx, user.ID)
	if err != nil {
		v.mu.Lock()
		v.err = msgLibraryLoadFailed
		v.mu.Unlock()
		return err
	}
	loans := loanstatus.LoansForMember(normalize.Loans(raws), user.ID)

	v.mu.Lock()
	v.loans = loans
	v.err = ""
	v.mu.Unlock()

	v.deps.secondary("reservations", func() error {
		raw, err := v.deps.API.ListReservations(ctx)
		if err != nil {
			return err
		}
		mine := loanstatus.ReservationsForMember(normalize.Reservations(raw), user.ID)
		v.mu.Lock()
		v.reservations = mine
		v.mu.Unlock()
		return nil
	})
	return nil
}

// State classifies against the current instant on every call.
func (v *MyLibraryView) State() LibraryState {
	v.mu.Lock()
	loans := append([]models.Loan(nil), v.loans...)
	reservations := append([]models.Reservation{}, v.reservations...)
	msg := v.err
	v.mu.Unlock()

	now := v.deps.Now()
	b := loanstatus.Partition(loans, now)
	return LibraryState{
		Active:       rows(b.Active, now),
		History:      rows(b.History, now),
		Fines:        rows(b.Fined, now),
		Reservations: reservations,
		Err:          msg,
	}
}

// Return closes a loan, re-fetches this view and then publishes the
// inventory-updated signal.
func (v *MyLibraryView) Return(ctx context.Context, loanID int64) (models.Loan, error) {
	raw, err := v.deps.API.ReturnLoan(ctx, loanID)
	if err != nil {
		return models.Loan{}, actionError(err, msgReturnFailed)
	}
	if err := v.Refresh(ctx); err != nil {
		v.deps.Logger.Printf("my library refresh after return failed: %v", err)
	}
	v.deps.Broadcaster.Publish()
	return normalize.Loan(raw), nil
}

// CancelReservation is only allowed while the reservation is pending.
func (v *MyLibraryView) CancelReservation(ctx context.Context, id int64) error {
	v.mu.Lock()
	var (
		found models.Reservation
		ok    bool
	)
	for _, r := range v.reservations {
		if r.ID == id {
			found, ok = r, true
			break
		}
	}
	v.mu.Unlock()

	if !ok {
		return &ActionError{Message: msgCancelFailed, Err: ErrReservationUnknown}
	}
	if !loanstatus.CanCancel(found) {
		return &ActionError{Message: msgCancelFailed, Err: ErrNotCancellable}
	}
	if err := v.deps.API.CancelReservation(ctx, id); err != nil {
		return &ActionError{Message: msgCancelFailed, Err: err}
	}
	if err := v.Refresh(ctx); err != nil {
		v.deps.Logger.Printf("my library refresh after cancel failed: %v", err)
	}
	return nil
}
