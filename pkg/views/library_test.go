package views

import (
	"net/http"
	"testing"
	"time"

	"librarydesk/pkg/loanstatus"
	"librarydesk/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMyLibraryBuckets(t *testing.T) {
	h := newHarness(t)
	user := h.signIn(t, models.RoleUser)
	other := h.fake.AddUser("other@example.com", "pw", models.RoleUser)

	bookID := h.fake.AddBook("Dune", "Herbert", nil,
		models.CopyAvailable, models.CopyAvailable, models.CopyAvailable, models.CopyAvailable)
	copies := h.fake.Copies(bookID)
	overdue := h.fake.AddLoan(user.ID, copies[0].ID, testNow.Add(-24*time.Hour))
	h.fake.AddLoan(user.ID, copies[1].ID, testNow.Add(72*time.Hour))
	late := h.fake.AddLoan(user.ID, copies[2].ID, testNow.Add(-48*time.Hour))
	h.fake.AddLoan(other.ID, copies[3].ID, testNow.Add(-24*time.Hour))

	v := NewMyLibraryView(h.deps)
	require.NoError(t, v.Refresh(ctx))
	state := v.State()
	assert.Len(t, state.Active, 3)
	assert.Empty(t, state.History)

	returned, err := v.Return(ctx, late)
	require.NoError(t, err)
	assert.Equal(t, models.LoanReturned, returned.Status)

	state = v.State()
	require.Len(t, state.Active, 2)
	require.Len(t, state.History, 1)
	require.Len(t, state.Fines, 1)
	assert.Equal(t, late, state.History[0].ID)
	assert.Equal(t, loanstatus.Returned, state.History[0].Bucket)
	assert.InDelta(t, 1.0, state.Fines[0].FineAmount, 1e-9)

	for _, row := range state.Active {
		if row.ID == overdue {
			assert.Equal(t, loanstatus.Overdue, row.Bucket)
		} else {
			assert.Equal(t, loanstatus.Active, row.Bucket)
		}
		assert.Equal(t, user.ID, row.MemberID)
	}
}

func TestReturnRefreshesOtherViews(t *testing.T) {
	h := newHarness(t)
	user := h.signIn(t, models.RoleUser)
	bookID := h.fake.AddBook("Dune", "Herbert", nil, models.CopyAvailable)
	loanID := h.fake.AddLoan(user.ID, h.fake.Copies(bookID)[0].ID, testNow.Add(time.Hour))

	detail := NewBookDetailView(h.deps, bookID)
	detail.Mount()
	defer detail.Unmount()
	require.NoError(t, detail.Refresh(ctx))
	require.Equal(t, 0, detail.State().Book.AvailableQuantity)

	lib := NewMyLibraryView(h.deps)
	require.NoError(t, lib.Refresh(ctx))
	_, err := lib.Return(ctx, loanID)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return detail.State().Book.AvailableQuantity == 1
	}, time.Second, 10*time.Millisecond)
}

func TestReturnFailureMessage(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, models.RoleUser)
	v := NewMyLibraryView(h.deps)

	_, err := v.Return(ctx, 999)
	assert.EqualError(t, err, "Loan not found")

	h.fake.Fail(http.MethodPost, "/loans/:id/return", http.StatusInternalServerError, "")
	_, err = v.Return(ctx, 999)
	assert.EqualError(t, err, "Failed to return book")
}

func TestReservationsAndCancel(t *testing.T) {
	h := newHarness(t)
	user := h.signIn(t, models.RoleUser)
	other := h.fake.AddUser("other@example.com", "pw", models.RoleUser)
	bookID := h.fake.AddBook("Dune", "Herbert", nil, models.CopyLoaned)
	pending := h.fake.AddReservation(bookID, user.ID, models.ReservationPending)
	fulfilled := h.fake.AddReservation(bookID, user.ID, models.ReservationFulfilled)
	h.fake.AddReservation(bookID, other.ID, models.ReservationPending)

	v := NewMyLibraryView(h.deps)
	require.NoError(t, v.Refresh(ctx))
	state := v.State()
	require.Len(t, state.Reservations, 2)
	assert.Equal(t, "Dune", state.Reservations[0].BookTitle)

	h.fake.ResetRequests()
	err := v.CancelReservation(ctx, fulfilled)
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Empty(t, h.fake.Requests())

	require.NoError(t, v.CancelReservation(ctx, pending))
	state = v.State()
	require.Len(t, state.Reservations, 1)
	assert.Equal(t, fulfilled, state.Reservations[0].ID)
}

func TestReservationFailureKeepsLoans(t *testing.T) {
	h := newHarness(t)
	user := h.signIn(t, models.RoleUser)
	bookID := h.fake.AddBook("Dune", "Herbert", nil, models.CopyAvailable)
	h.fake.AddLoan(user.ID, h.fake.Copies(bookID)[0].ID, testNow.Add(time.Hour))
	h.fake.Fail(http.MethodGet, "/reservations", http.StatusInternalServerError, "boom")

	v := NewMyLibraryView(h.deps)
	require.NoError(t, v.Refresh(ctx))
	state := v.State()
	assert.Len(t, state.Active, 1)
	assert.Empty(t, state.Reservations)
	assert.Empty(t, state.Err)
	assert.Contains(t, h.logs.String(), "failed to load reservations")
}

func TestMyLibraryNeedsSession(t *testing.T) {
	h := newHarness(t)
	v := NewMyLibraryView(h.deps)
	assert.ErrorIs(t, v.Refresh(ctx), ErrNotLoggedIn)
	assert.Empty(t, h.fake.Requests())
}
