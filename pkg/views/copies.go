package views

import (
	"context"
	"sync"

	"librarydesk/pkg/availability"
	"librarydesk/pkg/models"
)

const (
	msgAddCopyFailed    = "Failed to add copy"
	msgDeleteCopyFailed = "Failed to delete copy"
	msgCopyOnLoan       = "A copy that is on loan cannot be deleted."
)

// CopyRow is a copy plus whether its delete control is enabled.
type CopyRow struct {
	models.Copy
	Deletable bool `json:"deletable"`
}

// CopyManager lists and edits the copies of one book.
type CopyManager struct {
	deps   Deps
	bookID int64

	mu     sync.Mutex
	copies []models.Copy
}

func NewCopyManager(deps Deps, bookID int64) *CopyManager {
	return &CopyManager{deps: deps.withDefaults(), bookID: bookID}
}

func (m *CopyManager) Refresh(ctx context.Context) error {
	copies, err := m.deps.API.ListCopies(ctx, m.bookID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.copies = copies
	m.mu.Unlock()
	return nil
}

func (m *CopyManager) Copies() []CopyRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CopyRow, 0, len(m.copies))
	for _, c := range m.copies {
		out = append(out, CopyRow{Copy: c, Deletable: availability.CanDeleteCopy(c)})
	}
	return out
}

// Add creates one copy; an empty barcode lets the server pick one.
func (m *CopyManager) Add(ctx context.Context, barcode string) (models.Copy, error) {
	created, err := m.deps.API.AddCopy(ctx, m.bookID, barcode)
	if err != nil {
		return models.Copy{}, actionError(err, msgAddCopyFailed)
	}
	m.refetch(ctx)
	return created, nil
}

// AddN creates n copies one request at a time. A failure at copy k leaves
// k-1 copies in place and returns a *PartialCopyError.
func (m *CopyManager) AddN(ctx context.Context, n int) (int, error) {
	created, err := addCopies(ctx, m.deps.API, m.bookID, n)
	m.refetch(ctx)
	return created, err
}

// Delete refuses a LOANED copy without calling the server.
func (m *CopyManager) Delete(ctx context.Context, c models.Copy) error {
	if !availability.CanDeleteCopy(c) {
		return &ActionError{Message: msgCopyOnLoan, Err: ErrCopyOnLoan}
	}
	if err := m.deps.API.DeleteCopy(ctx, c.ID); err != nil {
		return actionError(err, msgDeleteCopyFailed)
	}
	m.refetch(ctx)
	return nil
}

func (m *CopyManager) refetch(ctx context.Context) {
	if err := m.Refresh(ctx); err != nil {
		m.deps.Logger.Printf("failed to reload copies of book %d: %v", m.bookID, err)
	}
}
