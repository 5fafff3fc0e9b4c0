package views

import (
	"context"
	"errors"
	"sync"

	"librarydesk/pkg/apiclient"
	"librarydesk/pkg/models"
	"librarydesk/pkg/normalize"
	"librarydesk/pkg/stats"
)

// AdminBookPageSize is how many books the dashboard lists at once.
const AdminBookPageSize = 100

const (
	msgSaveBookFailed      = "Failed to save book"
	msgSaveCategoryFailed  = "Failed to save category"
	msgSavePublisherFailed = "Failed to save publisher"
	msgDeleteFailed        = "Failed to delete"
	msgReturnLoanFailed    = "Failed to return loan"
)

type AdminState struct {
	Books      []models.Book      `json:"books"`
	Loans      []LoanRow          `json:"loans"`
	Categories []models.Category  `json:"categories"`
	Publishers []models.Publisher `json:"publishers"`
	Stats      models.Statistics  `json:"stats"`
}

// AdminDashboard holds the four admin collections. Every fetch folds its own
// counts into the running statistics without touching the others.
type AdminDashboard struct {
	deps  Deps
	mount mount
	stats *stats.Aggregator

	mu         sync.Mutex
	books      []models.Book
	loans      []models.Loan
	categories []models.Category
	publishers []models.Publisher
}

func NewAdminDashboard(deps Deps) *AdminDashboard {
	return &AdminDashboard{
		deps:  deps.withDefaults(),
		stats: stats.NewAggregator(),
	}
}

func (a *AdminDashboard) Mount() {
	a.mount.attach(a.deps.Broadcaster, a.deps.Logger, "admin dashboard", a.refreshInventory)
}

func (a *AdminDashboard) Unmount() {
	a.mount.detach()
}

func (a *AdminDashboard) refreshInventory(ctx context.Context) error {
	return errors.Join(a.FetchBooks(ctx), a.FetchLoans(ctx))
}

// Load fetches every collection in turn. One failing collection does not
// stop the others.
func (a *AdminDashboard) Load(ctx context.Context) error {
	return errors.Join(
		a.FetchBooks(ctx),
		a.FetchLoans(ctx),
		a.FetchCategories(ctx),
		a.FetchPublishers(ctx),
	)
}

func (a *AdminDashboard) FetchBooks(ctx context.Context) error {
	page, err := a.deps.API.ListBooks(ctx, apiclient.BookQuery{Size: AdminBookPageSize})
	if err != nil {
		a.deps.Logger.Printf("failed to load books: %v", err)
		return err
	}
	books := normalize.Books(page.Items)
	a.mu.Lock()
	a.books = books
	a.mu.Unlock()
	a.stats.Merge(stats.FromBooks(books))
	return nil
}

func (a *AdminDashboard) FetchLoans(ctx context.Context) error {
	raws, err := a.deps.API.AdminLoans(ctx)
	if err != nil {
		a.deps.Logger.Printf("failed to load loans: %v", err)
		return err
	}
	loans := normalize.Loans(raws)
	a.mu.Lock()
	a.loans = loans
	a.mu.Unlock()
	a.stats.Merge(stats.FromLoans(loans, a.deps.Now()))
	return nil
}

func (a *AdminDashboard) FetchCategories(ctx context.Context) error {
	categories, err := a.deps.API.ListCategories(ctx)
	if err != nil {
		a.deps.Logger.Printf("failed to load categories: %v", err)
		return err
	}
	a.mu.Lock()
	a.categories = categories
	a.mu.Unlock()
	a.stats.Merge(stats.FromCategories(categories))
	return nil
}

func (a *AdminDashboard) FetchPublishers(ctx context.Context) error {
	publishers, err := a.deps.API.ListPublishers(ctx)
	if err != nil {
		a.deps.Logger.Printf("failed to load publishers: %v", err)
		return err
	}
	a.mu.Lock()
	a.publishers = publishers
	a.mu.Unlock()
	a.stats.Merge(stats.FromPublishers(publishers))
	return nil
}

func (a *AdminDashboard) Stats() models.Statistics {
	return a.stats.Snapshot()
}

func (a *AdminDashboard) State() AdminState {
	a.mu.Lock()
	s := AdminState{
		Books:      append([]models.Book{}, a.books...),
		Categories: append([]models.Category{}, a.categories...),
		Publishers: append([]models.Publisher{}, a.publishers...),
	}
	loans := append([]models.Loan(nil), a.loans...)
	a.mu.Unlock()

	s.Loans = rows(loans, a.deps.Now())
	s.Stats = a.stats.Snapshot()
	return s
}

// currentCopies counts the copies the server holds for saved. The update
// response usually embeds them; otherwise they are listed.
func (a *AdminDashboard) currentCopies(ctx context.Context, saved models.RawBook) (int, error) {
	if saved.Copies != nil {
		return len(saved.Copies), nil
	}
	copies, err := a.deps.API.ListCopies(ctx, saved.ID)
	if err != nil {
		return 0, err
	}
	return len(copies), nil
}

// SaveBook creates or updates book, then tops its copies up to quantity.
// Copies are only ever added here, never removed.
func (a *AdminDashboard) SaveBook(ctx context.Context, book models.Book, quantity int) (models.Book, error) {
	payload := normalize.BookPayload(book)

	var (
		saved models.RawBook
		err   error
	)
	if book.ID != 0 {
		saved, err = a.deps.API.UpdateBook(ctx, book.ID, payload)
	} else {
		saved, err = a.deps.API.CreateBook(ctx, payload)
	}
	if err != nil {
		return models.Book{}, actionError(err, msgSaveBookFailed)
	}
	missing := quantity
	if book.ID != 0 {
		current, err := a.currentCopies(ctx, saved)
		if err != nil {
			a.refetchBooks(ctx)
			return normalize.Book(saved), actionError(err, msgSaveBookFailed)
		}
		missing = quantity - current
	}

	if saved.ID != 0 && missing > 0 {
		if _, err := addCopies(ctx, a.deps.API, saved.ID, missing); err != nil {
			a.refetchBooks(ctx)
			return normalize.Book(saved), &ActionError{Message: msgSaveBookFailed, Err: err}
		}
	}
	a.refetchBooks(ctx)
	return normalize.Book(saved), nil
}

func (a *AdminDashboard) refetchBooks(ctx context.Context) {
	// FetchBooks already logs
	_ = a.FetchBooks(ctx)
}

func (a *AdminDashboard) DeleteBook(ctx context.Context, id int64) error {
	if err := a.deps.API.DeleteBook(ctx, id); err != nil {
		return actionError(err, msgDeleteFailed)
	}
	a.refetchBooks(ctx)
	return nil
}

func (a *AdminDashboard) SaveCategory(ctx context.Context, c models.Category) (models.Category, error) {
	var (
		saved models.Category
		err   error
	)
	if c.ID != 0 {
		saved, err = a.deps.API.UpdateCategory(ctx, c.ID, c)
	} else {
		saved, err = a.deps.API.CreateCategory(ctx, c)
	}
	if err != nil {
		return models.Category{}, actionError(err, msgSaveCategoryFailed)
	}
	_ = a.FetchCategories(ctx)
	return saved, nil
}

func (a *AdminDashboard) DeleteCategory(ctx context.Context, id int64) error {
	if err := a.deps.API.DeleteCategory(ctx, id); err != nil {
		return actionError(err, msgDeleteFailed)
	}
	_ = a.FetchCategories(ctx)
	return nil
}

func (a *AdminDashboard) SavePublisher(ctx context.Context, p models.Publisher) (models.Publisher, error) {
	var (
		saved models.Publisher
		err   error
	)
	if p.ID != 0 {
		saved, err = a.deps.API.UpdatePublisher(ctx, p.ID, p)
	} else {
		saved, err = a.deps.API.CreatePublisher(ctx, p)
	}
	if err != nil {
		return models.Publisher{}, actionError(err, msgSavePublisherFailed)
	}
	_ = a.FetchPublishers(ctx)
	return saved, nil
}

func (a *AdminDashboard) DeletePublisher(ctx context.Context, id int64) error {
	if err := a.deps.API.DeletePublisher(ctx, id); err != nil {
		return actionError(err, msgDeleteFailed)
	}
	_ = a.FetchPublishers(ctx)
	return nil
}

// ReturnLoan closes any member's loan, re-fetches loans and publishes the
// inventory-updated signal.
func (a *AdminDashboard) ReturnLoan(ctx context.Context, id int64) error {
	if _, err := a.deps.API.ReturnLoan(ctx, id); err != nil {
		return actionError(err, msgReturnLoanFailed)
	}
	_ = a.FetchLoans(ctx)
	a.deps.Broadcaster.Publish()
	return nil
}
