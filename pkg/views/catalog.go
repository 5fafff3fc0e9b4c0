package views

import (
	"context"
	"strings"
	"sync"

	"librarydesk/pkg/apiclient"
	"librarydesk/pkg/availability"
	"librarydesk/pkg/models"
	"librarydesk/pkg/normalize"
)

const CatalogPageSize = 9

// CatalogQuery selects a catalog page. Page is 1-based.
type CatalogQuery struct {
	Page       int    `json:"page"`
	Search     string `json:"search"`
	CategoryID int64  `json:"categoryId"`
}

type CatalogEntry struct {
	Book         models.Book `json:"book"`
	Availability string      `json:"availability"`
}

type CatalogState struct {
	Query      CatalogQuery      `json:"query"`
	Books      []CatalogEntry    `json:"books"`
	TotalPages int               `json:"totalPages"`
	Categories []models.Category `json:"categories"`
	Err        string            `json:"error,omitempty"`
}

type CatalogView struct {
	deps  Deps
	mount mount

	mu    sync.Mutex
	state CatalogState
}

func NewCatalogView(deps Deps) *CatalogView {
	return &CatalogView{
		deps: deps.withDefaults(),
		state: CatalogState{
			Query:      CatalogQuery{Page: 1},
			Books:      []CatalogEntry{},
			TotalPages: 1,
			Categories: []models.Category{},
		},
	}
}

func (v *CatalogView) Mount() {
	v.mount.attach(v.deps.Broadcaster, v.deps.Logger, "catalog", v.Refresh)
}

func (v *CatalogView) Unmount() {
	v.mount.detach()
}

// Load fetches the category filter and the current page.
func (v *CatalogView) Load(ctx context.Context) error {
	v.LoadCategories(ctx)
	return v.Refresh(ctx)
}

// LoadCategories fills the filter with active categories. It never fails the
// view; on error the filter just stays as it was.
func (v *CatalogView) LoadCategories(ctx context.Context) {
	v.deps.secondary("categories", func() error {
		all, err := v.deps.API.ListCategories(ctx)
		if err != nil {
			return err
		}
		active := make([]models.Category, 0, len(all))
		for _, c := range all {
			if c.Status == models.CategoryActive {
				active = append(active, c)
			}
		}
		v.mu.Lock()
		v.state.Categories = active
		v.mu.Unlock()
		return nil
	})
}

// Search changes the search term and goes back to the first page.
func (v *CatalogView) Search(ctx context.Context, term string) error {
	v.mu.Lock()
	v.state.Query.Search = strings.TrimSpace(term)
	v.state.Query.Page = 1
	v.mu.Unlock()
	return v.Refresh(ctx)
}

func (v *CatalogView) FilterCategory(ctx context.Context, categoryID int64) error {
	v.mu.Lock()
	v.state.Query.CategoryID = categoryID
	v.state.Query.Page = 1
	v.mu.Unlock()
	return v.Refresh(ctx)
}

func (v *CatalogView) GoToPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	v.mu.Lock()
	v.state.Query.Page = page
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// Show replaces the whole query and fetches once.
func (v *CatalogView) Show(ctx context.Context, q CatalogQuery) error {
	q.Search = strings.TrimSpace(q.Search)
	if q.Page < 1 {
		q.Page = 1
	}
	v.mu.Lock()
	v.state.Query = q
	v.mu.Unlock()
	return v.Refresh(ctx)
}

func (v *CatalogView) Refresh(ctx context.Context) error {
	v.mu.Lock()
	q := v.state.Query
	v.mu.Unlock()

	page, err := v.deps.API.ListBooks(ctx, apiclient.BookQuery{
		Page:       q.Page - 1,
		Size:       CatalogPageSize,
		Search:     q.Search,
		CategoryID: q.CategoryID,
	})
	if err != nil {
		v.mu.Lock()
		v.state.Err = "Failed to load books."
		v.mu.Unlock()
		return err
	}

	entries := make([]CatalogEntry, 0, len(page.Items))
	for _, book := range normalize.Books(page.Items) {
		entries = append(entries, CatalogEntry{
			Book:         book,
			Availability: availability.Evaluate(book).AvailabilityLabel,
		})
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state.Query != q {
		// the query moved on while this page was in flight
		return nil
	}
	v.state.Books = entries
	v.state.TotalPages = page.TotalPages
	v.state.Err = ""
	return nil
}

// State returns a copy safe to hold across refreshes.
func (v *CatalogView) State() CatalogState {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.state
	s.Books = append([]CatalogEntry{}, v.state.Books...)
	s.Categories = append([]models.Category{}, v.state.Categories...)
	return s
}

// Book returns the entry for id on the current page.
func (v *CatalogView) Book(id int64) (CatalogEntry, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, e := range v.state.Books {
		if e.Book.ID == id {
			return e, true
		}
	}
	return CatalogEntry{}, false
}
