package stats

import (
	"sync"
	"time"

	"librarydesk/pkg/loanstatus"
	"librarydesk/pkg/models"
)

// Partial carries only the counters one collection fetch recomputed. Nil
// fields leave the current value untouched.
type Partial struct {
	TotalBooks      *int
	TotalLoans      *int
	ActiveLoans     *int
	OverdueLoans    *int
	TotalCategories *int
	TotalPublishers *int
}

func intp(v int) *int { return &v }

func FromBooks(books []models.Book) Partial {
	return Partial{TotalBooks: intp(len(books))}
}

// FromLoans recomputes total, active and overdue together, using the same
// overdue rule as the loan list.
func FromLoans(loans []models.Loan, now time.Time) Partial {
	active, overdue := loanstatus.Counts(loans, now)
	return Partial{
		TotalLoans:   intp(len(loans)),
		ActiveLoans:  intp(active),
		OverdueLoans: intp(overdue),
	}
}

func FromCategories(categories []models.Category) Partial {
	return Partial{TotalCategories: intp(len(categories))}
}

func FromPublishers(publishers []models.Publisher) Partial {
	return Partial{TotalPublishers: intp(len(publishers))}
}

// Apply merges p into s and returns the result.
func (p Partial) Apply(s models.Statistics) models.Statistics {
	if p.TotalBooks != nil {
		s.TotalBooks = *p.TotalBooks
	}
	if p.TotalLoans != nil {
		s.TotalLoans = *p.TotalLoans
	}
	if p.ActiveLoans != nil {
		s.ActiveLoans = *p.ActiveLoans
	}
	if p.OverdueLoans != nil {
		s.OverdueLoans = *p.OverdueLoans
	}
	if p.TotalCategories != nil {
		s.TotalCategories = *p.TotalCategories
	}
	if p.TotalPublishers != nil {
		s.TotalPublishers = *p.TotalPublishers
	}
	return s
}

type Aggregator struct {
	mu      sync.Mutex
	current models.Statistics
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

func (a *Aggregator) Merge(p Partial) models.Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = p.Apply(a.current)
	return a.current
}

func (a *Aggregator) Snapshot() models.Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}
