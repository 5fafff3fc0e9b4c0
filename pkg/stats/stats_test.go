package stats

import (
	"testing"
	"time"

	"librarydesk/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestMergeKeepsFieldsNotRecomputed(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	agg := NewAggregator()

	categories := make([]models.Category, 5)
	agg.Merge(FromCategories(categories))

	loans := []models.Loan{
		{Status: models.LoanActive, DueDate: models.NewTimestamp(now.Add(-time.Hour))},
		{Status: models.LoanActive, DueDate: models.NewTimestamp(now.Add(time.Hour))},
		{Status: models.LoanReturned},
	}
	got := agg.Merge(FromLoans(loans, now))

	assert.Equal(t, 5, got.TotalCategories)
	assert.Equal(t, 3, got.TotalLoans)
	assert.Equal(t, 2, got.ActiveLoans)
	assert.Equal(t, 1, got.OverdueLoans)
	assert.Equal(t, 0, got.TotalBooks)
	assert.Equal(t, got, agg.Snapshot())
}

func TestMergeOverwritesRecomputedFields(t *testing.T) {
	agg := NewAggregator()
	agg.Merge(FromBooks(make([]models.Book, 4)))
	agg.Merge(FromPublishers(make([]models.Publisher, 2)))
	got := agg.Merge(FromBooks(make([]models.Book, 1)))

	assert.Equal(t, 1, got.TotalBooks)
	assert.Equal(t, 2, got.TotalPublishers)
}

func TestEmptyPartialIsNoop(t *testing.T) {
	start := models.Statistics{TotalBooks: 3, ActiveLoans: 1}
	assert.Equal(t, start, Partial{}.Apply(start))
}
