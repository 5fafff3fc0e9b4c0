package normalize

import (
	"testing"
	"time"

	"librarydesk/pkg/models"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func copies(statuses ...models.CopyStatus) []models.Copy {
	out := make([]models.Copy, len(statuses))
	for i, s := range statuses {
		out[i] = models.Copy{ID: int64(i + 1), Status: s}
	}
	return out
}

func TestBookCounts(t *testing.T) {
	tests := []struct {
		name          string
		copies        []models.Copy
		wantQuantity  int
		wantAvailable int
	}{
		{name: "nil copies", copies: nil, wantQuantity: 0, wantAvailable: 0},
		{name: "empty copies", copies: []models.Copy{}, wantQuantity: 0, wantAvailable: 0},
		{name: "all available", copies: copies(models.CopyAvailable, models.CopyAvailable), wantQuantity: 2, wantAvailable: 2},
		{
			name:          "mixed",
			copies:        copies(models.CopyAvailable, models.CopyLoaned, models.CopyReserved, models.CopyDamaged, models.CopyLost),
			wantQuantity:  5,
			wantAvailable: 1,
		},
		{name: "none available", copies: copies(models.CopyLoaned, models.CopyReserved), wantQuantity: 2, wantAvailable: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := Book(models.RawBook{ID: 1, Title: "Dune", Copies: tt.copies})
			assert.Equal(t, tt.wantQuantity, book.Quantity)
			assert.Equal(t, tt.wantAvailable, book.AvailableQuantity)
			assert.GreaterOrEqual(t, book.AvailableQuantity, 0)
			assert.LessOrEqual(t, book.AvailableQuantity, book.Quantity)
			assert.Equal(t, len(tt.copies), book.Quantity)
		})
	}
}

func TestBookCategoriesAndPublisher(t *testing.T) {
	raw := models.RawBook{
		ID:         4,
		Categories: []models.Ref{{ID: 2, Name: "Sci-Fi"}, {ID: 9, Name: "Classics"}},
		Publisher:  &models.Ref{ID: 12},
	}

	book := Book(raw)
	assert.Equal(t, []int64{2, 9}, book.CategoryIDs)
	assert.Equal(t, []string{"Sci-Fi", "Classics"}, book.CategoryNames)
	require.NotNil(t, book.PublisherID)
	assert.Equal(t, int64(12), *book.PublisherID)

	pub := int64(3)
	raw.CategoryIDs = []int64{7}
	raw.PublisherID = &pub
	book = Book(raw)
	assert.Equal(t, []int64{7}, book.CategoryIDs)
	assert.Equal(t, int64(3), *book.PublisherID)
}

func TestBookFromServerJSON(t *testing.T) {
	body := `{"id":1,"title":"Dune","author":"Herbert","isbn":"978","copies":[{"id":1,"status":"AVAILABLE"},{"id":2,"status":"LOANED"}]}`
	var raw models.RawBook
	require.NoError(t, json.Unmarshal([]byte(body), &raw))

	book := Book(raw)
	assert.Equal(t, 2, book.Quantity)
	assert.Equal(t, 1, book.AvailableQuantity)

	var noCopies models.RawBook
	require.NoError(t, json.Unmarshal([]byte(`{"id":2,"title":"Emma"}`), &noCopies))
	book = Book(noCopies)
	assert.Equal(t, 0, book.Quantity)
	assert.Equal(t, 0, book.AvailableQuantity)
}

func TestLoanFlattensNestedReferences(t *testing.T) {
	body := `{
		"id": 10,
		"status": "ACTIVE",
		"loanDate": "2024-03-01T10:00:00",
		"dueDate": "2024-03-15T10:00:00.123",
		"returnDate": null,
		"member": {"id": 7, "email": "ann@example.com"},
		"bookCopy": {"id": 3, "book": {"id": 1, "title": "Dune"}}
	}`
	var raw models.RawLoan
	require.NoError(t, json.Unmarshal([]byte(body), &raw))

	loan := Loan(raw)
	assert.Equal(t, int64(7), loan.MemberID)
	assert.Equal(t, "ann@example.com", loan.MemberEmail)
	assert.Equal(t, int64(1), loan.BookID)
	assert.Equal(t, "Dune", loan.BookTitle)
	assert.Nil(t, loan.ReturnDate)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 0, 0, 123000000, time.UTC), loan.DueDate.Time)
}

func TestLoanMissingNestedObjects(t *testing.T) {
	tests := []struct {
		name string
		raw  models.RawLoan
	}{
		{name: "no member, no copy", raw: models.RawLoan{ID: 1}},
		{name: "copy without book", raw: models.RawLoan{ID: 2, BookCopy: &models.RawBookCopy{ID: 5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var loan models.Loan
			assert.NotPanics(t, func() { loan = Loan(tt.raw) })
			assert.Equal(t, "", loan.MemberEmail)
			assert.Equal(t, "", loan.BookTitle)
			assert.Zero(t, loan.MemberID)
			assert.Zero(t, loan.BookID)
		})
	}
}

func TestLoanFine(t *testing.T) {
	fine := 2.5
	assert.Equal(t, 2.5, Loan(models.RawLoan{FineAmount: &fine}).FineAmount)

	negative := -1.0
	assert.Zero(t, Loan(models.RawLoan{FineAmount: &negative}).FineAmount)
}

func TestNormalizationIsIdempotent(t *testing.T) {
	pub := int64(3)
	rawBook := models.RawBook{
		ID:          1,
		Title:       "Dune",
		Categories:  []models.Ref{{ID: 2, Name: "Sci-Fi"}},
		PublisherID: &pub,
		Copies:      copies(models.CopyAvailable, models.CopyReserved),
	}
	assert.Equal(t, Book(rawBook), Book(rawBook))

	ret := models.NewTimestamp(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	rawLoan := models.RawLoan{
		ID:         1,
		Status:     models.LoanReturned,
		ReturnDate: &ret,
		Member:     &models.RawMember{ID: 1, Email: "a@b.io"},
		BookCopy:   &models.RawBookCopy{Book: &models.RawBookRef{ID: 1, Title: "Dune"}},
	}
	assert.Equal(t, Loan(rawLoan), Loan(rawLoan))

	mutated := Book(rawBook)
	mutated.Copies[0].Status = models.CopyLoaned
	assert.Equal(t, models.CopyAvailable, rawBook.Copies[0].Status, "normalized book must not alias raw copies")
}

func TestReservation(t *testing.T) {
	created := models.NewTimestamp(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	raw := models.RawReservation{
		ID:        4,
		Book:      &models.RawBookRef{ID: 8, Title: "Emma"},
		Member:    &models.RawMember{ID: 2},
		CreatedAt: &created,
		Status:    models.ReservationPending,
	}

	res := Reservation(raw)
	assert.Equal(t, int64(8), res.BookID)
	assert.Equal(t, "Emma", res.BookTitle)
	assert.Equal(t, int64(2), res.MemberID)
	assert.Equal(t, created, res.RequestDate)

	flatBook, flatMember := int64(11), int64(12)
	res = Reservation(models.RawReservation{BookID: &flatBook, MemberID: &flatMember})
	assert.Equal(t, int64(11), res.BookID)
	assert.Equal(t, int64(12), res.MemberID)
}

func TestBookPayload(t *testing.T) {
	pub := int64(5)
	book := models.Book{
		ID:                1,
		Title:             "Dune",
		CategoryIDs:       []int64{1, 2},
		PublisherID:       &pub,
		Quantity:          3,
		AvailableQuantity: 1,
	}

	data, err := json.Marshal(BookPayload(book))
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.NotContains(t, body, "quantity")
	assert.NotContains(t, body, "availableQuantity")
	assert.NotContains(t, body, "categoryIds")
	assert.Len(t, body["categories"], 2)
	assert.Equal(t, float64(5), body["publisher"].(map[string]interface{})["id"])
}
