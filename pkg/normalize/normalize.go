// Package normalize turns raw server records into view-ready models. Every
// function is pure and tolerates missing nested objects.
package normalize

import (
	"librarydesk/pkg/models"
)

// Book derives Quantity and AvailableQuantity from the embedded copies. A
// missing copies list counts as zero of each.
func Book(raw models.RawBook) models.Book {
	book := models.Book{
		ID:          raw.ID,
		Title:       raw.Title,
		Author:      raw.Author,
		ISBN:        raw.ISBN,
		PublishYear: raw.PublishYear,
		PageCount:   raw.PageCount,
	}

	switch {
	case raw.CategoryIDs != nil:
		book.CategoryIDs = append([]int64{}, raw.CategoryIDs...)
	default:
		book.CategoryIDs = make([]int64, 0, len(raw.Categories))
		for _, c := range raw.Categories {
			book.CategoryIDs = append(book.CategoryIDs, c.ID)
		}
	}
	for _, c := range raw.Categories {
		if c.Name != "" {
			book.CategoryNames = append(book.CategoryNames, c.Name)
		}
	}

	if raw.PublisherID != nil {
		id := *raw.PublisherID
		book.PublisherID = &id
	} else if raw.Publisher != nil {
		id := raw.Publisher.ID
		book.PublisherID = &id
	}

	if len(raw.Copies) > 0 {
		book.Copies = append([]models.Copy{}, raw.Copies...)
	}
	book.Quantity, book.AvailableQuantity = CountCopies(raw.Copies)
	return book
}

func CountCopies(copies []models.Copy) (quantity, available int) {
	for _, c := range copies {
		if c.Status == models.CopyAvailable {
			available++
		}
	}
	return len(copies), available
}

func Books(raws []models.RawBook) []models.Book {
	books := make([]models.Book, 0, len(raws))
	for _, raw := range raws {
		books = append(books, Book(raw))
	}
	return books
}

// Loan flattens the nested member and bookCopy.book references.
func Loan(raw models.RawLoan) models.Loan {
	loan := models.Loan{
		ID:       raw.ID,
		LoanDate: raw.LoanDate,
		DueDate:  raw.DueDate,
		Status:   raw.Status,
	}
	if raw.ReturnDate != nil && !raw.ReturnDate.IsZero() {
		rd := *raw.ReturnDate
		loan.ReturnDate = &rd
	}
	if raw.FineAmount != nil && *raw.FineAmount > 0 {
		loan.FineAmount = *raw.FineAmount
	}
	if raw.Member != nil {
		loan.MemberID = raw.Member.ID
		loan.MemberEmail = raw.Member.Email
	}
	if raw.BookCopy != nil && raw.BookCopy.Book != nil {
		loan.BookID = raw.BookCopy.Book.ID
		loan.BookTitle = raw.BookCopy.Book.Title
	}
	return loan
}

func Loans(raws []models.RawLoan) []models.Loan {
	loans := make([]models.Loan, 0, len(raws))
	for _, raw := range raws {
		loans = append(loans, Loan(raw))
	}
	return loans
}

// Reservation prefers flat bookId/memberId and falls back to the nested
// objects. requestDate falls back to createdAt.
func Reservation(raw models.RawReservation) models.Reservation {
	res := models.Reservation{
		ID:     raw.ID,
		Status: raw.Status,
	}
	switch {
	case raw.BookID != nil:
		res.BookID = *raw.BookID
	case raw.Book != nil:
		res.BookID = raw.Book.ID
	}
	if raw.Book != nil {
		res.BookTitle = raw.Book.Title
	}
	switch {
	case raw.MemberID != nil:
		res.MemberID = *raw.MemberID
	case raw.Member != nil:
		res.MemberID = raw.Member.ID
	}
	switch {
	case raw.RequestDate != nil:
		res.RequestDate = *raw.RequestDate
	case raw.CreatedAt != nil:
		res.RequestDate = *raw.CreatedAt
	}
	if raw.ExpiryDate != nil && !raw.ExpiryDate.IsZero() {
		exp := *raw.ExpiryDate
		res.ExpiryDate = &exp
	}
	return res
}

func Reservations(raws []models.RawReservation) []models.Reservation {
	out := make([]models.Reservation, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Reservation(raw))
	}
	return out
}

// BookPayload builds the write body for a create or update. Derived counts
// and the copies list are never sent.
func BookPayload(book models.Book) models.BookWrite {
	payload := models.BookWrite{
		Title:       book.Title,
		Author:      book.Author,
		ISBN:        book.ISBN,
		PublishYear: book.PublishYear,
		PageCount:   book.PageCount,
		Categories:  make([]models.Ref, 0, len(book.CategoryIDs)),
	}
	for _, id := range book.CategoryIDs {
		payload.Categories = append(payload.Categories, models.Ref{ID: id})
	}
	if book.PublisherID != nil {
		payload.Publisher = &models.Ref{ID: *book.PublisherID}
	}
	return payload
}
