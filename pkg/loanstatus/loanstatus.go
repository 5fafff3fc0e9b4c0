// Package loanstatus classifies loans and reservations into display buckets.
// Every rule is a pure function of the entity and the evaluation instant;
// OVERDUE is never a server-held state.
package loanstatus

import (
	"time"

	"librarydesk/pkg/models"
)

type Bucket string

const (
	Active   Bucket = "ACTIVE"
	Overdue  Bucket = "OVERDUE"
	Returned Bucket = "RETURNED"
)

// returned reports whether the loan is closed. A return date wins over a
// stale ACTIVE status.
func returned(l models.Loan) bool {
	return l.Status == models.LoanReturned || l.ReturnDate != nil
}

func IsActive(l models.Loan) bool {
	return l.Status == models.LoanActive && !returned(l)
}

func IsOverdue(l models.Loan, now time.Time) bool {
	return IsActive(l) && !l.DueDate.IsZero() && l.DueDate.Before(now)
}

func IsHistory(l models.Loan) bool {
	return returned(l)
}

// IsFined holds for any positive fine, independent of active/returned.
func IsFined(l models.Loan) bool {
	return l.FineAmount > 0
}

// Classify returns "" for a loan in neither state (an unknown status
// without a return date).
func Classify(l models.Loan, now time.Time) Bucket {
	switch {
	case IsHistory(l):
		return Returned
	case IsOverdue(l, now):
		return Overdue
	case IsActive(l):
		return Active
	default:
		return ""
	}
}

type Buckets struct {
	Active  []models.Loan // includes overdue loans
	History []models.Loan
	Fined   []models.Loan
}

func Partition(loans []models.Loan, now time.Time) Buckets {
	b := Buckets{
		Active:  []models.Loan{},
		History: []models.Loan{},
		Fined:   []models.Loan{},
	}
	for _, l := range loans {
		switch Classify(l, now) {
		case Active, Overdue:
			b.Active = append(b.Active, l)
		case Returned:
			b.History = append(b.History, l)
		}
		if IsFined(l) {
			b.Fined = append(b.Fined, l)
		}
	}
	return b
}

// Counts returns the number of active loans and, among them, overdue ones.
func Counts(loans []models.Loan, now time.Time) (active, overdue int) {
	for _, l := range loans {
		if IsActive(l) {
			active++
			if IsOverdue(l, now) {
				overdue++
			}
		}
	}
	return active, overdue
}

func IsPending(r models.Reservation) bool {
	return r.Status == models.ReservationPending
}

// CanCancel is true only for pending reservations.
func CanCancel(r models.Reservation) bool {
	return IsPending(r)
}

func ReservationsForMember(all []models.Reservation, memberID int64) []models.Reservation {
	out := []models.Reservation{}
	for _, r := range all {
		if r.MemberID == memberID {
			out = append(out, r)
		}
	}
	return out
}

func LoansForMember(all []models.Loan, memberID int64) []models.Loan {
	out := []models.Loan{}
	for _, l := range all {
		if l.MemberID == memberID {
			out = append(out, l)
		}
	}
	return out
}
