package models

import (
	"time"
)

type CopyStatus string

const (
	CopyAvailable CopyStatus = "AVAILABLE"
	CopyLoaned    CopyStatus = "LOANED"
	CopyReserved  CopyStatus = "RESERVED"
	CopyDamaged   CopyStatus = "DAMAGED"
	CopyLost      CopyStatus = "LOST"
)

type LoanStatus string

const (
	LoanActive   LoanStatus = "ACTIVE"
	LoanReturned LoanStatus = "RETURNED"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationFulfilled ReservationStatus = "FULFILLED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

type CategoryStatus string

const (
	CategoryActive   CategoryStatus = "ACTIVE"
	CategoryInactive CategoryStatus = "INACTIVE"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Book is the view-ready shape of a catalog entry. Quantity and
// AvailableQuantity are derived from Copies and never sent to the server.
type Book struct {
	ID                int64    `json:"id"`
	Title             string   `json:"title"`
	Author            string   `json:"author"`
	ISBN              string   `json:"isbn"`
	CategoryIDs       []int64  `json:"categoryIds"`
	CategoryNames     []string `json:"categoryNames,omitempty"`
	PublisherID       *int64   `json:"publisherId,omitempty"`
	PublishYear       int      `json:"publishYear,omitempty"`
	PageCount         int      `json:"pageCount,omitempty"`
	Copies            []Copy   `json:"copies,omitempty"`
	Quantity          int      `json:"quantity"`
	AvailableQuantity int      `json:"availableQuantity"`
}

type Copy struct {
	ID      int64      `json:"id"`
	BookID  int64      `json:"bookId,omitempty"`
	Barcode string     `json:"barcode,omitempty"`
	Status  CopyStatus `json:"status"`
}

type Loan struct {
	ID          int64      `json:"id"`
	LoanDate    Timestamp  `json:"loanDate"`
	DueDate     Timestamp  `json:"dueDate"`
	ReturnDate  *Timestamp `json:"returnDate"`
	Status      LoanStatus `json:"status"`
	FineAmount  float64    `json:"fineAmount,omitempty"`
	MemberID    int64      `json:"memberId,omitempty"`
	MemberEmail string     `json:"memberEmail"`
	BookID      int64      `json:"bookId,omitempty"`
	BookTitle   string     `json:"bookTitle"`
}

type Reservation struct {
	ID          int64             `json:"id"`
	BookID      int64             `json:"bookId"`
	BookTitle   string            `json:"bookTitle,omitempty"`
	MemberID    int64             `json:"memberId"`
	RequestDate Timestamp         `json:"requestDate"`
	ExpiryDate  *Timestamp        `json:"expiryDate,omitempty"`
	Status      ReservationStatus `json:"status"`
}

type Category struct {
	ID          int64          `json:"id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Status      CategoryStatus `json:"status"`
}

type Publisher struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Country     string `json:"country"`
	FoundedYear int    `json:"foundedYear"`
}

// User is the auth response; it doubles as the persisted session record.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Token string `json:"token"`
}

type Statistics struct {
	TotalBooks      int `json:"totalBooks"`
	TotalLoans      int `json:"totalLoans"`
	ActiveLoans     int `json:"activeLoans"`
	OverdueLoans    int `json:"overdueLoans"`
	TotalCategories int `json:"totalCategories"`
	TotalPublishers int `json:"totalPublishers"`
}

type Rating struct {
	ID         int64     `json:"id"`
	BookID     int64     `json:"bookId"`
	MemberID   int64     `json:"memberId"`
	MemberName string    `json:"memberName"`
	Score      int       `json:"score"`
	Comment    string    `json:"comment"`
	CreatedAt  Timestamp `json:"createdAt"`
}

// ShelfEntry is one row of a member's favorites or reading list.
type ShelfEntry struct {
	ID         int64     `json:"id"`
	BookID     int64     `json:"bookId"`
	BookTitle  string    `json:"bookTitle"`
	BookAuthor string    `json:"bookAuthor"`
	AddedAt    Timestamp `json:"addedAt"`
}

type CategoryReport struct {
	CategoryName string `json:"categoryName"`
	LoanCount    int64  `json:"loanCount"`
}

type MemberActivity struct {
	MemberID   int64  `json:"memberId"`
	MemberName string `json:"memberName"`
	LoanCount  int64  `json:"loanCount"`
}

type BookStatusReport struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type SessionRecord struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    int64  `gorm:"not null"`
	Email     string `gorm:"size:255;not null"`
	Role      string `gorm:"size:20;not null"`
	Token     string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
