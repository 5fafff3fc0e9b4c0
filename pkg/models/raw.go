package models

// Raw payloads as the REST collaborator sends them, before normalization.

type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

type RawBook struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	ISBN        string  `json:"isbn"`
	CategoryIDs []int64 `json:"categoryIds"`
	Categories  []Ref   `json:"categories"`
	PublisherID *int64  `json:"publisherId"`
	Publisher   *Ref    `json:"publisher"`
	PublishYear int     `json:"publishYear"`
	PageCount   int     `json:"pageCount"`
	Copies      []Copy  `json:"copies"`
}

type RawMember struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type RawBookRef struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
}

type RawBookCopy struct {
	ID      int64       `json:"id"`
	Barcode string      `json:"barcode,omitempty"`
	Status  CopyStatus  `json:"status,omitempty"`
	Book    *RawBookRef `json:"book"`
}

type RawLoan struct {
	ID         int64        `json:"id"`
	LoanDate   Timestamp    `json:"loanDate"`
	DueDate    Timestamp    `json:"dueDate"`
	ReturnDate *Timestamp   `json:"returnDate"`
	Status     LoanStatus   `json:"status"`
	FineAmount *float64     `json:"fineAmount"`
	Member     *RawMember   `json:"member"`
	BookCopy   *RawBookCopy `json:"bookCopy"`
}

type RawReservation struct {
	ID          int64             `json:"id"`
	BookID      *int64            `json:"bookId"`
	MemberID    *int64            `json:"memberId"`
	Book        *RawBookRef       `json:"book"`
	Member      *RawMember        `json:"member"`
	RequestDate *Timestamp        `json:"requestDate"`
	CreatedAt   *Timestamp        `json:"createdAt"`
	ExpiryDate  *Timestamp        `json:"expiryDate"`
	Status      ReservationStatus `json:"status"`
}

// BookWrite is the create/update body for /books.
type BookWrite struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	Categories  []Ref  `json:"categories"`
	Publisher   *Ref   `json:"publisher,omitempty"`
	PublishYear int    `json:"publishYear,omitempty"`
	PageCount   int    `json:"pageCount,omitempty"`
}

type BorrowRequest struct {
	Member   Ref `json:"member"`
	BookCopy Ref `json:"bookCopy"`
}

type ReservationRequest struct {
	Book   Ref               `json:"book"`
	Member Ref               `json:"member"`
	Status ReservationStatus `json:"status"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

type RatingRequest struct {
	BookID  int64  `json:"bookId"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}
