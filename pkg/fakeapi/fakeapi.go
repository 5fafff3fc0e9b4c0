// Package fakeapi is an in-memory stand-in for the library REST service,
// used by client and view tests.
package fakeapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"librarydesk/pkg/models"

	"github.com/gin-gonic/gin"
)

const BasePath = "/api/v1"

type Request struct {
	Method        string
	Path          string
	Route         string
	Authorization string
}

type failure struct {
	status  int
	message string
}

type user struct {
	models.User
	password string
}

type book struct {
	raw         models.RawBook
	categoryIDs []int64
}

type loan struct {
	id         int64
	memberID   int64
	copyID     int64
	loanDate   time.Time
	dueDate    time.Time
	returnDate *time.Time
	status     models.LoanStatus
	fine       float64
}

type reservation struct {
	id          int64
	bookID      int64
	memberID    int64
	requestDate time.Time
	status      models.ReservationStatus
}

type Server struct {
	mu sync.Mutex

	// Now is the server clock; loans are due LoanPeriod after it.
	Now        func() time.Time
	LoanPeriod time.Duration
	// FinePerDay is charged for each started day past the due date on return.
	FinePerDay float64

	nextID       int64
	users        map[int64]*user
	tokens       map[string]int64
	books        map[int64]*book
	copies       map[int64]*models.Copy
	loans        map[int64]*loan
	reservations map[int64]*reservation
	categories   map[int64]*models.Category
	publishers   map[int64]*models.Publisher

	failures     map[string]failure
	copyFailAt   int
	copyRequests int
	requests     []Request

	engine *gin.Engine
}

func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		Now:          time.Now,
		LoanPeriod:   14 * 24 * time.Hour,
		FinePerDay:   0.5,
		users:        make(map[int64]*user),
		tokens:       make(map[string]int64),
		books:        make(map[int64]*book),
		copies:       make(map[int64]*models.Copy),
		loans:        make(map[int64]*loan),
		reservations: make(map[int64]*reservation),
		categories:   make(map[int64]*models.Category),
		publishers:   make(map[int64]*models.Publisher),
		failures:     make(map[string]failure),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.record, s.inject, s.authenticate)

	api := r.Group(BasePath)
	api.POST("/auth/login", s.login)
	api.POST("/auth/register", s.register)

	api.GET("/books", s.listBooks)
	api.GET("/books/:id", s.getBook)
	api.POST("/books", s.createBook)
	api.PUT("/books/:id", s.updateBook)
	api.DELETE("/books/:id", s.deleteBook)
	api.GET("/books/:id/copies", s.listCopies)
	api.POST("/books/:id/copies", s.addCopy)
	api.DELETE("/books/copies/:copyId", s.deleteCopy)

	api.GET("/loans", s.listLoans)
	api.GET("/loans/member/:memberId", s.memberLoans)
	api.GET("/loans/admin/all", s.allLoans)
	api.POST("/loans/borrow", s.borrow)
	api.POST("/loans", s.borrow)
	api.POST("/loans/:id/return", s.returnLoan)

	api.GET("/reservations", s.listReservations)
	api.POST("/reservations", s.createReservation)
	api.DELETE("/reservations/:id", s.cancelReservation)

	api.GET("/categories", s.listCategories)
	api.POST("/categories", s.saveCategory)
	api.PUT("/categories/:id", s.saveCategory)
	api.DELETE("/categories/:id", s.deleteCategory)

	api.GET("/publishers", s.listPublishers)
	api.POST("/publishers", s.savePublisher)
	api.PUT("/publishers/:id", s.savePublisher)
	api.DELETE("/publishers/:id", s.deletePublisher)
	return r
}

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:        c.Request.Method,
		Path:          strings.TrimPrefix(c.Request.URL.Path, BasePath),
		Route:         strings.TrimPrefix(c.FullPath(), BasePath),
		Authorization: c.GetHeader("Authorization"),
	})
	s.mu.Unlock()
	c.Next()
}

func (s *Server) inject(c *gin.Context) {
	s.mu.Lock()
	f, ok := s.failures[failureKey(c.Request.Method, strings.TrimPrefix(c.FullPath(), BasePath))]
	s.mu.Unlock()
	if ok {
		abort(c, f.status, f.message)
		return
	}
	c.Next()
}

func (s *Server) authenticate(c *gin.Context) {
	if strings.Contains(c.Request.URL.Path, "/auth/") {
		c.Next()
		return
	}
	s.mu.Lock()
	id, ok := s.tokens[c.GetHeader("Authorization")]
	s.mu.Unlock()
	if !ok {
		abort(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	c.Set("memberID", id)
	c.Next()
}

func abort(c *gin.Context, status int, message string) {
	if message == "" {
		c.AbortWithStatus(status)
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

func failureKey(method, route string) string {
	return method + " " + route
}

// Fail makes every request to route (as registered, e.g. "/categories" or
// "/books/:id") answer with status and message until ClearFailures.
func (s *Server) Fail(method, route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[failureKey(method, route)] = failure{status: status, message: message}
}

func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]failure)
	s.copyFailAt = 0
}

// FailCopyCreation makes the nth copy creation from now fail with a 500.
func (s *Server) FailCopyCreation(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.copyFailAt = n
	s.copyRequests = 0
}

// RevokeTokens invalidates every issued token, so the next call gets a 401.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]int64)
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// CountRequests counts recorded requests for method and registered route.
func (s *Server) CountRequests(method, route string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Route == route {
			n++
		}
	}
	return n
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) AddUser(email, password string, role models.Role) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUser(email, password, role)
}

func (s *Server) addUser(email, password string, role models.Role) models.User {
	u := &user{User: models.User{ID: s.id(), Email: email, Role: role}, password: password}
	s.users[u.ID] = u
	return u.User
}

// Issue returns a valid token for an existing user without a login round trip.
func (s *Server) Issue(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issue(u)
}

func (s *Server) issue(u models.User) models.User {
	u.Token = fmt.Sprintf("Basic token-%d-%d", u.ID, s.id())
	s.tokens[u.Token] = u.ID
	return u
}

func (s *Server) AddCategory(name string, status models.CategoryStatus) models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat := &models.Category{ID: s.id(), Name: name, Status: status}
	s.categories[cat.ID] = cat
	return *cat
}

func (s *Server) AddPublisher(name, country string) models.Publisher {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Publisher{ID: s.id(), Name: name, Country: country}
	s.publishers[p.ID] = p
	return *p
}

// AddBook stores a book with one copy per status.
func (s *Server) AddBook(title, author string, categoryIDs []int64, statuses ...models.CopyStatus) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &book{raw: models.RawBook{ID: s.id(), Title: title, Author: author}, categoryIDs: categoryIDs}
	s.books[b.raw.ID] = b
	for _, st := range statuses {
		s.newCopy(b.raw.ID, "", st)
	}
	return b.raw.ID
}

func (s *Server) newCopy(bookID int64, barcode string, status models.CopyStatus) *models.Copy {
	cp := &models.Copy{ID: s.id(), BookID: bookID, Barcode: barcode, Status: status}
	if cp.Barcode == "" {
		cp.Barcode = fmt.Sprintf("BC-%06d", cp.ID)
	}
	s.copies[cp.ID] = cp
	return cp
}

// AddLoan records an active loan of copyID due at due.
func (s *Server) AddLoan(memberID, copyID int64, due time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := &loan{id: s.id(), memberID: memberID, copyID: copyID, loanDate: due.Add(-s.LoanPeriod), dueDate: due, status: models.LoanActive}
	s.loans[l.id] = l
	if cp, ok := s.copies[copyID]; ok {
		cp.Status = models.CopyLoaned
	}
	return l.id
}

func (s *Server) AddReservation(bookID, memberID int64, status models.ReservationStatus) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &reservation{id: s.id(), bookID: bookID, memberID: memberID, requestDate: s.Now(), status: status}
	s.reservations[r.id] = r
	return r.id
}

func (s *Server) Copies(bookID int64) []models.Copy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookCopies(bookID)
}

func (s *Server) Loan(id int64) (models.RawLoan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return models.RawLoan{}, false
	}
	return s.rawLoan(l), true
}

func (s *Server) bookCopies(bookID int64) []models.Copy {
	out := []models.Copy{}
	for _, cp := range s.copies {
		if cp.BookID == bookID {
			out = append(out, *cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) rawBook(b *book) models.RawBook {
	raw := b.raw
	raw.Copies = s.bookCopies(b.raw.ID)
	raw.Categories = nil
	for _, id := range b.categoryIDs {
		ref := models.Ref{ID: id}
		if cat, ok := s.categories[id]; ok {
			ref.Name = cat.Name
		}
		raw.Categories = append(raw.Categories, ref)
	}
	return raw
}

func (s *Server) rawLoan(l *loan) models.RawLoan {
	raw := models.RawLoan{
		ID:       l.id,
		LoanDate: models.NewTimestamp(l.loanDate),
		DueDate:  models.NewTimestamp(l.dueDate),
		Status:   l.status,
	}
	if l.returnDate != nil {
		ts := models.NewTimestamp(*l.returnDate)
		raw.ReturnDate = &ts
	}
	if l.fine > 0 {
		fine := l.fine
		raw.FineAmount = &fine
	}
	if u, ok := s.users[l.memberID]; ok {
		raw.Member = &models.RawMember{ID: u.ID, Email: u.Email}
	}
	if cp, ok := s.copies[l.copyID]; ok {
		raw.BookCopy = &models.RawBookCopy{ID: cp.ID, Barcode: cp.Barcode, Status: cp.Status}
		if b, ok := s.books[cp.BookID]; ok {
			raw.BookCopy.Book = &models.RawBookRef{ID: b.raw.ID, Title: b.raw.Title, Author: b.raw.Author}
		}
	}
	return raw
}

func (s *Server) rawReservation(r *reservation) models.RawReservation {
	raw := models.RawReservation{ID: r.id, Status: r.status}
	ts := models.NewTimestamp(r.requestDate)
	raw.RequestDate = &ts
	if b, ok := s.books[r.bookID]; ok {
		raw.Book = &models.RawBookRef{ID: b.raw.ID, Title: b.raw.Title}
	}
	if u, ok := s.users[r.memberID]; ok {
		raw.Member = &models.RawMember{ID: u.ID, Email: u.Email}
	}
	return raw
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid " + name})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func paginate[T any](c *gin.Context, items []T, defSize int) {
	page := queryInt(c, "page", 0)
	size := queryInt(c, "size", defSize)
	if size < 1 {
		size = defSize
	}
	total := (len(items) + size - 1) / size
	start := page * size
	if start > len(items) {
		start = len(items)
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	c.JSON(http.StatusOK, gin.H{
		"content":       items[start:end],
		"totalPages":    total,
		"totalElements": len(items),
		"number":        page,
		"size":          size,
	})
}
