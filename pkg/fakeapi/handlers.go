package fakeapi

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"librarydesk/pkg/models"

	"github.com/gin-gonic/gin"
)

func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == req.Email && u.password == req.Password {
			c.JSON(http.StatusOK, s.issue(u.User))
			return
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid email or password"})
}

func (s *Server) register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, req.Email) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email is already in use"})
			return
		}
	}
	u := s.addUser(req.Email, req.Password, models.RoleUser)
	c.JSON(http.StatusOK, s.issue(u))
}

func (s *Server) listBooks(c *gin.Context) {
	search := strings.ToLower(c.Query("search"))
	categoryID, _ := strconv.ParseInt(c.Query("categoryId"), 10, 64)

	s.mu.Lock()
	out := []models.RawBook{}
	for _, b := range s.books {
		if search != "" && !strings.Contains(strings.ToLower(b.raw.Title), search) &&
			!strings.Contains(strings.ToLower(b.raw.Author), search) {
			continue
		}
		if categoryID != 0 && !containsID(b.categoryIDs, categoryID) {
			continue
		}
		out = append(out, s.rawBook(b))
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	paginate(c, out, 10)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *Server) getBook(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Book not found"})
		return
	}
	c.JSON(http.StatusOK, s.rawBook(b))
}

func (s *Server) createBook(c *gin.Context) {
	var req models.BookWrite
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &book{}
	b.raw.ID = s.id()
	applyBook(b, req)
	s.books[b.raw.ID] = b
	c.JSON(http.StatusCreated, s.rawBook(b))
}

func (s *Server) updateBook(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.BookWrite
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Book not found"})
		return
	}
	applyBook(b, req)
	c.JSON(http.StatusOK, s.rawBook(b))
}

func applyBook(b *book, req models.BookWrite) {
	b.raw.Title = req.Title
	b.raw.Author = req.Author
	b.raw.ISBN = req.ISBN
	b.raw.PublishYear = req.PublishYear
	b.raw.PageCount = req.PageCount
	b.raw.Publisher = req.Publisher
	b.categoryIDs = nil
	for _, ref := range req.Categories {
		b.categoryIDs = append(b.categoryIDs, ref.ID)
	}
}

func (s *Server) deleteBook(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Book not found"})
		return
	}
	delete(s.books, id)
	for cid, cp := range s.copies {
		if cp.BookID == id {
			delete(s.copies, cid)
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listCopies(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.bookCopies(id))
}

func (s *Server) addCopy(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.copyRequests++
	if s.copyFailAt > 0 && s.copyRequests == s.copyFailAt {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create copy"})
		return
	}
	if _, ok := s.books[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Book not found"})
		return
	}
	cp := s.newCopy(id, c.Query("barcode"), models.CopyAvailable)
	c.JSON(http.StatusCreated, cp)
}

func (s *Server) deleteCopy(c *gin.Context) {
	id, ok := paramID(c, "copyId")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.copies[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Copy not found"})
		return
	}
	if cp.Status == models.CopyLoaned {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Cannot delete a copy that is on loan"})
		return
	}
	delete(s.copies, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) loansWhere(keep func(*loan) bool) []models.RawLoan {
	out := []models.RawLoan{}
	for _, l := range s.loans {
		if keep(l) {
			out = append(out, s.rawLoan(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) listLoans(c *gin.Context) {
	s.mu.Lock()
	out := s.loansWhere(func(*loan) bool { return true })
	s.mu.Unlock()
	paginate(c, out, 20)
}

func (s *Server) memberLoans(c *gin.Context) {
	id, ok := paramID(c, "memberId")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.loansWhere(func(l *loan) bool { return l.memberID == id }))
}

func (s *Server) allLoans(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.loansWhere(func(*loan) bool { return true }))
}

func (s *Server) borrow(c *gin.Context) {
	var req models.BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.copies[req.BookCopy.ID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Book copy not found"})
		return
	}
	if cp.Status != models.CopyAvailable && cp.Status != models.CopyReserved {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Book copy is not available"})
		return
	}
	if _, ok := s.users[req.Member.ID]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Member not found"})
		return
	}
	now := s.Now()
	l := &loan{
		id:       s.id(),
		memberID: req.Member.ID,
		copyID:   cp.ID,
		loanDate: now,
		dueDate:  now.Add(s.LoanPeriod),
		status:   models.LoanActive,
	}
	s.loans[l.id] = l
	cp.Status = models.CopyLoaned
	c.JSON(http.StatusCreated, s.rawLoan(l))
}

func (s *Server) returnLoan(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Loan not found"})
		return
	}
	if l.status != models.LoanActive {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Loan is already returned"})
		return
	}
	now := s.Now()
	l.status = models.LoanReturned
	l.returnDate = &now
	if late := now.Sub(l.dueDate); late > 0 {
		l.fine = math.Ceil(late.Hours()/24) * s.FinePerDay
	}
	if cp, ok := s.copies[l.copyID]; ok {
		cp.Status = models.CopyAvailable
	}
	c.JSON(http.StatusOK, s.rawLoan(l))
}

func (s *Server) listReservations(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.RawReservation{}
	for _, r := range s.reservations {
		out = append(out, s.rawReservation(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) createReservation(c *gin.Context) {
	var req models.ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[req.Book.ID]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Book not found"})
		return
	}
	for _, r := range s.reservations {
		if r.bookID == req.Book.ID && r.memberID == req.Member.ID && r.status == models.ReservationPending {
			c.JSON(http.StatusBadRequest, gin.H{"message": "You already have a pending reservation for this book"})
			return
		}
	}
	r := &reservation{
		id:          s.id(),
		bookID:      req.Book.ID,
		memberID:    req.Member.ID,
		requestDate: s.Now(),
		status:      models.ReservationPending,
	}
	s.reservations[r.id] = r
	c.JSON(http.StatusCreated, s.rawReservation(r))
}

func (s *Server) cancelReservation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Reservation not found"})
		return
	}
	delete(s.reservations, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) listCategories(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Category{}
	for _, cat := range s.categories {
		out = append(out, *cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) saveCategory(c *gin.Context) {
	var req models.Category
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Param("id") == "" {
		req.ID = s.id()
	} else {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if _, ok := s.categories[id]; !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "Category not found"})
			return
		}
		req.ID = id
	}
	if req.Status == "" {
		req.Status = models.CategoryActive
	}
	s.categories[req.ID] = &req
	c.JSON(http.StatusOK, req)
}

func (s *Server) deleteCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.categories, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) listPublishers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Publisher{}
	for _, p := range s.publishers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) savePublisher(c *gin.Context) {
	var req models.Publisher
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Param("id") == "" {
		req.ID = s.id()
	} else {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if _, ok := s.publishers[id]; !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "Publisher not found"})
			return
		}
		req.ID = id
	}
	s.publishers[req.ID] = &req
	c.JSON(http.StatusOK, req)
}

func (s *Server) deletePublisher(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.publishers, id)
	c.Status(http.StatusNoContent)
}
