package main

import (
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"

	"librarydesk/pkg/apiclient"
	"librarydesk/pkg/availability"
	"librarydesk/pkg/broadcast"
	"librarydesk/pkg/config"
	"librarydesk/pkg/database"
	"librarydesk/pkg/models"
	"librarydesk/pkg/session"
	"librarydesk/pkg/validate"
	"librarydesk/pkg/views"

	"github.com/gin-gonic/gin"
)

// maxDetailViews bounds how many book detail views stay mounted. The least
// recently requested one is unmounted first.
const maxDetailViews = 16

// gateway keeps the mounted views of one operator session and serves their
// view-models as JSON.
type gateway struct {
	deps    views.Deps
	auth    *views.Auth
	catalog *views.CatalogView
	library *views.MyLibraryView
	admin   *views.AdminDashboard

	mu      sync.Mutex
	details map[int64]*views.BookDetailView
	recent  []int64 // detail view ids, least recently used first
	copies  map[int64]*views.CopyManager
}

func main() {
	configPath := flag.String("config", getEnv("LIBRARYDESK_CONFIG", "librarydesk.yaml"), "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Open(cfg.Session.Driver, cfg.Session.DSN)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	sess := session.New(database.NewGormStore(db))
	if err := sess.Restore(); err != nil {
		log.Printf("Failed to restore session: %v", err)
	}

	logger := log.Default()
	g := newGateway(cfg.API.BaseURL, sess, logger)
	defer g.deps.Broadcaster.Wait()

	log.Printf("Gateway starting on %s, API %s", cfg.Gateway.Addr, cfg.API.BaseURL)
	if err := g.routes(gin.Default()).Run(cfg.Gateway.Addr); err != nil {
		log.Fatalf("Gateway stopped: %v", err)
	}
}

func newGateway(baseURL string, sess *session.Session, logger *log.Logger) *gateway {
	g := &gateway{
		details: make(map[int64]*views.BookDetailView),
		copies:  make(map[int64]*views.CopyManager),
	}
	api := apiclient.New(baseURL, sess,
		apiclient.WithLogger(logger),
		apiclient.WithNavigator(apiclient.NavigatorFunc(g.toLogin)))
	g.deps = views.Deps{
		API:         api,
		Broadcaster: broadcast.New(logger),
		Logger:      logger,
	}
	g.auth = views.NewAuth(g.deps)
	g.catalog = views.NewCatalogView(g.deps)
	g.library = views.NewMyLibraryView(g.deps)
	g.admin = views.NewAdminDashboard(g.deps)

	g.catalog.Mount()
	if sess.IsAuthenticated() {
		g.signedIn()
	}
	return g
}

func (g *gateway) routes(r *gin.Engine) *gin.Engine {
	r.GET("/manage/health", healthCheck)

	api := r.Group("/api/v1")
	api.GET("/session", g.currentSessionHandler)
	api.POST("/session/login", g.loginHandler)
	api.POST("/session/register", g.registerHandler)
	api.POST("/session/logout", g.logoutHandler)

	api.GET("/catalog", g.catalogHandler)
	api.GET("/books/:id", g.bookHandler)
	api.DELETE("/books/:id/view", g.closeBookHandler)
	api.POST("/books/:id/borrow", g.borrowHandler)
	api.POST("/books/:id/reserve", g.reserveHandler)

	api.GET("/library", g.libraryHandler)
	api.POST("/library/loans/:id/return", g.returnHandler)
	api.DELETE("/library/reservations/:id", g.cancelReservationHandler)

	admin := api.Group("/admin", g.requireAdmin)
	admin.GET("", g.adminHandler)
	admin.POST("/books", g.saveBookHandler)
	admin.PUT("/books/:id", g.saveBookHandler)
	admin.DELETE("/books/:id", g.deleteBookHandler)
	admin.GET("/books/:id/copies", g.copiesHandler)
	admin.POST("/books/:id/copies", g.addCopiesHandler)
	admin.DELETE("/books/:id/copies/:copyId", g.deleteCopyHandler)
	admin.POST("/categories", g.saveCategoryHandler)
	admin.PUT("/categories/:id", g.saveCategoryHandler)
	admin.DELETE("/categories/:id", g.deleteCategoryHandler)
	admin.POST("/publishers", g.savePublisherHandler)
	admin.PUT("/publishers/:id", g.savePublisherHandler)
	admin.DELETE("/publishers/:id", g.deletePublisherHandler)
	admin.POST("/loans/:id/return", g.adminReturnHandler)
	return r
}

// signedIn mounts the member views; the admin dashboard only for admins.
func (g *gateway) signedIn() {
	g.library.Mount()
	if g.deps.API.Session().IsAdmin() {
		g.admin.Mount()
	}
}

// toLogin runs on logout and whenever the API rejects the token. The session
// is already gone by then.
func (g *gateway) toLogin() {
	g.library.Unmount()
	g.admin.Unmount()
	g.dropViews()
	log.Println("Signed out, member views unmounted")
}

func (g *gateway) dropViews() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, v := range g.details {
		v.Unmount()
	}
	g.details = make(map[int64]*views.BookDetailView)
	g.recent = nil
	g.copies = make(map[int64]*views.CopyManager)
}

func (g *gateway) detail(id int64) *views.BookDetailView {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.details[id]
	if ok {
		g.touch(id)
		return v
	}
	v = views.NewBookDetailView(g.deps, id)
	v.Mount()
	g.details[id] = v
	g.recent = append(g.recent, id)
	if len(g.recent) > maxDetailViews {
		oldest := g.recent[0]
		g.recent = g.recent[1:]
		g.details[oldest].Unmount()
		delete(g.details, oldest)
	}
	return v
}

// touch moves id to the most recently used end. g.mu must be held.
func (g *gateway) touch(id int64) {
	for i, recent := range g.recent {
		if recent == id {
			g.recent = append(append(g.recent[:i:i], g.recent[i+1:]...), id)
			return
		}
	}
}

// closeBookHandler unmounts the detail view of a book the client stopped
// showing.
func (g *gateway) closeBookHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	g.mu.Lock()
	if v, ok := g.details[id]; ok {
		v.Unmount()
		delete(g.details, id)
		for i, recent := range g.recent {
			if recent == id {
				g.recent = append(g.recent[:i:i], g.recent[i+1:]...)
				break
			}
		}
	}
	g.mu.Unlock()
	c.Status(http.StatusNoContent)
}

func (g *gateway) copyManager(bookID int64) *views.CopyManager {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.copies[bookID]
	if !ok {
		m = views.NewCopyManager(g.deps, bookID)
		g.copies[bookID] = m
	}
	return m
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (g *gateway) currentSessionHandler(c *gin.Context) {
	user, ok := g.deps.API.Session().Current()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "email": user.Email, "role": user.Role})
}

func (g *gateway) loginHandler(c *gin.Context) {
	var form validate.LoginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := g.auth.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	g.signedIn()
	c.JSON(http.StatusOK, gin.H{"email": user.Email, "role": user.Role})
}

func (g *gateway) registerHandler(c *gin.Context) {
	var form validate.RegisterForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := g.auth.Register(c.Request.Context(), form)
	if err != nil {
		respondError(c, err)
		return
	}
	if user.Token != "" {
		g.signedIn()
	}
	c.JSON(http.StatusCreated, gin.H{"email": user.Email, "role": user.Role})
}

func (g *gateway) logoutHandler(c *gin.Context) {
	if err := g.auth.Logout(); err != nil {
		log.Printf("Failed to clear persisted session: %v", err)
	}
	c.Status(http.StatusNoContent)
}

func (g *gateway) catalogHandler(c *gin.Context) {
	ctx := c.Request.Context()
	err := g.catalog.Show(ctx, views.CatalogQuery{
		Page:       int(queryInt64(c, "page")),
		Search:     c.Query("search"),
		CategoryID: queryInt64(c, "categoryId"),
	})
	if len(g.catalog.State().Categories) == 0 {
		g.catalog.LoadCategories(ctx)
	}
	if errors.Is(err, apiclient.ErrSessionExpired) {
		respondError(c, err)
		return
	}
	if err != nil {
		// the page carries the view's own error message
		log.Printf("Catalog refresh failed: %v", err)
	}
	c.JSON(http.StatusOK, g.catalog.State())
}

func (g *gateway) bookHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	v := g.detail(id)
	if err := v.Refresh(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v.State())
}

func (g *gateway) borrowHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	v := g.detail(id)
	if !v.State().Loaded {
		if err := v.Refresh(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
	}
	loan, err := v.Borrow(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (g *gateway) reserveHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	v := g.detail(id)
	if !v.State().Loaded {
		if err := v.Refresh(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
	}
	reservation, err := v.Reserve(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

func (g *gateway) libraryHandler(c *gin.Context) {
	if err := g.library.Refresh(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g.library.State())
}

func (g *gateway) returnHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	loan, err := g.library.Return(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (g *gateway) cancelReservationHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := g.library.CancelReservation(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (g *gateway) requireAdmin(c *gin.Context) {
	sess := g.deps.API.Session()
	switch {
	case !sess.IsAuthenticated():
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please login first"})
	case !sess.IsAdmin():
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
	default:
		c.Next()
	}
}

func (g *gateway) adminHandler(c *gin.Context) {
	if err := g.admin.Load(c.Request.Context()); err != nil {
		if errors.Is(err, apiclient.ErrSessionExpired) {
			respondError(c, err)
			return
		}
		log.Printf("Admin dashboard partially loaded: %v", err)
	}
	c.JSON(http.StatusOK, g.admin.State())
}

type saveBookRequest struct {
	Book     models.Book `json:"book"`
	Quantity int         `json:"quantity"`
}

func (g *gateway) saveBookHandler(c *gin.Context) {
	var req saveBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	status := http.StatusCreated
	if c.Param("id") != "" {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		req.Book.ID = id
		status = http.StatusOK
	}
	book, err := g.admin.SaveBook(c.Request.Context(), req.Book, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, book)
}

func (g *gateway) deleteBookHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := g.admin.DeleteBook(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (g *gateway) copiesHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	m := g.copyManager(id)
	if err := m.Refresh(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Copies())
}

// addCopiesHandler adds one copy with an optional barcode, or ?count=n
// copies one after another.
func (g *gateway) addCopiesHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	m := g.copyManager(id)
	if count := queryInt64(c, "count"); count > 0 {
		created, err := m.AddN(c.Request.Context(), int(count))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"created": created, "copies": m.Copies()})
		return
	}
	var body struct {
		Barcode string `json:"barcode"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	created, err := m.Add(c.Request.Context(), body.Barcode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (g *gateway) deleteCopyHandler(c *gin.Context) {
	bookID, ok := pathID(c, "id")
	if !ok {
		return
	}
	copyID, ok := pathID(c, "copyId")
	if !ok {
		return
	}
	m := g.copyManager(bookID)
	if err := m.Refresh(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	for _, row := range m.Copies() {
		if row.ID == copyID {
			if err := m.Delete(c.Request.Context(), row.Copy); err != nil {
				respondError(c, err)
				return
			}
			c.Status(http.StatusNoContent)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Copy not found"})
}

func (g *gateway) saveCategoryHandler(c *gin.Context) {
	var category models.Category
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	status := http.StatusCreated
	if c.Param("id") != "" {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		category.ID = id
		status = http.StatusOK
	}
	saved, err := g.admin.SaveCategory(c.Request.Context(), category)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, saved)
}

func (g *gateway) deleteCategoryHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := g.admin.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (g *gateway) savePublisherHandler(c *gin.Context) {
	var publisher models.Publisher
	if err := c.ShouldBindJSON(&publisher); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	status := http.StatusCreated
	if c.Param("id") != "" {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		publisher.ID = id
		status = http.StatusOK
	}
	saved, err := g.admin.SavePublisher(c.Request.Context(), publisher)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, saved)
}

func (g *gateway) deletePublisherHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := g.admin.DeletePublisher(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (g *gateway) adminReturnHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := g.admin.ReturnLoan(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g.admin.Stats())
}

// respondError writes the user-facing message of err with a matching status.
func respondError(c *gin.Context, err error) {
	var fields validate.FieldErrors
	if errors.As(err, &fields) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	body := gin.H{"error": err.Error()}
	var partial *views.PartialCopyError
	if errors.As(err, &partial) {
		body["requested"] = partial.Requested
		body["created"] = partial.Created
	}
	c.JSON(statusFor(err), body)
}

func statusFor(err error) int {
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, apiclient.ErrSessionExpired), errors.Is(err, views.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, views.ErrReservationUnknown):
		return http.StatusNotFound
	case errors.Is(err, views.ErrCopyOnLoan),
		errors.Is(err, views.ErrNotCancellable),
		errors.Is(err, views.ErrReserveNotOffered),
		errors.Is(err, availability.ErrNoCopies),
		errors.Is(err, availability.ErrNoEligibleCopy):
		return http.StatusConflict
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return apiErr.StatusCode
	default:
		return http.StatusBadGateway
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func queryInt64(c *gin.Context, name string) int64 {
	n, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
