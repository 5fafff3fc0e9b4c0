package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"librarydesk/pkg/apiclient"
	"librarydesk/pkg/availability"
	"librarydesk/pkg/fakeapi"
	"librarydesk/pkg/models"
	"librarydesk/pkg/session"
	"librarydesk/pkg/validate"
	"librarydesk/pkg/views"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGateway(t *testing.T) (*fakeapi.Server, *gin.Engine) {
	t.Helper()
	fake, g := newTestGateway(t)
	return fake, g.routes(gin.New())
}

func newTestGateway(t *testing.T) (*fakeapi.Server, *gateway) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := fakeapi.New()
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	g := newGateway(srv.URL+fakeapi.BasePath, session.New(nil), log.New(io.Discard, "", 0))
	t.Cleanup(g.deps.Broadcaster.Wait)
	return fake, g
}

func perform(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine, email, password string) {
	t.Helper()
	w := perform(r, http.MethodPost, "/api/v1/session/login", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/manage/health", nil)

	healthCheck(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK"}`, w.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"session expired", apiclient.ErrSessionExpired, http.StatusUnauthorized},
		{"not logged in", &views.ActionError{Message: "Please login to borrow books.", Err: views.ErrNotLoggedIn}, http.StatusUnauthorized},
		{"copy on loan", &views.ActionError{Err: views.ErrCopyOnLoan}, http.StatusConflict},
		{"no eligible copy", &views.ActionError{Err: availability.ErrNoEligibleCopy}, http.StatusConflict},
		{"unknown reservation", views.ErrReservationUnknown, http.StatusNotFound},
		{"server rejected", &views.ActionError{Err: &apiclient.APIError{StatusCode: http.StatusBadRequest}}, http.StatusBadRequest},
		{"server failed", &views.ActionError{Err: &apiclient.APIError{StatusCode: http.StatusInternalServerError}}, http.StatusBadGateway},
		{"transport", errors.New("connection refused"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusFor(tt.err))
		})
	}
}

func TestLoginValidationFields(t *testing.T) {
	fake, r := setupGateway(t)

	w := perform(r, http.MethodPost, "/api/v1/session/login", gin.H{"email": "nope", "password": "x"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Please enter a valid email address", body.Fields[validate.FormKey])
	assert.Empty(t, fake.Requests())
}

func TestBorrowThroughGateway(t *testing.T) {
	fake, r := setupGateway(t)
	fake.AddUser("reader@example.com", "secret", models.RoleUser)
	bookID := fake.AddBook("Dune", "Herbert", nil, models.CopyAvailable)

	w := perform(r, http.MethodGet, "/api/v1/library", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	login(t, r, "reader@example.com", "secret")

	w = perform(r, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var catalog views.CatalogState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	require.Len(t, catalog.Books, 1)
	assert.Equal(t, availability.LabelAvailable, catalog.Books[0].Availability)

	path := "/api/v1/books/" + itoa(bookID) + "/borrow"
	w = perform(r, http.MethodPost, path, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = perform(r, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Out of Stock"}`, w.Body.String())

	w = perform(r, http.MethodGet, "/api/v1/library", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var library struct {
		Active []json.RawMessage `json:"active"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &library))
	assert.Len(t, library.Active, 1)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	fake, r := setupGateway(t)
	fake.AddUser("reader@example.com", "secret", models.RoleUser)

	w := perform(r, http.MethodGet, "/api/v1/admin", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	login(t, r, "reader@example.com", "secret")
	w = perform(r, http.MethodGet, "/api/v1/admin", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAddCopiesReportsPartialRun(t *testing.T) {
	fake, r := setupGateway(t)
	fake.AddUser("admin@example.com", "secret", models.RoleAdmin)
	bookID := fake.AddBook("Emma", "Austen", nil)
	fake.FailCopyCreation(2)
	login(t, r, "admin@example.com", "secret")

	w := perform(r, http.MethodPost, "/api/v1/admin/books/"+itoa(bookID)+"/copies?count=3", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var body struct {
		Requested int `json:"requested"`
		Created   int `json:"created"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Requested)
	assert.Equal(t, 1, body.Created)
	assert.Len(t, fake.Copies(bookID), 1)
}

func TestExpiredTokenLogsOut(t *testing.T) {
	fake, r := setupGateway(t)
	fake.AddUser("reader@example.com", "secret", models.RoleUser)
	login(t, r, "reader@example.com", "secret")
	fake.RevokeTokens()

	w := perform(r, http.MethodGet, "/api/v1/library", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, http.MethodGet, "/api/v1/session", nil)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
}

func TestDetailViewsStayBounded(t *testing.T) {
	fake, g := newTestGateway(t)
	r := g.routes(gin.New())
	fake.AddUser("reader@example.com", "secret", models.RoleUser)
	login(t, r, "reader@example.com", "secret")
	base := g.deps.Broadcaster.Count()

	var first, last int64
	for i := 0; i < 50; i++ {
		id := fake.AddBook("Book "+strconv.Itoa(i), "Author", nil, models.CopyAvailable)
		if i == 0 {
			first = id
		}
		last = id
		w := perform(r, http.MethodGet, "/api/v1/books/"+itoa(id), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.Equal(t, base+maxDetailViews, g.deps.Broadcaster.Count())
	assert.NotContains(t, g.details, first)
	assert.Contains(t, g.details, last)

	fake.ResetRequests()
	g.deps.Broadcaster.Publish()
	g.deps.Broadcaster.Wait()
	assert.Equal(t, maxDetailViews, fake.CountRequests(http.MethodGet, "/books/:id"))

	w := perform(r, http.MethodDelete, "/api/v1/books/"+itoa(last)+"/view", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, base+maxDetailViews-1, g.deps.Broadcaster.Count())

	// logout unmounts the member views and every detail view
	w = perform(r, http.MethodPost, "/api/v1/session/logout", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, g.deps.Broadcaster.Count())
	assert.Empty(t, g.details)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
