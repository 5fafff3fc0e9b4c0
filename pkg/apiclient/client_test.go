package apiclient

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"librarydesk/pkg/fakeapi"
	"librarydesk/pkg/models"
	"librarydesk/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFake(t *testing.T) (*fakeapi.Server, string) {
	t.Helper()
	fake := fakeapi.New()
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	return fake, srv.URL + fakeapi.BasePath
}

func TestLoginSendsNoToken(t *testing.T) {
	fake, base := newFake(t)
	fake.AddUser("reader@example.com", "secret", models.RoleUser)

	sess := session.New(nil)
	require.NoError(t, sess.Set(models.User{ID: 99, Token: "stale-token"}))
	c := New(base, sess)

	user, err := c.Login(context.Background(), models.LoginRequest{Email: "reader@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.Token)

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/auth/login", reqs[0].Path)
	assert.Empty(t, reqs[0].Authorization)
}

func TestRequestsCarryToken(t *testing.T) {
	fake, base := newFake(t)
	user := fake.Issue(fake.AddUser("reader@example.com", "secret", models.RoleUser))

	sess := session.New(nil)
	require.NoError(t, sess.Set(user))
	c := New(base, sess)

	_, err := c.ListCategories(context.Background())
	require.NoError(t, err)

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, user.Token, reqs[0].Authorization)
}

func TestUnauthorizedClearsSessionAndNavigates(t *testing.T) {
	fake, base := newFake(t)
	user := fake.Issue(fake.AddUser("reader@example.com", "secret", models.RoleUser))
	fake.RevokeTokens()

	sess := session.New(nil)
	require.NoError(t, sess.Set(user))
	var navigated atomic.Int32
	var logs bytes.Buffer
	c := New(base, sess,
		WithNavigator(NavigatorFunc(func() { navigated.Add(1) })),
		WithLogger(log.New(&logs, "", 0)))

	_, err := c.ListReservations(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.False(t, sess.IsAuthenticated())
	assert.Empty(t, sess.Token())
	assert.Equal(t, int32(1), navigated.Load())
	assert.Contains(t, logs.String(), "session expired")
}

func TestErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		fallback string
		want     string
	}{
		{"message field", http.StatusBadRequest, `{"message":"Book copy is not available"}`, "Failed to borrow book.", "Book copy is not available"},
		{"error field", http.StatusConflict, `{"error":"already reserved"}`, "Failed to reserve book.", "already reserved"},
		{"empty body", http.StatusInternalServerError, ``, "Failed to borrow book.", "Failed to borrow book."},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "Failed to borrow book.", "Failed to borrow book."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(srv.URL, nil)
			_, err := c.GetBook(context.Background(), 1)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, Message(err, tt.fallback))
		})
	}
}

func TestMessageFallsBackForTransportErrors(t *testing.T) {
	assert.Equal(t, "Failed to reserve book.", Message(errors.New("dial tcp: refused"), "Failed to reserve book."))
	assert.Equal(t, "fallback", Message(ErrSessionExpired, "fallback"))
}

func TestIsNotFound(t *testing.T) {
	fake, base := newFake(t)
	user := fake.Issue(fake.AddUser("a@b.com", "pw", models.RoleUser))
	sess := session.New(nil)
	require.NoError(t, sess.Set(user))

	_, err := New(base, sess).GetBook(context.Background(), 12345)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Book not found", Message(err, ""))
}

func TestBookQueryParameters(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		w.Write([]byte(`{"content":[],"totalPages":0}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	page, err := c.ListBooks(context.Background(), BookQuery{Page: 2, Size: 9, Search: "dune", CategoryID: 4})
	require.NoError(t, err)
	assert.Equal(t, "categoryId=4&page=2&search=dune&size=9", got)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Items)
}

func TestAddCopyBarcode(t *testing.T) {
	fake, base := newFake(t)
	user := fake.Issue(fake.AddUser("admin@example.com", "pw", models.RoleAdmin))
	bookID := fake.AddBook("Emma", "Austen", nil)
	sess := session.New(nil)
	require.NoError(t, sess.Set(user))
	c := New(base, sess)

	withBarcode, err := c.AddCopy(context.Background(), bookID, "LIB-1")
	require.NoError(t, err)
	assert.Equal(t, "LIB-1", withBarcode.Barcode)

	generated, err := c.AddCopy(context.Background(), bookID, "")
	require.NoError(t, err)
	assert.NotEmpty(t, generated.Barcode)

	copies, err := c.ListCopies(context.Background(), bookID)
	require.NoError(t, err)
	assert.Len(t, copies, 2)
}

func TestSupplementaryEndpoints(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
		if r.URL.Path == "/ratings/average/3" {
			w.Write([]byte(`4.5`))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL, nil)
	require.NoError(t, c.AddFavorite(ctx, 3))
	_, err := c.Favorites(ctx)
	require.NoError(t, err)
	require.NoError(t, c.AddToReadingList(ctx, 3))
	avg, err := c.AverageRating(ctx, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, avg, 1e-9)
	_, err = c.MostReadCategories(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"POST /favorites/3?",
		"GET /favorites?",
		"POST /reading-list/3?",
		"GET /ratings/average/3?",
		"GET /reporting/categories/most-read?limit=10",
	}, paths)
}
