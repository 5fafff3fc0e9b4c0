package main

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"testing"
	"time"

	"librarydesk/pkg/apiclient"
	"librarydesk/pkg/broadcast"
	"librarydesk/pkg/fakeapi"
	"librarydesk/pkg/models"
	"librarydesk/pkg/session"
	"librarydesk/pkg/views"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCLI struct {
	fake *fakeapi.Server
	sess *session.Session
	open func(string) (views.Deps, error)
}

func setupCLI(t *testing.T) *testCLI {
	t.Helper()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	fake := fakeapi.New()
	fake.Now = func() time.Time { return now }
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	// one session shared across invocations stands in for the gorm store
	sess := session.New(session.NewMemoryStore())
	logger := log.New(io.Discard, "", 0)
	tc := &testCLI{fake: fake, sess: sess}
	tc.open = func(string) (views.Deps, error) {
		api := apiclient.New(srv.URL+fakeapi.BasePath, sess, apiclient.WithLogger(logger))
		return views.Deps{
			API:         api,
			Broadcaster: broadcast.New(logger),
			Logger:      logger,
			Now:         func() time.Time { return now },
		}, nil
	}
	return tc
}

// run executes one libcli invocation and returns its output.
func (tc *testCLI) run(args ...string) (string, error) {
	c := &cli{
		open:     tc.open,
		password: func(string) (string, error) { return "secret", nil },
	}
	root := newRootCmd(c)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestLoginPromptsForPassword(t *testing.T) {
	tc := setupCLI(t)
	tc.fake.AddUser("reader@example.com", "secret", models.RoleUser)

	out, err := tc.run("login", "reader@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as reader@example.com (USER)")
	assert.True(t, tc.sess.IsAuthenticated())

	out, err = tc.run("whoami")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com (USER)\n", out)

	_, err = tc.run("logout")
	require.NoError(t, err)
	assert.False(t, tc.sess.IsAuthenticated())
}

func TestLoginRejectsBadEmailWithoutCalling(t *testing.T) {
	tc := setupCLI(t)

	_, err := tc.run("login", "not-an-email", "--password", "x")
	assert.EqualError(t, err, "Please enter a valid email address")
	assert.Empty(t, tc.fake.Requests())
}

func TestBorrowAndReturn(t *testing.T) {
	tc := setupCLI(t)
	tc.fake.AddUser("reader@example.com", "secret", models.RoleUser)
	bookID := tc.fake.AddBook("Dune", "Herbert", nil, models.CopyAvailable)
	_, err := tc.run("login", "reader@example.com", "--password", "secret")
	require.NoError(t, err)

	out, err := tc.run("books", "--search", "dune")
	require.NoError(t, err)
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "1/1")
	assert.Contains(t, out, "Page 1 of 1")

	out, err = tc.run("borrow", id(bookID))
	require.NoError(t, err)
	assert.Contains(t, out, `Borrowed "Dune"`)
	assert.Contains(t, out, "due 2024-05-24")
	m := regexp.MustCompile(`\(loan (\d+)\)`).FindStringSubmatch(out)
	require.Len(t, m, 2)
	loanID := m[1]

	_, err = tc.run("borrow", id(bookID))
	assert.EqualError(t, err, "Out of Stock")

	out, err = tc.run("book", id(bookID))
	require.NoError(t, err)
	assert.Contains(t, out, "0 of 1 available (Out of Stock)")
	assert.Contains(t, out, "Reserve Book")

	out, err = tc.run("library")
	require.NoError(t, err)
	assert.Contains(t, out, "ACTIVE")

	out, err = tc.run("return", loanID)
	require.NoError(t, err)
	assert.Contains(t, out, "Returned loan")
	assert.NotContains(t, out, "Late fee")
}

func TestAdminCommandsNeedAdmin(t *testing.T) {
	tc := setupCLI(t)
	tc.fake.AddUser("reader@example.com", "secret", models.RoleUser)

	_, err := tc.run("admin", "stats")
	assert.ErrorIs(t, err, views.ErrNotLoggedIn)

	_, err = tc.run("login", "reader@example.com", "--password", "secret")
	require.NoError(t, err)
	_, err = tc.run("admin", "stats")
	assert.ErrorIs(t, err, errAdminOnly)
}

func TestAdminAddCopiesStopsAtFirstFailure(t *testing.T) {
	tc := setupCLI(t)
	tc.fake.AddUser("admin@example.com", "secret", models.RoleAdmin)
	bookID := tc.fake.AddBook("Emma", "Austen", nil)
	_, err := tc.run("login", "admin@example.com", "--password", "secret")
	require.NoError(t, err)
	tc.fake.FailCopyCreation(2)

	out, err := tc.run("admin", "copies", "add", id(bookID), "-n", "3")

	var partial *views.PartialCopyError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, partial.Created)
	assert.Contains(t, out, "Added 1 of 3 copies")
	assert.Equal(t, 2, tc.fake.CountRequests(http.MethodPost, "/books/:id/copies"))
	assert.Len(t, tc.fake.Copies(bookID), 1)
}

func TestAdminSaveBookAndStats(t *testing.T) {
	tc := setupCLI(t)
	tc.fake.AddUser("admin@example.com", "secret", models.RoleAdmin)
	cat := tc.fake.AddCategory("Fiction", models.CategoryActive)
	_, err := tc.run("login", "admin@example.com", "--password", "secret")
	require.NoError(t, err)

	out, err := tc.run("admin", "books", "save", "--title", "Emma", "--author", "Austen",
		"--category", id(cat.ID), "--quantity", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `"Emma"`)

	out, err = tc.run("admin", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Books:       1")
	assert.Contains(t, out, "Categories:  1")
	assert.Contains(t, out, "Loans:       0 (0 active, 0 overdue)")
}
