package views

import (
	"bytes"
	"context"
	"log"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"librarydesk/pkg/apiclient"
	"librarydesk/pkg/broadcast"
	"librarydesk/pkg/fakeapi"
	"librarydesk/pkg/models"
	"librarydesk/pkg/session"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

// syncBuffer lets broadcast goroutines and the test share a log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	fake      *fakeapi.Server
	sess      *session.Session
	bus       *broadcast.Broadcaster
	logs      *syncBuffer
	navigated *atomic.Int32
	deps      Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := fakeapi.New()
	fake.Now = func() time.Time { return testNow }
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	logs := &syncBuffer{}
	logger := log.New(logs, "", 0)
	sess := session.New(nil)
	navigated := &atomic.Int32{}
	api := apiclient.New(srv.URL+fakeapi.BasePath, sess,
		apiclient.WithLogger(logger),
		apiclient.WithNavigator(apiclient.NavigatorFunc(func() { navigated.Add(1) })))
	bus := broadcast.New(logger)
	t.Cleanup(bus.Wait)

	return &harness{
		fake:      fake,
		sess:      sess,
		bus:       bus,
		logs:      logs,
		navigated: navigated,
		deps: Deps{
			API:         api,
			Broadcaster: bus,
			Logger:      logger,
			Now:         func() time.Time { return testNow },
		},
	}
}

// signIn creates a member on the fake and puts its token in the session.
func (h *harness) signIn(t *testing.T, role models.Role) models.User {
	t.Helper()
	user := h.fake.Issue(h.fake.AddUser("member@example.com", "secret", role))
	require.NoError(t, h.sess.Set(user))
	return user
}

var ctx = context.Background()
