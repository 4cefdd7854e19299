// Package testing holds fakes and assertions shared by the smartwake tests.
package testing

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/smartwake/internal/assets"
)

var errInjected = errors.New("injected failure")

// FWriter fails every write.
type FWriter struct{}

func (*FWriter) Write([]byte) (int, error) { return 0, errInjected }

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// NewMockRoundTripper returns a transport that answers every request with resp and err.
func NewMockRoundTripper(resp *http.Response, err error) http.RoundTripper {
	return roundTripFunc(func(*http.Request) (*http.Response, error) { return resp, err })
}

// FCloser is a response body whose reads fail.
type FCloser struct{}

func (*FCloser) Read([]byte) (int, error) { return 0, errInjected }
func (*FCloser) Close() error             { return nil }

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected %s to exist", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

// Scheduled is one notification held by a [FakeNotifier].
type Scheduled struct {
	ID    int
	Title string
	Body  string
	At    time.Time
}

// FakeNotifier records scheduled notifications in memory. Set Err to fail every call.
type FakeNotifier struct {
	mu        sync.Mutex
	pending   map[int]Scheduled
	cancelled []int
	Err       error
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{pending: make(map[int]Scheduled)}
}

func (n *FakeNotifier) Schedule(_ context.Context, id int, title, body string, at time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.pending[id] = Scheduled{ID: id, Title: title, Body: body, At: at}
	return nil
}

func (n *FakeNotifier) Cancel(_ context.Context, id int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	delete(n.pending, id)
	n.cancelled = append(n.cancelled, id)
	return nil
}

// Pending returns scheduled notifications ordered by fire time, then ID.
func (n *FakeNotifier) Pending() []Scheduled {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Scheduled, 0, len(n.pending))
	for _, s := range n.pending {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Scheduled) int {
		if c := a.At.Compare(b.At); c != 0 {
			return c
		}
		return a.ID - b.ID
	})
	return out
}

// Cancelled returns every cancelled ID in call order.
func (n *FakeNotifier) Cancelled() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.cancelled)
}

// FakeLoader is an [assets.AudioLoader] that succeeds unless the URL is in Fail.
type FakeLoader struct {
	mu    sync.Mutex
	calls []string
	Fail  map[string]error
}

func (l *FakeLoader) LoadAudio(_ context.Context, url string, opts assets.LoadOptions) (*assets.CacheEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, url)
	if err, ok := l.Fail[url]; ok {
		return nil, err
	}
	key := opts.CacheKey
	if key == "" {
		key = url
	}
	return &assets.CacheEntry{Key: key, URL: url, Path: "/cache/" + key, LoadedAt: time.Now()}, nil
}

// Calls returns the requested URLs in call order.
func (l *FakeLoader) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
