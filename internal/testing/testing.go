// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/anidex/internal/models"
)

// FakeSleeper records requested durations instead of blocking
type FakeSleeper struct {
	mu    sync.Mutex
	Slept []time.Duration
	Err   error
}

func (f *FakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Slept = append(f.Slept, d)
	return f.Err
}

// Durations returns a copy of the recorded sleeps
func (f *FakeSleeper) Durations() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.Slept...)
}

// MockLister is a test double for [services.ProgressLister]
type MockLister struct {
	Lists []models.ReadingList
	Err   error
}

func (m *MockLister) FetchLists(ctx context.Context, username string) ([]models.ReadingList, error) {
	return m.Lists, m.Err
}

// MockResolver is a test double for [services.CatalogResolver] keyed by external id
type MockResolver struct {
	mu      sync.Mutex
	Matches map[int64]string
	Errs    map[int64]error
	Calls   []int64
	Block   bool // wait for ctx cancellation on unknown ids
}

func (m *MockResolver) Resolve(ctx context.Context, title string, externalID int64) (models.CatalogMatch, bool, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, externalID)
	err := m.Errs[externalID]
	id, ok := m.Matches[externalID]
	m.mu.Unlock()

	if err != nil {
		return models.CatalogMatch{}, false, err
	}
	if !ok && m.Block {
		<-ctx.Done()
		return models.CatalogMatch{}, false, ctx.Err()
	}
	if !ok {
		return models.CatalogMatch{}, false, nil
	}
	return models.CatalogMatch{CatalogID: id}, true, nil
}

// CallCount reports how many titles were resolved
func (m *MockResolver) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockFetcher is a test double for [services.ProgressFetcher] keyed by catalog id
type MockFetcher struct {
	mu        sync.Mutex
	Latest    map[string]float64
	Errs      map[string]error
	Languages []string
}

func (m *MockFetcher) FetchLatest(ctx context.Context, catalogID, language string) (models.LatestUnit, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Languages = append(m.Languages, language)

	if err := m.Errs[catalogID]; err != nil {
		return models.LatestUnit{}, false, err
	}
	n, ok := m.Latest[catalogID]
	if !ok {
		return models.LatestUnit{}, false, nil
	}
	return models.LatestUnit{Number: n}, true, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
