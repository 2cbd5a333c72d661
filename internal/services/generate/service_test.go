package generate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jordanurbs/aicaptains-api/internal/config"
	"github.com/jordanurbs/aicaptains-api/internal/middleware"
	"github.com/jordanurbs/aicaptains-api/internal/services/cache"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig(baseURL, apiKey string) *config.Config {
	return &config.Config{
		Upstream: config.UpstreamConfig{
			BaseURL:     baseURL,
			APIKey:      apiKey,
			Model:       "test-model",
			Timeout:     2 * time.Second,
			MaxAttempts: 3,
			Temperature: 1.0,
			TopP:        0.9,
			MaxTokens:   500,
		},
		Cache: config.CacheConfig{
			Enabled: true,
			Store:   "memory",
			TTL:     time.Hour,
			// Keep sweeps out of these tests.
			SweepChance: -1,
		},
	}
}

func newTestClient(cfg *config.Config, opts ...Option) *Client {
	memCache := cache.NewMemoryCache(cfg, testLogger())
	return NewClient(cfg, memCache, middleware.NewMetrics(), testLogger(), opts...)
}

// completionBody wraps model output in a chat-completions response.
func completionBody(content string) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return b
}

// flakyTransport fails the first n round trips with a network error.
type flakyTransport struct {
	failures int
	calls    int
	inner    http.RoundTripper
}

func (t *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls++
	if t.calls <= t.failures {
		return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	}
	return t.inner.RoundTrip(req)
}

func TestGenerateSuccess(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		w.Write(completionBody(`{"response":"Your excuse is a compass.","cta":"Follow it now"}`))
	}))
	defer upstream.Close()

	c := newTestClient(testConfig(upstream.URL, "sk-test"))
	result, err := c.Generate(context.Background(), "Build AI-powered apps", "Don't know where to start", true)
	if err != nil {
		t.Fatal(err)
	}
	if result.Response != "Your excuse is a compass." || result.CTA != "Follow it now" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestGenerateRetriesNetworkErrorsWithBackoff(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionBody(`{"response":"Third time lucky.","cta":"Keep going"}`))
	}))
	defer upstream.Close()

	var slept []time.Duration
	cfg := testConfig(upstream.URL, "sk-test")
	c := newTestClient(cfg,
		WithHTTPClient(&http.Client{Transport: &flakyTransport{failures: 2, inner: http.DefaultTransport}}),
		WithSleep(func(d time.Duration) { slept = append(slept, d) }),
	)

	result, err := c.Generate(context.Background(), "a worthwhile goal", "a stubborn excuse", false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Response != "Third time lucky." {
		t.Errorf("expected the third attempt's result, got %+v", result)
	}

	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("expected linear backoff of 1s then 2s, got %v", slept)
	}
	var total time.Duration
	for _, d := range slept {
		total += d
	}
	if total < 3*time.Second {
		t.Errorf("expected at least 3s of total backoff, got %v", total)
	}
}

func TestGenerateExhaustedNetworkErrorsFallBack(t *testing.T) {
	var slept []time.Duration
	cfg := testConfig("http://127.0.0.1:0", "sk-test")
	c := newTestClient(cfg,
		WithHTTPClient(&http.Client{Transport: &flakyTransport{failures: 99}}),
		WithSleep(func(d time.Duration) { slept = append(slept, d) }),
	)

	result, err := c.Generate(context.Background(), "a worthwhile goal", "a stubborn excuse", false)
	if err != nil {
		t.Fatal("exhausted retries must not surface an error")
	}

	want := SelectFallback("a worthwhile goal", "a stubborn excuse")
	if result.Response != want.Response || result.CTA != want.CTA {
		t.Errorf("expected deterministic fallback %+v, got %+v", want, result)
	}
	if len(slept) != 2 {
		t.Errorf("expected 2 backoff sleeps before exhaustion, got %v", slept)
	}
}

func TestGenerateStatusErrorSkipsRetries(t *testing.T) {
	calls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	var slept []time.Duration
	c := newTestClient(testConfig(upstream.URL, "sk-test"),
		WithSleep(func(d time.Duration) { slept = append(slept, d) }),
	)

	result, err := c.Generate(context.Background(), "a worthwhile goal", "a stubborn excuse", false)
	if err != nil {
		t.Fatal("status errors must degrade to the fallback, not surface")
	}
	if calls != 1 {
		t.Errorf("status errors must not be retried, saw %d calls", calls)
	}
	if len(slept) != 0 {
		t.Errorf("status errors must not wait, slept %v", slept)
	}

	want := SelectFallback("a worthwhile goal", "a stubborn excuse")
	if result.Response != want.Response {
		t.Errorf("expected fallback, got %+v", result)
	}
}

func TestGenerateParseFailureFallsBack(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionBody("I'd rather write a poem than JSON."))
	}))
	defer upstream.Close()

	c := newTestClient(testConfig(upstream.URL, "sk-test"))
	result, err := c.Generate(context.Background(), "a worthwhile goal", "a stubborn excuse", false)
	if err != nil {
		t.Fatal(err)
	}

	want := SelectFallback("a worthwhile goal", "a stubborn excuse")
	if result.Response != want.Response {
		t.Errorf("expected fallback after parse failure, got %+v", result)
	}
}

func TestGenerateEmptyCompletionSurfaces(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionBody(""))
	}))
	defer upstream.Close()

	c := newTestClient(testConfig(upstream.URL, "sk-test"))
	_, err := c.Generate(context.Background(), "a worthwhile goal", "a stubborn excuse", false)
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestGenerateMissingKeyNeverCallsUpstream(t *testing.T) {
	transport := &flakyTransport{inner: http.DefaultTransport}
	c := newTestClient(testConfig("http://example.invalid", ""),
		WithHTTPClient(&http.Client{Transport: transport}),
	)

	_, err := c.Generate(context.Background(), "a worthwhile goal", "a stubborn excuse", false)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if transport.calls != 0 {
		t.Errorf("missing credential must short-circuit before any network call, saw %d", transport.calls)
	}
}

func TestGenerateUsesCacheOnSecondCall(t *testing.T) {
	calls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write(completionBody(`{"response":"Cached wisdom.","cta":"Reuse it"}`))
	}))
	defer upstream.Close()

	c := newTestClient(testConfig(upstream.URL, "sk-test"))
	ctx := context.Background()

	first, err := c.Generate(ctx, "Build Apps", "No Time", true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Generate(ctx, "  build apps  ", "NO TIME", true)
	if err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Errorf("second call must be served from cache, upstream saw %d calls", calls)
	}
	if first.Response != second.Response || first.CTA != second.CTA {
		t.Errorf("cached result differs: %+v vs %+v", first, second)
	}
}

func TestGenerateFlattensMarkdown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionBody(`{"response":"You **can** do this.","cta":"*Start* now"}`))
	}))
	defer upstream.Close()

	c := newTestClient(testConfig(upstream.URL, "sk-test"))
	result, err := c.Generate(context.Background(), "a worthwhile goal", "a stubborn excuse", false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Response != "You can do this." {
		t.Errorf("markdown not flattened: %q", result.Response)
	}
	if result.CTA != "Start now" {
		t.Errorf("markdown not flattened in cta: %q", result.CTA)
	}
}
