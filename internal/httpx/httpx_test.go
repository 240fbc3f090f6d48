package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func get(url string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestDo_SetsUserAgent(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	resp, err := Do(context.Background(), NewClient(time.Second, "minimonday-test/1.0"), get(ts.URL), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if got != "minimonday-test/1.0" {
		t.Fatalf("expected user agent to be set, got %q", got)
	}
}

func TestDo_StatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"quota"}`))
	}))
	defer ts.Close()

	var seen []AttemptInfo
	_, err := Do(context.Background(), ts.Client(), get(ts.URL+"/v4?key=secret"), nil, func(i AttemptInfo) { seen = append(seen, i) })

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T (%v)", err, err)
	}
	if se.HTTPStatus() != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", se.HTTPStatus())
	}
	if se.RetryAfter != 7*time.Second {
		t.Errorf("expected Retry-After 7s, got %v", se.RetryAfter)
	}
	if se.Body != `{"error":"quota"}` {
		t.Errorf("unexpected body %q", se.Body)
	}
	if len(seen) != 1 || seen[0].Status != http.StatusTooManyRequests {
		t.Fatalf("expected one observed attempt, got %+v", seen)
	}
	if seen[0].URL != ts.URL+"/v4" {
		t.Errorf("expected query to be redacted, got %s", seen[0].URL)
	}
}

func TestDo_SingleAttempt(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := Do(context.Background(), ts.Client(), get(ts.URL), nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one attempt, got %d", attempts)
	}
}

func TestDo_PreAttemptAborts(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer ts.Close()

	stop := errors.New("limiter closed")
	_, err := Do(context.Background(), ts.Client(), get(ts.URL), func(ctx context.Context) error { return stop }, nil)
	if !errors.Is(err, stop) {
		t.Fatalf("expected pre-attempt error, got %v", err)
	}
	if called {
		t.Fatal("request should not be sent when pre-attempt fails")
	}
}

func TestDo_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	var info AttemptInfo
	_, err := Do(context.Background(), &http.Client{Timeout: time.Second}, get(url), nil, func(i AttemptInfo) { info = i })
	if err == nil {
		t.Fatal("expected connection error")
	}
	if info.Err == nil {
		t.Fatal("observer should receive the transport error")
	}
}

func TestDoJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"range":"Tasks!A1:B2","values":[["a","b"]]}`))
	}))
	defer ts.Close()

	var out struct {
		Range  string     `json:"range"`
		Values [][]string `json:"values"`
	}
	if err := DoJSON(context.Background(), ts.Client(), get(ts.URL), nil, nil, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Range != "Tasks!A1:B2" || len(out.Values) != 1 {
		t.Fatalf("unexpected decode result: %+v", out)
	}
	if err := DoJSON(context.Background(), ts.Client(), get(ts.URL), nil, nil, nil); err != nil {
		t.Fatalf("nil out should discard body: %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-1", 0},
		{now.Add(10 * time.Second).Format(http.TimeFormat), 10 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"soon", 0},
	}
	for _, c := range cases {
		if got := ParseRetryAfter(c.in, now); got != c.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
