package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/newsmind/pkg/newsroom"
	"github.com/kadirpekel/newsmind/pkg/observability"
	"github.com/kadirpekel/newsmind/pkg/ratelimit"
	"github.com/kadirpekel/newsmind/pkg/store"
)

type fakeGenerator struct {
	article *newsroom.ArticleOutput
	err     error
	queries []string
}

func (g *fakeGenerator) Generate(ctx context.Context, query string) (*newsroom.ArticleOutput, error) {
	g.queries = append(g.queries, query)
	return g.article, g.err
}

var testArticle = &newsroom.ArticleOutput{
	Title:    "Central Bank Holds Rates",
	Summary:  "Rates stay at 5%.",
	Keywords: []string{"rates"},
	Article:  "The central bank held rates on Tuesday.",
	Sources:  []string{"https://news.example/rates"},
}

func newTestServer(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	return s.Handler()
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/generate-article", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGenerateArticle(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		genErr     error
		wantStatus int
		wantBody   map[string]any
		wantCalls  int
	}{
		{
			name:       "success",
			body:       `{"query":"interest rates"}`,
			wantStatus: http.StatusCreated,
			wantBody: map[string]any{
				"status_code": float64(201),
				"message":     "Query processed successfully and article generated.",
			},
			wantCalls: 1,
		},
		{
			name:       "empty query",
			body:       `{"query":""}`,
			wantStatus: http.StatusBadRequest,
			wantBody: map[string]any{
				"status_code": float64(400),
				"message":     "Bad Request",
				"detail":      "Query cannot be empty",
			},
		},
		{
			name:       "whitespace query",
			body:       `{"query":"   "}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"detail": "Query cannot be empty"},
		},
		{
			name:       "missing query",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"detail": "Query cannot be empty"},
		},
		{
			name:       "malformed json",
			body:       `{"query":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"status_code": float64(400), "message": "Bad Request"},
		},
		{
			name:       "pipeline error",
			body:       `{"query":"interest rates"}`,
			genErr:     errors.New("model call failed: upstream 503"),
			wantStatus: http.StatusInternalServerError,
			wantBody: map[string]any{
				"status_code": float64(500),
				"message":     "Internal Server Error",
				"detail":      "An unexpected error occurred: model call failed: upstream 503",
			},
			wantCalls: 1,
		},
		{
			name:       "empty query sentinel from generator",
			body:       `{"query":"x"}`,
			genErr:     fmt.Errorf("wrapped: %w", newsroom.ErrEmptyQuery),
			wantStatus: http.StatusBadRequest,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{article: testArticle, err: tt.genErr}
			if tt.genErr != nil {
				gen.article = nil
			}
			h := newTestServer(t, Config{Generator: gen})

			rec := post(h, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Len(t, gen.queries, tt.wantCalls)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			for k, v := range tt.wantBody {
				assert.Equal(t, v, body[k], k)
			}
		})
	}
}

func TestGenerateArticle_Data(t *testing.T) {
	h := newTestServer(t, Config{Generator: &fakeGenerator{article: testArticle}})

	rec := post(h, `{"query":"interest rates"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testArticle, resp.Data)
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, Config{Generator: &fakeGenerator{article: testArticle}})

	req := httptest.NewRequest(http.MethodOptions, "/generate-article", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	rec = post(h, `{"query":"x"}`)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthAndNotFound(t *testing.T) {
	h := newTestServer(t, Config{Generator: &fakeGenerator{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/generate-article", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// Articles routes are absent without a store.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/articles", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArticles(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	for _, q := range []string{"first", "second", "third"} {
		require.NoError(t, st.Save(ctx, &store.ArticleRecord{Query: q, Title: q, Article: []byte(`{"title":"` + q + `"}`)}))
	}
	recs, _ := st.List(ctx, 1)
	latestID := recs[0].ID

	h := newTestServer(t, Config{Generator: &fakeGenerator{}, Articles: st})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/articles?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list ArticleList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "third", list.Articles[0].Query)
	assert.JSONEq(t, `{"title":"third"}`, string(list.Articles[0].Article))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/articles?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/articles/"+latestID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got store.ArticleRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "third", got.Query)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/articles/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Article not found")
}

func TestMetricsEndpoint(t *testing.T) {
	metrics, err := observability.NewMetrics(&observability.MetricsConfig{Enabled: true, Endpoint: "/metrics", Namespace: "newsmind"})
	require.NoError(t, err)

	h := newTestServer(t, Config{Generator: &fakeGenerator{article: testArticle}, Metrics: metrics})
	post(h, `{"query":"rates"}`)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "newsmind_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/generate-article"`)
}

func TestServe_Shutdown(t *testing.T) {
	s, err := New(Config{Generator: &fakeGenerator{}, ShutdownTimeout: time.Second})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNew_RequiresGenerator(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHealthReportsVersion(t *testing.T) {
	h := newTestServer(t, Config{Generator: &fakeGenerator{}, Version: "v1.2.3"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok","version":"v1.2.3"}`, rec.Body.String())
}

func TestGenerateArticle_RateLimited(t *testing.T) {
	limiter, err := ratelimit.New(ratelimit.Limit{Requests: 1, Window: time.Hour}, nil)
	require.NoError(t, err)
	gen := &fakeGenerator{article: testArticle}
	h := newTestServer(t, Config{Generator: gen, RateLimiter: limiter})

	assert.Equal(t, http.StatusCreated, post(h, `{"query":"rates"}`).Code)

	rec := post(h, `{"query":"rates"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusTooManyRequests, body.StatusCode)
	assert.Equal(t, "Too Many Requests", body.Message)
	assert.Len(t, gen.queries, 1)

	// Health is not limited.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
