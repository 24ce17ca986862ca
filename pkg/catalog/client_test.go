package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skyatlas/starcat/pkg/retry"
)

const gaiaFixture = `{
	"metadata": [
		{"name": "source_id", "datatype": "long"},
		{"name": "ra", "datatype": "double"},
		{"name": "dec", "datatype": "double"},
		{"name": "phot_g_mean_mag", "datatype": "float"},
		{"name": "parallax", "datatype": "double"},
		{"name": "teff_gspphot", "datatype": "float"}
	],
	"data": [
		[12345, 10.5, -5.25, 10.5, 5.0, 5778.0]
	]
}`

// fastRetry keeps retry delays out of test runtime.
func fastRetry(attempts int) *retry.Config {
	cfg := retry.ForAttempts(attempts)
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(&Config{}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewClient(nil, zap.NewNop())
	assert.Error(t, err)
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client, err := NewClient(&Config{BaseURL: "http://tap.example.org/tap/"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "http://tap.example.org/tap", client.baseURL)
}

func TestClient_Query_SendsTAPRequest(t *testing.T) {
	var gotPath, gotContentType string
	var gotForm map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"REQUEST": r.PostFormValue("REQUEST"),
			"LANG":    r.PostFormValue("LANG"),
			"FORMAT":  r.PostFormValue("FORMAT"),
			"QUERY":   r.PostFormValue("QUERY"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(gaiaFixture))
	}))
	defer server.Close()

	client, err := NewClient(&Config{BaseURL: server.URL}, zap.NewNop())
	require.NoError(t, err)

	adql := "SELECT TOP 1 source_id, ra, dec FROM gaiadr3.gaia_source"
	result, err := client.Query(context.Background(), adql)
	require.NoError(t, err)

	assert.Equal(t, "/sync", gotPath)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "doQuery", gotForm["REQUEST"])
	assert.Equal(t, "ADQL", gotForm["LANG"])
	assert.Equal(t, "json", gotForm["FORMAT"])
	assert.Equal(t, adql, gotForm["QUERY"])

	require.Equal(t, 1, result.RowCount())

	id, err := result.Int64At(0, "source_id")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), id)

	ra, err := result.DecimalAt(0, "ra")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.5").Equal(ra))

	dec, err := result.DecimalAt(0, "dec")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("-5.25").Equal(dec))
}

func TestClient_Query_RecoversFromTransientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(gaiaFixture))
	}))
	defer server.Close()

	client, err := NewClient(&Config{BaseURL: server.URL}, zap.NewNop())
	require.NoError(t, err)
	client.retryCfg = fastRetry(3)

	result, err := client.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount())
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Query_ExhaustsRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(&Config{BaseURL: server.URL}, zap.NewNop())
	require.NoError(t, err)
	client.retryCfg = fastRetry(3)

	_, err = client.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Query_DoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "ADQL syntax error near 'FORM'", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewClient(&Config{BaseURL: server.URL}, zap.NewNop())
	require.NoError(t, err)
	client.retryCfg = fastRetry(3)

	_, err = client.Query(context.Background(), "SELECT 1 FORM x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "ADQL syntax error")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Query_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("<votable>not json</votable>"))
	}))
	defer server.Close()

	client, err := NewClient(&Config{BaseURL: server.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode catalog response")
}
