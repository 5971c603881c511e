package crashstats

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sthembisoo/unique-stacks/cmd/crashstats/types"
)

// mockServer creates a test server that answers every request with body.
func mockServer(t *testing.T, statusCode int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestListReports(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	server := mockServer(t, http.StatusOK, `{"hits": [{"uuid": "U1"}, {"uuid": "U2"}], "total": 2}`, func(r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"signature":  r.URL.Query().Get("signature"),
			"start_date": r.URL.Query().Get("start_date"),
			"end_date":   r.URL.Query().Get("end_date"),
		}
	})

	hits, err := New(server.URL).ListReports(context.Background(), "OOM | small", "2023-01-01", "2023-01-02")
	require.NoError(t, err)

	assert.Equal(t, "/ReportList/", gotPath)
	assert.Equal(t, map[string]string{
		"signature":  "OOM | small",
		"start_date": "2023-01-01",
		"end_date":   "2023-01-02",
	}, gotQuery)
	require.Len(t, hits, 2)
	assert.Equal(t, "U1", hits[0].UUID)
	assert.Equal(t, "U2", hits[1].UUID)
}

func TestListReportsEmptyHits(t *testing.T) {
	server := mockServer(t, http.StatusOK, `{"hits": [], "total": 0}`, nil)

	hits, err := New(server.URL).ListReports(context.Background(), "sig", "2023-01-01", "2023-01-02")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestListReportsErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error": "boom"}`},
		{"not found", http.StatusNotFound, `not found`},
		{"malformed json", http.StatusOK, `{"hits": [`},
		{"missing hits", http.StatusOK, `{"total": 3}`},
		{"null hits", http.StatusOK, `{"hits": null}`},
		{"hit without uuid", http.StatusOK, `{"hits": [{"uuid": "U1"}, {"signature": "x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := mockServer(t, tt.status, tt.body, nil)
			_, err := New(server.URL).ListReports(context.Background(), "sig", "2023-01-01", "2023-01-02")
			assert.Error(t, err)
		})
	}
}

func TestListReportsStatusError(t *testing.T) {
	server := mockServer(t, http.StatusBadGateway, `upstream down`, nil)

	_, err := New(server.URL).ListReports(context.Background(), "sig", "2023-01-01", "2023-01-02")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "upstream down", statusErr.Body)
}

func TestListReportsMissingHits(t *testing.T) {
	server := mockServer(t, http.StatusOK, `{"total": 3}`, nil)

	_, err := New(server.URL).ListReports(context.Background(), "sig", "2023-01-01", "2023-01-02")
	assert.ErrorIs(t, err, types.ErrMissingHits)
}

func TestListReportsTruncatedWarning(t *testing.T) {
	server := mockServer(t, http.StatusOK, `{"hits": [{"uuid": "U1"}], "total": 40}`, nil)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	hits, err := New(server.URL, WithLogger(logger)).ListReports(context.Background(), "sig", "2023-01-01", "2023-01-02")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Contains(t, logs.String(), "report list truncated")
	assert.Contains(t, logs.String(), "total=40")
}

func TestGetProcessedCrash(t *testing.T) {
	var gotPath, gotCrashID string
	server := mockServer(t, http.StatusOK, `{"uuid": "U1", "json_dump": {"threads": [{"frames": [{"function": "foo"}]}]}}`, func(r *http.Request) {
		gotPath = r.URL.Path
		gotCrashID = r.URL.Query().Get("crash_id")
	})

	crash, err := New(server.URL + "/").GetProcessedCrash(context.Background(), "U1")
	require.NoError(t, err)

	assert.Equal(t, "/ProcessedCrash/", gotPath)
	assert.Equal(t, "U1", gotCrashID)

	frames, err := crash.Thread0Frames()
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "foo", frames[0].Function)
}

func TestGetProcessedCrashErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		server := mockServer(t, http.StatusForbidden, `{"error": "protected"}`, nil)
		_, err := New(server.URL).GetProcessedCrash(context.Background(), "U1")
		var statusErr *StatusError
		assert.ErrorAs(t, err, &statusErr)
		assert.Contains(t, err.Error(), "U1")
	})

	t.Run("malformed json", func(t *testing.T) {
		server := mockServer(t, http.StatusOK, `not json`, nil)
		_, err := New(server.URL).GetProcessedCrash(context.Background(), "U1")
		assert.Error(t, err)
	})

	t.Run("transport", func(t *testing.T) {
		server := mockServer(t, http.StatusOK, `{}`, nil)
		server.Close()
		_, err := New(server.URL).GetProcessedCrash(context.Background(), "U1")
		assert.Error(t, err)
	})
}

func TestWithToken(t *testing.T) {
	var gotToken string
	server := mockServer(t, http.StatusOK, `{"hits": []}`, func(r *http.Request) {
		gotToken = r.Header.Get("Auth-Token")
	})

	_, err := New(server.URL, WithToken("secret")).ListReports(context.Background(), "sig", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "secret", gotToken)

	_, err = New(server.URL, WithToken("")).ListReports(context.Background(), "sig", "a", "b")
	require.NoError(t, err)
	assert.Empty(t, gotToken)
}

func TestWithTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"hits": [{"uuid": "U1"}], "total": 1}`))
	}))
	t.Cleanup(server.Close)

	t.Run("expires", func(t *testing.T) {
		_, err := New(server.URL, WithTimeout(50*time.Millisecond)).ListReports(context.Background(), "sig", "a", "b")
		assert.Error(t, err)
	})

	t.Run("generous", func(t *testing.T) {
		hits, err := New(server.URL, WithTimeout(5*time.Second)).ListReports(context.Background(), "sig", "a", "b")
		require.NoError(t, err)
		assert.Equal(t, []types.Hit{{UUID: "U1"}}, hits)
	})

	t.Run("zero means none", func(t *testing.T) {
		hits, err := New(server.URL, WithTimeout(0)).ListReports(context.Background(), "sig", "a", "b")
		require.NoError(t, err)
		assert.Equal(t, []types.Hit{{UUID: "U1"}}, hits)
	})
}
