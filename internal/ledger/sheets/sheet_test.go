package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"ledgerbot/pkg/platform/sentinel"
)

func newTestSheet(t *testing.T, handler http.HandlerFunc) *Sheet {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := gsheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewWithService(svc, "sheet-id", "Dashboard1")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestAppendRow(t *testing.T) {
	var gotPath, gotInput string
	var gotBody gsheets.ValueRange
	s := newTestSheet(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInput = r.URL.Query().Get("valueInputOption")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		writeJSON(w, map[string]any{})
	})

	err := s.AppendRow(context.Background(), []string{"7/30/2025", "09:15", "", "150000"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(gotPath, ":append"), gotPath)
	assert.Contains(t, gotPath, "Dashboard1")
	assert.Equal(t, "USER_ENTERED", gotInput)
	require.Len(t, gotBody.Values, 1)
	assert.Equal(t, "150000", gotBody.Values[0][3])
}

func TestReadCells(t *testing.T) {
	s := newTestSheet(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"'Dashboard1'!C1", "'Dashboard1'!D1"}, r.URL.Query()["ranges"])
		writeJSON(w, map[string]any{
			"valueRanges": []map[string]any{
				{"values": [][]string{{"1,200"}}},
				{},
			},
		})
	})

	got, err := s.ReadCells(context.Background(), []string{"C1", "D1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1,200", ""}, got)
}

func TestReadAll(t *testing.T) {
	s := newTestSheet(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"values": [][]string{{"totals"}, {"Obekt", "Som"}, {"A", "10"}},
		})
	})

	got, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"totals"}, {"Obekt", "Som"}, {"A", "10"}}, got)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"forbidden is configuration", http.StatusForbidden, sentinel.ErrMisconfigured},
		{"not found is configuration", http.StatusNotFound, sentinel.ErrMisconfigured},
		{"rate limit is transient", http.StatusTooManyRequests, sentinel.ErrUnavailable},
		{"server error is transient", http.StatusServiceUnavailable, sentinel.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSheet(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"error":{"code":0,"message":"nope"}}`)
			})
			err := s.AppendRow(context.Background(), []string{"x"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}
}

func TestNewWithMissingCredentials(t *testing.T) {
	_, err := New(context.Background(), "/nonexistent/credentials.json", "id", "Dashboard1")
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrMisconfigured)
}
