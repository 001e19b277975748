package slogx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openlab-dev/roble-go/pkg/idx"
	"github.com/openlab-dev/roble-go/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestTransportStampsRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-Id")
	}))
	defer srv.Close()

	client := &http.Client{Transport: &slogx.Transport{Logger: slogx.Discard()}}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NotEmpty(t, seen)
	_, err = idx.Parse(seen)
	require.NoError(t, err)
}

func TestTransportLeavesCallerRequestUntouched(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	tr := &slogx.Transport{Logger: slogx.Discard()}
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Empty(t, req.Header.Get("X-Request-Id"))
}

func TestTransportKeepsCallerRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-Id")
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", "caller-supplied")

	client := &http.Client{Transport: &slogx.Transport{Logger: slogx.Discard()}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "caller-supplied", seen)
}
