package witness

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
}

func TestProbeRecordsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Server", "witness-test")
		w.Header().Set("Via", "1.1 cache-edge")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProber([]string{srv.URL}, time.Second, discardLogger())
	reports := p.Probe(context.Background())

	require.Len(t, reports, 1)
	rep := reports[0]
	assert.True(t, rep.OK)
	assert.Equal(t, http.StatusOK, rep.Status)
	assert.Equal(t, "witness-test", rep.Server)
	assert.Equal(t, "1.1 cache-edge", rep.Via)
	assert.NotEmpty(t, rep.Date) // net/http sets Date automatically
	assert.NotEmpty(t, rep.ReceivedUTC)
}

func TestFailedProbeIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv.Close() // unreachable on purpose

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer good.Close()

	p := NewProber([]string{srv.URL, good.URL}, time.Second, discardLogger())
	reports := p.Probe(context.Background())

	require.Len(t, reports, 2)
	assert.False(t, reports[0].OK)
	assert.Contains(t, reports[0].Note, "probe failed")
	assert.True(t, reports[1].OK, "a failed probe must not block later probes")
}

func TestProbeTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()

	p := NewProber([]string{slow.URL}, 20*time.Millisecond, discardLogger())
	reports := p.Probe(context.Background())

	require.Len(t, reports, 1)
	assert.False(t, reports[0].OK)
}

func TestProbeOrderIsStable(t *testing.T) {
	a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer a.Close()
	b := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer b.Close()

	p := NewProber([]string{a.URL, b.URL}, time.Second, discardLogger())
	reports := p.Probe(context.Background())

	require.Len(t, reports, 2)
	assert.Equal(t, a.URL, reports[0].URL)
	assert.Equal(t, b.URL, reports[1].URL)
}
