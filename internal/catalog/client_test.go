package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/pkg/httpclient"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	hc := httpclient.New(httpclient.Config{
		Timeout:      2 * time.Second,
		MaxRetries:   0,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond,
	})
	breaker := httpclient.NewBreakerClient(hc, httpclient.BreakerConfig{
		Name:         "catalog-test",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.99,
		MinRequests:  100,
	}, logger)
	return NewClient(serverURL+"/api/v1", breaker, logger)
}

func TestClient_Resolve_AllSucceed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/api/v1/products/"):]
		fmt.Fprintf(w, `{"data":{"id":%q,"name":"Product %s"}}`, id, id)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	items := client.Resolve(context.Background(), domain.KindProducts, []string{"a", "b", "c"})

	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].ID, "input order preserved")
	assert.Equal(t, "Product b", items[1].Name)
}

func TestClient_Resolve_PartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/collections/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"data":{"id":"ok","name":"Spring"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	items := client.Resolve(context.Background(), domain.KindCollections, []string{"ok", "missing"})

	require.Len(t, items, 1, "failed lookups are dropped, not fatal")
	assert.Equal(t, "Spring", items[0].Name)
}

func TestClient_Resolve_Concurrent(t *testing.T) {
	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, `{"data":{"id":"x","name":"X"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	start := time.Now()
	items := client.Resolve(context.Background(), domain.KindCategories, []string{"1", "2", "3", "4"})

	require.Len(t, items, 4)
	assert.Less(t, time.Since(start), 200*time.Millisecond, "lookups run concurrently")
	assert.Greater(t, peak.Load(), int32(1))
}

func TestClient_Resolve_EmptyInput(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0")
	items := client.Resolve(context.Background(), domain.KindProducts, nil)

	assert.NotNil(t, items)
	assert.Empty(t, items)
}
