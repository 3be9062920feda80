package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/byte4ever/r9y"
	"github.com/byte4ever/r9y/httpx"
)

func TestDefaultClassifier(t *testing.T) {
	cases := []struct {
		status int
		want   httpx.ErrorClass
	}{
		{200, httpx.Success},
		{204, httpx.Success},
		{301, httpx.Permanent},
		{400, httpx.Permanent},
		{404, httpx.Permanent},
		{408, httpx.Transient},
		{429, httpx.Transient},
		{500, httpx.Transient},
		{503, httpx.Transient},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, httpx.DefaultClassifier(tc.status),
			"status %d", tc.status)
	}
}

func TestClientRetriesTransientStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := httpx.NewClient("", srv.Client(), nil,
		r9y.WithRetry(5, r9y.ConstantBackoff(time.Millisecond)),
	)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 3, hits.Load())
}

func TestClientDoesNotRetryPermanentStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := httpx.NewClient("", srv.Client(), nil,
		r9y.WithRetry(5, r9y.ConstantBackoff(time.Millisecond)),
	)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	require.Error(t, err)
	require.True(t, r9y.IsPermanent(err))
	require.EqualValues(t, 1, hits.Load(), "permanent status must not be retried")

	var se *httpx.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.StatusCode)
	require.NotNil(t, se.Response)
}

func TestClientCustomClassifier(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	// Treat 404 as transient (e.g. an eventually consistent store).
	classifier := func(status int) httpx.ErrorClass {
		if status == http.StatusNotFound {
			return httpx.Transient
		}
		return httpx.DefaultClassifier(status)
	}

	c := httpx.NewClient("", srv.Client(), classifier,
		r9y.WithRetry(3, r9y.ConstantBackoff(time.Millisecond)),
	)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	require.Error(t, err)
	require.EqualValues(t, 3, hits.Load(), "custom-transient status should burn the retry budget")
}

func TestClientNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := httpx.NewClient("", http.DefaultClient, nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	require.Error(t, err)
	require.True(t, r9y.IsTransient(err))
}

func TestClientBreakerFastFailsAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := httpx.NewClient("", srv.Client(), nil,
		r9y.WithCircuitBreaker(
			r9y.FailureThreshold(2),
			r9y.RecoveryTimeout(time.Hour),
		),
	)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, doErr := c.Do(req)
		require.Error(t, doErr)
	}

	_, err = c.Do(req)
	require.ErrorIs(t, err, r9y.ErrCircuitOpen)
}

func TestClientHonorsRequestContext(t *testing.T) {
	block := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := httpx.NewClient("", srv.Client(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Do(req)
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
}
