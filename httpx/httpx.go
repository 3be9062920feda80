package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/byte4ever/r9y"
)

// ErrorClass tells the resilience layer how to treat an HTTP
// status code.
type ErrorClass int

const (
	// Success means the request succeeded (e.g. 2xx).
	Success ErrorClass = iota
	// Transient means the error is retriable (e.g. 429, 503).
	Transient
	// Permanent means the error is non-retriable (e.g. 400).
	Permanent
)

// Classifier maps an HTTP status code to an ErrorClass.
//
// Pattern: Strategy — caller injects classification logic
// without modifying the adapter.
type Classifier func(statusCode int) ErrorClass

// DefaultClassifier treats 2xx as success, 408/429 and all 5xx
// as transient, and everything else as permanent.
func DefaultClassifier(statusCode int) ErrorClass {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return Success
	case statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusTooManyRequests,
		statusCode >= 500:
		return Transient
	default:
		return Permanent
	}
}

// StatusError is returned when the Classifier marks a status
// code as Transient or Permanent. The original response
// remains accessible for header/body inspection.
type StatusError struct {
	// Response is the original HTTP response that triggered
	// the error. The body has not been read or closed.
	Response   *http.Response
	StatusCode int
}

// Error returns a human-readable description of the status
// error.
func (e *StatusError) Error() string {
	return "http status " + strconv.Itoa(e.StatusCode)
}

// Client wraps an http.Client with an r9y resilience policy
// and HTTP status code classification.
//
// Pattern: Adapter — bridges net/http and r9y's resilience
// policy by translating HTTP status codes into r9y error
// classification.
type Client struct {
	hc *http.Client
	p  *r9y.Policy[*http.Response]
	cl Classifier
}

// NewClient creates a Client that executes HTTP requests
// through the given r9y policy options. The classifier
// determines how HTTP status codes map to transient or
// permanent errors for retry decisions.
func NewClient(
	name string,
	hc *http.Client,
	cl Classifier,
	opts ...any,
) *Client {
	if cl == nil {
		cl = DefaultClassifier
	}

	return &Client{
		hc: hc,
		p:  r9y.NewPolicy[*http.Response](name, opts...),
		cl: cl,
	}
}

// Do executes req through the resilience policy. Requests with
// a body are only safe to retry when req.GetBody is set (as it
// is for requests built by http.NewRequest from a byte reader);
// otherwise configure the policy without retries.
//
// Responses whose status the classifier marks as Transient or
// Permanent are closed out to the caller as a *StatusError
// wrapped in the matching r9y classification; the response
// body is left unread for inspection.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.p.Do(req.Context(), func(ctx context.Context) (*http.Response, error) {
		resp, err := c.hc.Do(req.Clone(ctx))
		if err != nil {
			// Network-level failures are transient unless they carry a
			// context cancellation, which Classify detects through the
			// wrap chain.
			return nil, r9y.Transient(err)
		}

		switch c.cl(resp.StatusCode) {
		case Transient:
			return nil, r9y.Transient(&StatusError{
				Response:   resp,
				StatusCode: resp.StatusCode,
			})
		case Permanent:
			return nil, r9y.Permanent(&StatusError{
				Response:   resp,
				StatusCode: resp.StatusCode,
			})
		default:
			return resp, nil
		}
	})
}
