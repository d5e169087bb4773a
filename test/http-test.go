package test

import (
	"net/http"
	"net/http/httptest"
	"sync"
)

type RoundTripFunc func(req *http.Request) *http.Response

func (r RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	return r(req), nil
}

// NewTestServer returns a client whose requests are served in-process by mux.
func NewTestServer(mux http.Handler) *http.Client {
	return &http.Client{
		Transport: RoundTripFunc(func(req *http.Request) *http.Response {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			return rec.Result()
		}),
	}
}

// StaticResponse serves body with status for every request.
func StaticResponse(status int, body []byte) *http.Client {
	return &http.Client{
		Transport: RoundTripFunc(func(req *http.Request) *http.Response {
			rec := httptest.NewRecorder()
			rec.WriteHeader(status)
			_, _ = rec.Write(body)
			return rec.Result()
		}),
	}
}

// Counter counts requests per URL path.
type Counter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (c *Counter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		c.mu.Lock()
		if c.hits == nil {
			c.hits = make(map[string]int)
		}
		c.hits[req.URL.Path]++
		c.mu.Unlock()
		next.ServeHTTP(rw, req)
	})
}

func (c *Counter) Hits(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[path]
}

func (c *Counter) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.hits {
		n += v
	}
	return n
}
