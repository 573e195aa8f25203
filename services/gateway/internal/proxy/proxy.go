package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/securepulse/securepulse/pkg/logger"
	mw "github.com/securepulse/securepulse/pkg/middleware"
	"github.com/securepulse/securepulse/pkg/response"
)

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ServiceProxy forwards requests to one upstream service. Transport failures
// feed a circuit breaker; while it is open requests fail without dialing.
type ServiceProxy struct {
	name    string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewServiceProxy(name, baseURL string, timeout time.Duration) *ServiceProxy {
	return &ServiceProxy{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    10 * time.Second,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.6
			},
			// a client hanging up says nothing about upstream health
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Upstream circuit state changed", "service", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// ProxyRequest sends method and path (with query) upstream carrying body and
// the end-to-end subset of headers.
func (p *ServiceProxy) ProxyRequest(ctx context.Context, method, path string, body io.Reader, headers http.Header) (*http.Response, error) {
	url := p.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	removeHopHeaders(req.Header)

	if requestID := mw.GetRequestID(ctx); requestID != "" {
		req.Header.Set(mw.RequestIDHeader, requestID)
	}
	req.Header.Set("X-Gateway-Forwarded", "true")

	logger.DebugContext(ctx, "Proxying request",
		"service", p.name,
		"method", method,
		"url", url,
	)

	out, err := p.breaker.Execute(func() (interface{}, error) {
		return p.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.name, err)
	}
	return out.(*http.Response), nil
}

// ServeHTTP forwards r unchanged in path and query. An unreachable upstream
// yields 502, an open circuit 503.
func (p *ServiceProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	headers := r.Header.Clone()
	appendForwardedFor(headers, r.RemoteAddr)

	path := r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	resp, err := p.ProxyRequest(r.Context(), r.Method, path, r.Body, headers)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logger.WarnContext(r.Context(), "Upstream circuit open", "service", p.name, "path", r.URL.Path)
			response.WriteError(w, http.StatusServiceUnavailable, "Service unavailable", response.CodeServiceUnavailable)
			return
		}
		logger.ErrorContext(r.Context(), "Service proxy error", "error", err, "service", p.name, "path", r.URL.Path)
		response.WriteError(w, http.StatusBadGateway, "Upstream service unavailable", response.CodeBadGateway)
		return
	}
	defer resp.Body.Close()

	removeHopHeaders(resp.Header)
	removeGatewayOwned(resp.Header)
	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.ErrorContext(r.Context(), "Failed to copy response body", "error", err, "service", p.name)
	}
}

func removeHopHeaders(h http.Header) {
	for _, c := range h.Values("Connection") {
		for _, f := range strings.Split(c, ",") {
			if f = strings.TrimSpace(f); f != "" {
				h.Del(f)
			}
		}
	}
	for _, k := range hopHeaders {
		h.Del(k)
	}
}

// removeGatewayOwned drops response headers the gateway's own middleware
// sets, so the client sees exactly one value for each.
func removeGatewayOwned(h http.Header) {
	for k := range h {
		if strings.HasPrefix(k, "Access-Control-") {
			h.Del(k)
		}
	}
	h.Del(mw.RequestIDHeader)
}

func appendForwardedFor(h http.Header, remoteAddr string) {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		ip = remoteAddr
	}
	if ip == "" {
		return
	}
	if prior := h.Get("X-Forwarded-For"); prior != "" {
		ip = prior + ", " + ip
	}
	h.Set("X-Forwarded-For", ip)
}
