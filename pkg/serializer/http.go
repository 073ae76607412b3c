package serializer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/netops-tools/invsync/pkg/defaults"
)

// RespondJSON writes a JSON response with the given status code and data.
// It buffers the JSON encoding before writing headers to prevent partial responses.
func RespondJSON(w http.ResponseWriter, statusCode int, data any) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("json encoding failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// connection is gone
		slog.Warn("response write failed", "error", err)
	}
}

// HttpReaderUserAgent is sent when no user agent is configured.
const HttpReaderUserAgent = "invsync/1.0"

// maxReadBytes caps documents fetched by ReadWithContext.
const maxReadBytes = 64 << 20

// HttpReader owns a tuned http.Client: pooled connections, bounded dial,
// TLS handshake and response header waits, TLS 1.2 minimum.
type HttpReader struct {
	UserAgent string
	Client    *http.Client

	totalTimeout  time.Duration
	connect       time.Duration
	headerTimeout time.Duration
	insecure      bool
	custom        bool
}

// HttpReaderOption configures an HttpReader.
type HttpReaderOption func(*HttpReader)

func WithUserAgent(userAgent string) HttpReaderOption {
	return func(r *HttpReader) {
		r.UserAgent = userAgent
	}
}

// WithTotalTimeout bounds a whole request including the body read.
func WithTotalTimeout(timeout time.Duration) HttpReaderOption {
	return func(r *HttpReader) {
		r.totalTimeout = timeout
	}
}

// WithResponseHeaderTimeout bounds the wait for response headers after the
// request is written. Zero leaves only the total timeout.
func WithResponseHeaderTimeout(timeout time.Duration) HttpReaderOption {
	return func(r *HttpReader) {
		r.headerTimeout = timeout
	}
}

func WithConnectTimeout(timeout time.Duration) HttpReaderOption {
	return func(r *HttpReader) {
		r.connect = timeout
	}
}

// WithInsecureSkipVerify disables certificate verification. Lab use only.
func WithInsecureSkipVerify(skip bool) HttpReaderOption {
	return func(r *HttpReader) {
		r.insecure = skip
	}
}

// WithClient replaces the client entirely; transport options are ignored.
func WithClient(client *http.Client) HttpReaderOption {
	return func(r *HttpReader) {
		r.Client = client
		r.custom = client != nil
	}
}

// NewHttpReader creates a new HttpReader with the specified options.
func NewHttpReader(options ...HttpReaderOption) *HttpReader {
	r := &HttpReader{
		UserAgent:     HttpReaderUserAgent,
		totalTimeout:  defaults.HTTPClientTimeout,
		connect:       defaults.HTTPConnectTimeout,
		headerTimeout: defaults.HTTPResponseHeaderTimeout,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.UserAgent == "" {
		r.UserAgent = HttpReaderUserAgent
	}
	if !r.custom {
		r.Client = &http.Client{
			Timeout:   r.totalTimeout,
			Transport: newTransport(r.connect, r.headerTimeout, r.insecure),
		}
	}
	return r
}

func newTransport(connect, header time.Duration, insecure bool) *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		DialContext: (&net.Dialer{
			Timeout:   connect,
			KeepAlive: defaults.HTTPKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   defaults.HTTPTLSHandshakeTimeout,
		ResponseHeaderTimeout: header,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       defaults.HTTPIdleConnTimeout,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			//nolint:gosec // opt-in for lab sources with self-signed certificates
			InsecureSkipVerify: insecure,
		},
	}
}

// ReadWithContext fetches url and returns the body. Non-200 responses are
// errors.
func (r *HttpReader) ReadWithContext(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("url is empty")
	}
	if r.Client == nil {
		return nil, fmt.Errorf("http client is nil")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for url %s: %w", url, err)
	}
	req.Header.Set("User-Agent", r.UserAgent)

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed for url %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body from %s: %w", url, err)
	}
	return data, nil
}
