package export

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/netops-tools/invsync/pkg/defaults"
	"github.com/netops-tools/invsync/pkg/errors"
	"github.com/netops-tools/invsync/pkg/serializer"
	"github.com/netops-tools/invsync/pkg/server"
	"github.com/netops-tools/invsync/pkg/snapshot"
)

// Response headers describing the served snapshot.
const (
	HeaderVersion = "X-Inventory-Version"
	HeaderDigest  = "X-Inventory-Digest"
	HeaderStale   = "X-Inventory-Restored"
)

// Getter returns the published snapshot. *snapshot.Cache implements it.
type Getter interface {
	Get() (*snapshot.Snapshot, error)
}

type renderKey struct {
	digest [32]byte
	style  Style
	format serializer.Format
}

// Handler serves rendered documents of the published snapshot. Encoded
// documents are cached by content digest, so unchanged refreshes keep
// hitting the cache.
type Handler struct {
	source Getter
	cache  *lru.Cache[renderKey, []byte]
}

// NewHandler returns a Handler reading from source.
func NewHandler(source Getter) (*Handler, error) {
	cache, err := lru.New[renderKey, []byte](defaults.RenderCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create render cache: %w", err)
	}
	return &Handler{source: source, cache: cache}, nil
}

// HandleInventory serves GET /v1/inventory.
//
// Query parameters:
//   - format: json (default) or yaml
//   - style: inventory (default) or ansible
//
// The ETag is derived from the content digest, so If-None-Match answers 304
// until the inventory content changes.
func (h *Handler) HandleInventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		server.MethodNotAllowed(w, r, http.MethodGet, http.MethodHead)
		return
	}

	style, format, err := parseQuery(r)
	if err != nil {
		server.WriteError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidRequest,
			"Invalid inventory query", false, map[string]any{"error": err.Error()})
		return
	}

	s, err := h.source.Get()
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Inventory is not available", nil)
		return
	}

	etag := fmt.Sprintf("%q", s.Digest.String()+"."+string(style)+"."+string(format))
	setSnapshotHeaders(w, s)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")

	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, err := h.encode(s, style, format)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to render inventory", nil)
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		slog.Warn("inventory write failed", "error", err)
	}
}

// HandleHost serves GET /v1/hosts/{name}: the hostvars of one host.
func (h *Handler) HandleHost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		server.MethodNotAllowed(w, r, http.MethodGet)
		return
	}

	s, err := h.source.Get()
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Inventory is not available", nil)
		return
	}

	name := r.PathValue("name")
	vars, ok := AnsibleHost(s, name)
	if !ok {
		server.WriteError(w, r, http.StatusNotFound, errors.ErrCodeNotFound,
			"Host not found", false, map[string]any{"host": name})
		return
	}

	setSnapshotHeaders(w, s)
	serializer.RespondJSON(w, http.StatusOK, vars)
}

func (h *Handler) encode(s *snapshot.Snapshot, style Style, format serializer.Format) ([]byte, error) {
	key := renderKey{digest: s.Digest, style: style, format: format}
	if data, ok := h.cache.Get(key); ok {
		renderCacheHits.Inc()
		return data, nil
	}
	renderCacheMisses.Inc()

	doc, err := RenderStyle(s, style)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "failed to render inventory", err)
	}
	data, err := Encode(doc, format)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to encode inventory", err)
	}
	h.cache.Add(key, data)
	return data, nil
}

func parseQuery(r *http.Request) (Style, serializer.Format, error) {
	q := r.URL.Query()
	style, err := ParseStyle(q.Get("style"))
	if err != nil {
		return "", "", err
	}
	format, err := serializer.ParseFormat(q.Get("format"))
	if err != nil {
		return "", "", err
	}
	if format != serializer.FormatJSON && format != serializer.FormatYAML {
		return "", "", fmt.Errorf("format %q is not served over HTTP, use json or yaml", format)
	}
	return style, format, nil
}

func setSnapshotHeaders(w http.ResponseWriter, s *snapshot.Snapshot) {
	w.Header().Set(HeaderVersion, strconv.FormatUint(s.Version, 10))
	w.Header().Set(HeaderDigest, s.Digest.String())
	if s.Restored {
		w.Header().Set(HeaderStale, "true")
	}
}

func contentType(format serializer.Format) string {
	if format == serializer.FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
