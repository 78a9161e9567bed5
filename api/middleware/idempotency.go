package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/grovetrace/api/responses"
	pkgerrors "github.com/angelmondragon/grovetrace/pkg/errors"
	"github.com/angelmondragon/grovetrace/pkg/logger"
	pkgredis "github.com/angelmondragon/grovetrace/pkg/redis"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"

	defaultIdempotencyTTL = 24 * time.Hour
	// claimTTL bounds how long a crashed request can block its key.
	claimTTL = 2 * time.Minute
)

// idempotentRoute is matched against the chi route pattern, or the raw path
// when the middleware is mounted above the final router. Segments use
// path.Match syntax.
type idempotentRoute struct {
	method   string
	glob     string
	critical bool
}

var idempotentRoutes = []idempotentRoute{
	{method: http.MethodPost, glob: "/api/v1/plants"},
	{method: http.MethodPost, glob: "/api/v1/plant-entries"},
	{method: http.MethodPost, glob: "/api/v1/plant-entries/*/submit", critical: true},
	{method: http.MethodPost, glob: "/api/v1/plant-entries/*/cancel", critical: true},
	{method: http.MethodPost, glob: "/api/v1/items/*/issue", critical: true},
}

type idempotencyRecord struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	RequestHash string `json:"request_hash"`
}

type idempotencyGuard struct {
	store       pkgredis.IdempotencyStore
	criticalTTL time.Duration
	logg        *logger.Logger
}

// Idempotency replays stored responses for mutating plant routes. A key is
// claimed before the handler runs so concurrent retries cannot both commit.
// Only 2xx responses are kept; anything else releases the key so the caller
// can retry once the cause is fixed. criticalTTL applies to routes that move
// plants or stock.
func Idempotency(store pkgredis.IdempotencyStore, criticalTTL time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if criticalTTL <= 0 {
		criticalTTL = defaultIdempotencyTTL
	}
	g := &idempotencyGuard{store: store, criticalTTL: criticalTTL, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, ok := matchRule(r)
			if !ok || g.store == nil {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(w, r, next, route)
		})
	}
}

func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler, route idempotentRoute) {
	ctx := r.Context()
	clientKey := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if clientKey == "" {
		g.fail(w, r, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		g.fail(w, r, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	hash := hashBody(body)
	key := g.store.IdempotencyKey(r.Method+"|"+r.URL.Path, clientKey)

	claimed, err := g.put(ctx, key, idempotencyRecord{Pending: true, RequestHash: hash}, claimTTL)
	if err != nil {
		g.fail(w, r, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
		return
	}
	if !claimed {
		g.replay(w, r, key, hash)
		return
	}

	capture := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(capture, r)

	// The request context may already be canceled once the client got its
	// response; the record must still be written.
	storeCtx := context.WithoutCancel(ctx)
	if err := g.store.Del(storeCtx, key); err != nil {
		g.logError(ctx, "release idempotency claim", err)
		return
	}
	status := capture.statusCode()
	if status < 200 || status >= 300 {
		return
	}

	ttl := defaultIdempotencyTTL
	if route.critical {
		ttl = g.criticalTTL
	}
	record := idempotencyRecord{
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
		RequestHash: hash,
	}
	if _, err := g.put(storeCtx, key, record, ttl); err != nil {
		g.logError(ctx, "persist idempotency record", err)
	}
}

func (g *idempotencyGuard) replay(w http.ResponseWriter, r *http.Request, key, hash string) {
	raw, err := g.store.Get(r.Context(), key)
	switch {
	case errors.Is(err, redis.Nil):
		g.fail(w, r, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
		return
	case err != nil:
		g.fail(w, r, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		g.fail(w, r, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != hash:
		g.fail(w, r, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case record.Pending:
		g.fail(w, r, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
	default:
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(record.Status)
		_, _ = w.Write(record.Body)
	}
}

func (g *idempotencyGuard) put(ctx context.Context, key string, record idempotencyRecord, ttl time.Duration) (bool, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, string(payload), ttl)
}

func (g *idempotencyGuard) fail(w http.ResponseWriter, r *http.Request, err error) {
	responses.WriteError(r.Context(), g.logg, w, err)
}

func (g *idempotencyGuard) logError(ctx context.Context, msg string, err error) {
	if g.logg != nil {
		g.logg.Error(ctx, msg, err)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// matchRule prefers the chi route pattern. Middleware mounted on a parent
// router only sees a partial pattern, so the raw path is tried next.
func matchRule(r *http.Request) (idempotentRoute, bool) {
	if r == nil {
		return idempotentRoute{}, false
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if route, ok := findRoute(r.Method, rc.RoutePattern()); ok {
			return route, true
		}
	}
	return findRoute(r.Method, r.URL.Path)
}

func findRoute(method, target string) (idempotentRoute, bool) {
	if target == "" {
		return idempotentRoute{}, false
	}
	target = strings.TrimSuffix(target, "/")
	for _, route := range idempotentRoutes {
		if route.method != method {
			continue
		}
		if ok, _ := path.Match(route.glob, target); ok {
			return route, true
		}
	}
	return idempotentRoute{}, false
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
