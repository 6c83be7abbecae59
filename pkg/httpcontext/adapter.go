// Package httpcontext bridges fasthttp request contexts to stdlib
// context.Context values carried through the sync and auth use cases.
package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	appLogger "github.com/brainbow/syncd/pkg/logger"
)

// Key identifies request metadata stored on the derived context.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeyUserAgent  Key = "user_agent"
)

const defaultRequestTimeout = 5 * time.Second

// Adapter derives a deadline-bound stdlib context from a fasthttp request.
// Every derived context carries a request id, which the logger picks up, so
// a drain triggered over HTTP can be traced through the engine's log lines.
type Adapter struct {
	timeout time.Duration
}

func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Adapter{timeout: timeout}
}

// Attach builds the per-request context. The request id is taken from the
// X-Request-ID header when the caller supplied one and minted otherwise,
// and is always echoed back on the response.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)

	reqID := requestID(ctx)
	stdCtx = appLogger.ContextWithRequestID(stdCtx, reqID)
	ctx.Response.Header.Set("X-Request-ID", reqID)

	if addr := ctx.RemoteAddr(); addr != nil {
		stdCtx = context.WithValue(stdCtx, KeyRemoteAddr, addr.String())
	}
	if agent := string(ctx.Request.Header.UserAgent()); agent != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserAgent, agent)
	}

	return stdCtx, cancel
}

func requestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if header := strings.TrimSpace(string(ctx.Request.Header.Peek("X-Request-ID"))); header != "" {
		return header
	}
	return uuid.NewString()
}
