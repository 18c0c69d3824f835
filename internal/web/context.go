package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/harmonizer/internal/core"
	mw "github.com/JonMunkholm/harmonizer/internal/web/middleware"
)

// withRequestMetadata adds the client IP and User-Agent recorded in
// conversion history.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, mw.ClientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
