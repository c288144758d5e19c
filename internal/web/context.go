package web

import (
	"context"
	"net/http"

	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/history"
	appmw "github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/web/middleware"
)

// WithRequestMetadata stores the client address and User-Agent for the run
// history entry.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return history.ContextWithClient(ctx, appmw.ClientIP(r), r.UserAgent())
}
