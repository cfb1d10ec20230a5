// Package handler is the thin, traced HTTP shim over the §6 read interface
// (spec's own framing: "the outward HTTP endpoint that serves
// already-computed context" is out of scope as a serving layer, but the
// contract itself must be concretely callable). It never writes; every
// route here is a pure read over internal/contextquery's validation and
// aggregation.
package handler

import (
	"context"
	"time"

	"socialcontext/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// ContextStore is the subset of eventstore.Store the read interface needs.
type ContextStore interface {
	QueryContextRecords(ctx context.Context, asset string, since, until interface{}, sources []domain.Source) ([]domain.ContextRecord, error)
	QueryQualityEvents(ctx context.Context, since, until interface{}) ([]domain.DataQualityEvent, error)
}

type Handler struct {
	tracer trace.Tracer
	store  ContextStore
}

func New(tracer trace.Tracer, store ContextStore) *Handler {
	return &Handler{tracer: tracer, store: store}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/context", h.GetContext)
}

// parseTime accepts RFC3339 timestamps, the wire format the read interface
// expects for t_since/t_until.
func parseTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339, v)
}
