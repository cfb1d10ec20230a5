package handler

import (
	"net/http"
	"strings"

	"socialcontext/internal/contextquery"
	"socialcontext/internal/domain"

	"github.com/gin-gonic/gin"
)

// GetContext godoc
// @Summary      Aggregated social context for an asset
// @Description  Returns sentiment, risk indicators, and data quality aggregated over a time window, per the read interface contract
// @Tags         context
// @Produce      json
// @Param        asset    query  string  true  "asset symbol, e.g. BTC"
// @Param        sources  query  string  true  "comma-separated subset of twitter,reddit,telegram"
// @Param        since    query  string  true  "RFC3339 window start"
// @Param        until    query  string  true  "RFC3339 window end"
// @Success      200  {object}  domain.ContextResult
// @Failure      400  {object}  map[string]string
// @Router       /api/context [get]
func (h *Handler) GetContext(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get_context")
	defer span.End()

	asset := strings.TrimSpace(c.Query("asset"))
	sinceRaw := c.Query("since")
	untilRaw := c.Query("until")
	sourcesRaw := c.Query("sources")

	since, err := parseTime(sinceRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since: " + err.Error()})
		return
	}
	until, err := parseTime(untilRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid until: " + err.Error()})
		return
	}

	var sources []domain.Source
	for _, s := range strings.Split(sourcesRaw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		sources = append(sources, domain.Source(s))
	}

	query, err := contextquery.Validate(asset, sources, since, until)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.store.QueryContextRecords(ctx, query.Asset, query.Since, query.Until, query.Sources)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query records"})
		return
	}
	quality, err := h.store.QueryQualityEvents(ctx, query.Since, query.Until)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query quality events"})
		return
	}

	c.JSON(http.StatusOK, contextquery.Aggregate(query, records, quality))
}
