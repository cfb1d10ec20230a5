// Package eventstore is the transactional sink for the Event Store of
// spec §3/§4.6: the four append-only event kinds (raw, sentiment, risk,
// quality), each with a UUID primary key and event_time column, with a
// unique fingerprint constraint on raw events providing dedup even under
// concurrent inserts. Grounded on the teacher's
// internal/marketintel/repository.go (pgx/v5 pool interface, pgx.Batch
// upserts, RETURNING-based scanning) and internal/repository/candle_repository.go.
package eventstore

import (
	"context"
	"fmt"

	"socialcontext/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

// pool is the subset of *pgxpool.Pool this store needs, mirrored from the
// teacher's internal/marketintel/repository.go so both packages can be
// backed by the same real pool type without a wider interface.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements enrich.Store and dqm.QualityStore against Postgres.
type Store struct {
	pool   pool
	tracer trace.Tracer
}

// New builds a Store over an existing pgxpool.Pool (or any type satisfying
// pool, e.g. a pgx.Tx in tests).
func New(pool pool, tracer trace.Tracer) *Store {
	return &Store{pool: pool, tracer: tracer}
}

// InsertEnrichedEvent writes the raw, sentiment, and risk rows for one
// accepted event inside a single transaction (spec §4.5: "writes all four
// event rows transactionally to storage in a fixed order" — the fourth,
// quality_events, is written separately and periodically by the DQM, not
// per ingested event). A fingerprint collision on the raw insert rolls the
// transaction back and reports inserted=false with no error, matching
// spec §4.5 Stage 1's "collision on insert aborts the event silently".
func (s *Store) InsertEnrichedEvent(ctx context.Context, raw domain.RawEvent, sentiment domain.SentimentEvent, risk domain.RiskIndicatorEvent) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.insert_enriched_event")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("eventstore: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var rawID string
	err = tx.QueryRow(ctx, `
INSERT INTO raw_events (
    source, source_reliability, asset, event_time, ingest_time,
    text, engagement_weight, author_weight, velocity, manipulation_flag, fingerprint
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (fingerprint) DO NOTHING
RETURNING id`,
		raw.Source, raw.SourceReliability, raw.Asset, raw.EventTime, raw.IngestTime,
		raw.Text, raw.EngagementWeight, raw.AuthorWeight, raw.Velocity, raw.ManipulationFlag, raw.Fingerprint,
	).Scan(&rawID)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("eventstore: insert raw event: %w", err)
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO sentiment_events (
    raw_event_id, event_time, bullish_count, bearish_count, fear_count, greed_count,
    raw_score, normalized_score, rule_label, llm_used, llm_label, llm_confidence,
    final_label, final_confidence
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rawID, sentiment.EventTime,
		sentiment.Counts.Bullish, sentiment.Counts.Bearish, sentiment.Counts.Fear, sentiment.Counts.Greed,
		sentiment.RawScore, sentiment.NormalizedScore, sentiment.RuleLabel,
		sentiment.LLMUsed, sentiment.LLMLabel, sentiment.LLMConfidence,
		sentiment.FinalLabel, sentiment.FinalConfidence,
	); err != nil {
		return false, fmt.Errorf("eventstore: insert sentiment event: %w", err)
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO risk_events (
    raw_event_id, event_time, sentiment_label, sentiment_confidence, sentiment_reliability,
    social_overheat, panic_risk, fomo_risk, fear_greed_index, fear_greed_zone
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rawID, risk.EventTime, risk.SentimentLabel, risk.SentimentConfidence, risk.SentimentReliability,
		risk.SocialOverheat, risk.PanicRisk, risk.FOMORisk, risk.FearGreedIndex, risk.FearGreedZone,
	); err != nil {
		return false, fmt.Errorf("eventstore: insert risk event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("eventstore: commit: %w", err)
	}
	return true, nil
}

// InsertQualityEvent writes a periodic Data Quality Event. Unlike the
// per-event raw/sentiment/risk rows, these are emitted on the DQM's own
// cadence (default 60s) rather than per ingested event.
func (s *Store) InsertQualityEvent(ctx context.Context, q domain.DataQualityEvent) error {
	ctx, span := s.tracer.Start(ctx, "eventstore.insert_quality_event")
	defer span.End()
	_, err := s.pool.Exec(ctx, `
INSERT INTO quality_events (
    event_time, overall, availability, time_integrity, volume, source_balance, anomaly_frequency, anomaly_score
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.EventTime, q.Overall, q.Availability, q.TimeIntegrity, q.Volume, q.SourceBalance, q.AnomalyFreq, q.AnomalyScore,
	)
	if err != nil {
		return fmt.Errorf("eventstore: insert quality event: %w", err)
	}
	return nil
}

// QueryRaw implements the read interface from spec §4.6: pure reads over
// raw events in ascending event_time order, optionally filtered by source.
// No writes occur from this path.
func (s *Store) QueryRaw(ctx context.Context, asset string, from, to interface{}, source *domain.Source) ([]domain.RawEvent, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.query_raw")
	defer span.End()

	sql := `
SELECT id, source, source_reliability, asset, event_time, ingest_time,
       text, engagement_weight, author_weight, velocity, manipulation_flag, fingerprint
FROM raw_events
WHERE asset = $1 AND event_time >= $2 AND event_time <= $3`
	args := []any{asset, from, to}
	if source != nil {
		sql += " AND source = $4"
		args = append(args, *source)
	}
	sql += " ORDER BY event_time ASC"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("eventstore: query raw: %w", err)
	}
	defer rows.Close()

	var out []domain.RawEvent
	for rows.Next() {
		var e domain.RawEvent
		if err := rows.Scan(
			&e.ID, &e.Source, &e.SourceReliability, &e.Asset, &e.EventTime, &e.IngestTime,
			&e.Text, &e.EngagementWeight, &e.AuthorWeight, &e.Velocity, &e.ManipulationFlag, &e.Fingerprint,
		); err != nil {
			return nil, fmt.Errorf("eventstore: scan raw row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventstore: rows: %w", err)
	}
	return out, nil
}
