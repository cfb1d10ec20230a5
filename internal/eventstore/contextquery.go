package eventstore

import (
	"context"
	"fmt"

	"socialcontext/internal/domain"
)

// QueryContextRecords joins raw, sentiment, and risk rows for asset within
// [since, until], optionally filtered to sources, for the §6 read
// interface's aggregation stage.
func (s *Store) QueryContextRecords(ctx context.Context, asset string, since, until interface{}, sources []domain.Source) ([]domain.ContextRecord, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.query_context_records")
	defer span.End()

	sql := `
SELECT r.source, r.source_reliability, r.event_time,
       k.sentiment_label, k.sentiment_confidence,
       k.social_overheat, k.panic_risk, k.fomo_risk, k.fear_greed_index, k.fear_greed_zone
FROM raw_events r
JOIN risk_events k ON k.raw_event_id = r.id
WHERE r.asset = $1 AND r.event_time >= $2 AND r.event_time <= $3`
	args := []any{asset, since, until}

	if len(sources) > 0 {
		sql += " AND r.source = ANY($4)"
		args = append(args, sources)
	}
	sql += " ORDER BY r.event_time ASC"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("eventstore: query context records: %w", err)
	}
	defer rows.Close()

	var out []domain.ContextRecord
	for rows.Next() {
		var rec domain.ContextRecord
		if err := rows.Scan(
			&rec.Source, &rec.SourceReliability, &rec.EventTime,
			&rec.SentimentLabel, &rec.SentimentConfidence,
			&rec.SocialOverheat, &rec.PanicRisk, &rec.FOMORisk, &rec.FearGreedIndex, &rec.FearGreedZone,
		); err != nil {
			return nil, fmt.Errorf("eventstore: scan context record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventstore: rows: %w", err)
	}
	return out, nil
}

// QueryQualityEvents returns every quality event emitted within [since, until],
// for the §6 read interface's data_quality aggregation (worst status wins).
func (s *Store) QueryQualityEvents(ctx context.Context, since, until interface{}) ([]domain.DataQualityEvent, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.query_quality_events")
	defer span.End()

	rows, err := s.pool.Query(ctx, `
SELECT event_time, overall, availability, time_integrity, volume, source_balance, anomaly_frequency, anomaly_score
FROM quality_events
WHERE event_time >= $1 AND event_time <= $2
ORDER BY event_time ASC`, since, until)
	if err != nil {
		return nil, fmt.Errorf("eventstore: query quality events: %w", err)
	}
	defer rows.Close()

	var out []domain.DataQualityEvent
	for rows.Next() {
		var q domain.DataQualityEvent
		if err := rows.Scan(
			&q.EventTime, &q.Overall, &q.Availability, &q.TimeIntegrity, &q.Volume, &q.SourceBalance, &q.AnomalyFreq, &q.AnomalyScore,
		); err != nil {
			return nil, fmt.Errorf("eventstore: scan quality event: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventstore: rows: %w", err)
	}
	return out, nil
}
