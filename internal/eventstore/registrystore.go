package eventstore

import (
	"context"
	"fmt"

	"socialcontext/internal/domain"
)

// ListSourceEntries implements sourceregistry.Store: the closed per-source
// whitelist of spec §4.2, loaded from the source_entries table an operator
// maintains out of band.
func (s *Store) ListSourceEntries(ctx context.Context, source domain.Source) ([]domain.SourceEntry, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.list_source_entries")
	defer span.End()

	rows, err := s.pool.Query(ctx, `
SELECT id, source, kind, handle, asset_symbol, role, enabled, per_run_cap, priority
FROM source_entries
WHERE source = $1
ORDER BY priority DESC, handle ASC`, source)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list source entries: %w", err)
	}
	defer rows.Close()

	var out []domain.SourceEntry
	for rows.Next() {
		var e domain.SourceEntry
		if err := rows.Scan(
			&e.ID, &e.Source, &e.Kind, &e.Handle, &e.AssetSymbol, &e.Role, &e.Enabled, &e.PerRunCap, &e.Priority,
		); err != nil {
			return nil, fmt.Errorf("eventstore: scan source entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventstore: rows: %w", err)
	}
	return out, nil
}

// ListAssets implements assetregistry.Store: the tracked-asset catalog of
// spec §4.1, loaded from the assets table.
func (s *Store) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.list_assets")
	defer span.End()

	rows, err := s.pool.Query(ctx, `
SELECT symbol, name, keywords, active, priority, first_seen
FROM assets
ORDER BY priority DESC, symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list assets: %w", err)
	}
	defer rows.Close()

	var out []domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.Symbol, &a.Name, &a.Keywords, &a.Active, &a.Priority, &a.FirstSeen); err != nil {
			return nil, fmt.Errorf("eventstore: scan asset: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventstore: rows: %w", err)
	}
	return out, nil
}
