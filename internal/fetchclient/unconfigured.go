package fetchclient

import (
	"context"

	"socialcontext/internal/domain"
	"socialcontext/internal/ingest"
)

// UnconfiguredTwitterFetcher is the default seam for ingest.TwitterFetcher:
// it answers every fetch with zero items and no error, so the scheduler's
// Twitter loop stays alive and harmless until an operator supplies a real
// credentialed client (the X API access tier and auth flow are an external
// collaborator per spec §1, out of scope for this module).
type UnconfiguredTwitterFetcher struct{}

func (UnconfiguredTwitterFetcher) FetchRecent(ctx context.Context, entry domain.SourceEntry, max int) ([]ingest.Tweet, error) {
	return nil, nil
}

// UnconfiguredTelegramFetcher is the equivalent seam for
// ingest.TelegramFetcher, pending a real MTProto user-session client wired
// against TELEGRAM_API_ID/TELEGRAM_API_HASH/TELEGRAM_PHONE.
type UnconfiguredTelegramFetcher struct{}

func (UnconfiguredTelegramFetcher) FetchRecent(ctx context.Context, entry domain.SourceEntry, max int) ([]ingest.TelegramMessage, error) {
	return nil, nil
}
