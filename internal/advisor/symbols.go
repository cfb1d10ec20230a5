package advisor

// AssetRegistry is the subset of internal/assetregistry.Registry the
// advisor needs to find which tracked assets an operator's question
// mentions.
type AssetRegistry interface {
	MatchAll(text string) []string
}

// ExtractSymbols scans the operator's message for mentions of tracked
// assets, using the same keyword registry the ingestion workers match
// candidate text against (internal/assetregistry).
func ExtractSymbols(text string, registry AssetRegistry) []string {
	if registry == nil {
		return nil
	}
	return registry.MatchAll(text)
}
