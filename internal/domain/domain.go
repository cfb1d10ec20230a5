// Package domain holds the plain data types shared across the ingestion,
// enrichment, and data-quality subsystems. Nothing in this package performs
// I/O; it exists so every other package can agree on shapes.
package domain

import "time"

// Source identifies which upstream platform a piece of content came from.
type Source string

const (
	SourceTwitter  Source = "twitter"
	SourceReddit   Source = "reddit"
	SourceTelegram Source = "telegram"
)

// SourceReliability is a fixed constant bound to each source kind, never
// learned or adjusted at runtime.
var SourceReliability = map[Source]float64{
	SourceTwitter:  0.5,
	SourceReddit:   0.7,
	SourceTelegram: 0.3,
}

// Asset is a tracked crypto symbol with an associated keyword list. Created,
// mutated, and destroyed only by the operator; the registry only reloads it.
type Asset struct {
	Symbol    string
	Name      string
	Keywords  []string
	Active    bool
	Priority  int
	FirstSeen time.Time
}

// SourceEntryKind enumerates the shapes a whitelisted source entry can take.
type SourceEntryKind string

const (
	EntryKindAccount   SourceEntryKind = "account"
	EntryKindList      SourceEntryKind = "list"
	EntryKindQuery     SourceEntryKind = "query"
	EntryKindSubreddit SourceEntryKind = "subreddit"
	EntryKindChannel   SourceEntryKind = "channel"
	EntryKindGroup     SourceEntryKind = "group"
)

// SourceEntryRole is an operator-assigned label describing why an entry is
// tracked; it carries no behavior of its own.
type SourceEntryRole string

const (
	RoleNews       SourceEntryRole = "news"
	RoleMarket     SourceEntryRole = "market"
	RoleAnalyst    SourceEntryRole = "analyst"
	RoleCommunity  SourceEntryRole = "community"
	RolePanic      SourceEntryRole = "panic"
	RoleDiscussion SourceEntryRole = "discussion"
)

// SourceEntry is a single whitelisted handle, subreddit, or chat within a
// source. A disabled entry must be treated identically to an absent one.
type SourceEntry struct {
	ID          string
	Source      Source
	Kind        SourceEntryKind
	Handle      string
	AssetSymbol string
	Role        SourceEntryRole
	Enabled     bool
	PerRunCap   int
	Priority    int
}

// DropReason enumerates every reason an ingestion worker or the Time-Sync
// Guard can discard a candidate event before it reaches the pipeline.
// Reasons are counted, never surfaced as Go errors.
type DropReason string

const (
	DropNotWhitelisted       DropReason = "not_whitelisted"
	DropSourceDisabled       DropReason = "source_disabled"
	DropGlobalRateExceeded   DropReason = "global_rate_exceeded"
	DropSourceRateExceeded   DropReason = "source_rate_exceeded"
	DropEmptyText            DropReason = "empty_text"
	DropNoAssetKeyword       DropReason = "no_asset_keyword"
	DropTimestampMissing     DropReason = "timestamp_missing"
	DropRetweetNoOriginal    DropReason = "retweet_no_original"
	DropProtectedAccount     DropReason = "protected_account"
	DropPromoted             DropReason = "promoted"
	DropZeroEngagement       DropReason = "zero_engagement"
	DropMissingFields        DropReason = "missing_fields"
	DropAuthorDeleted        DropReason = "author_deleted"
	DropNonPositiveScore     DropReason = "non_positive_score"
	DropBodyRemoved          DropReason = "body_removed"
	DropForwardUnknownSource DropReason = "forward_unknown_source"
	DropBotAuthored          DropReason = "bot_authored"

	DropFuture     DropReason = "future"
	DropLate       DropReason = "late"
	DropOutOfOrder DropReason = "out_of_order"
	DropDuplicate  DropReason = "duplicate"
	DropMalformed  DropReason = "malformed"
)

// CandidateEvent is what an ingestion worker hands to the Time-Sync Guard:
// already filtered, metric-enriched, but not yet accepted into storage.
type CandidateEvent struct {
	Source            Source
	SourceReliability float64
	Asset             string
	EventTime         time.Time
	IngestTime        time.Time
	Text              string
	OriginalText      string
	EngagementWeight  *float64
	AuthorWeight      *float64
	Velocity          float64
	ManipulationFlag  bool
	SourceEntryID     string
	SourceItemID      string
}

// RawEvent is the first of the four append-only event rows.
type RawEvent struct {
	ID                string
	Source            Source
	SourceReliability float64
	Asset             string
	EventTime         time.Time
	IngestTime        time.Time
	Text              string
	EngagementWeight  *float64
	AuthorWeight      *float64
	Velocity          float64
	ManipulationFlag  bool
	Fingerprint       string
	Dropped           bool
}

// SentimentLabel is the signed trinary classification produced by the rule
// engine (or the LLM fallback, only when the rule engine had zero matches).
type SentimentLabel int

const (
	LabelBearish SentimentLabel = -1
	LabelNeutral SentimentLabel = 0
	LabelBullish SentimentLabel = 1
)

// LexiconCounts is the per-category match tally that drives the sentiment
// score; never adjusted after counting.
type LexiconCounts struct {
	Bullish int
	Bearish int
	Fear    int
	Greed   int
}

// Total returns the sum of all four category counts.
func (c LexiconCounts) Total() int {
	return c.Bullish + c.Bearish + c.Fear + c.Greed
}

// SentimentEvent is the second of the four event rows, always keyed to the
// raw event that produced it.
type SentimentEvent struct {
	ID              string
	RawEventID      string
	EventTime       time.Time
	Counts          LexiconCounts
	RawScore        float64
	NormalizedScore float64
	RuleLabel       *SentimentLabel
	LLMUsed         bool
	LLMLabel        *SentimentLabel
	LLMConfidence   *float64
	FinalLabel      SentimentLabel
	FinalConfidence float64
}

// FearGreedZone buckets an externally supplied fear & greed index value.
type FearGreedZone string

const (
	ZoneUnknown      FearGreedZone = "unknown"
	ZoneExtremeFear  FearGreedZone = "extreme_fear"
	ZoneNormal       FearGreedZone = "normal"
	ZoneExtremeGreed FearGreedZone = "extreme_greed"
)

// SentimentReliability flags low-confidence sentiment so downstream
// consumers can discount it without re-deriving confidence thresholds.
type SentimentReliability string

const (
	ReliabilityLow    SentimentReliability = "low"
	ReliabilityNormal SentimentReliability = "normal"
)

// RiskIndicatorEvent is the third of the four event rows.
type RiskIndicatorEvent struct {
	ID                   string
	RawEventID           string
	EventTime            time.Time
	SentimentLabel       SentimentLabel
	SentimentConfidence  float64
	SentimentReliability SentimentReliability
	SocialOverheat       bool
	PanicRisk            bool
	FOMORisk             bool
	FearGreedIndex       *int
	FearGreedZone        FearGreedZone
}

// AvailabilityStatus is the Data-Quality Monitor's per-source liveness rule.
type AvailabilityStatus string

const (
	AvailabilityOK       AvailabilityStatus = "ok"
	AvailabilityDegraded AvailabilityStatus = "degraded"
	AvailabilityDown     AvailabilityStatus = "down"
)

// TimeIntegrityStatus reflects the Time-Sync Guard's dropped-late rate.
type TimeIntegrityStatus string

const (
	TimeIntegrityOK       TimeIntegrityStatus = "ok"
	TimeIntegrityUnstable TimeIntegrityStatus = "unstable"
	TimeIntegrityCritical TimeIntegrityStatus = "critical"
)

// VolumeStatus compares the current window's event count against a baseline.
type VolumeStatus string

const (
	VolumeNormal         VolumeStatus = "normal"
	VolumeAbnormallyLow  VolumeStatus = "abnormally_low"
	VolumeAbnormallyHigh VolumeStatus = "abnormally_high"
)

// SourceBalanceStatus flags a single source dominating the event mix.
type SourceBalanceStatus string

const (
	SourceBalanceNormal     SourceBalanceStatus = "normal"
	SourceBalanceImbalanced SourceBalanceStatus = "imbalanced"
)

// AnomalyStatus reflects how often risk flags are firing across the window.
type AnomalyStatus string

const (
	AnomalyNormal     AnomalyStatus = "normal"
	AnomalyPersistent AnomalyStatus = "persistent"
)

// OverallQuality is the single aggregated health status of the pipeline.
type OverallQuality string

const (
	QualityHealthy  OverallQuality = "healthy"
	QualityDegraded OverallQuality = "degraded"
	QualityCritical OverallQuality = "critical"
)

// DataQualityEvent is the fourth of the four event rows, emitted
// periodically rather than per-ingested-event.
type DataQualityEvent struct {
	ID            string
	EventTime     time.Time
	Overall       OverallQuality
	Availability  AvailabilityStatus
	TimeIntegrity TimeIntegrityStatus
	Volume        VolumeStatus
	SourceBalance SourceBalanceStatus
	AnomalyFreq   AnomalyStatus
	AnomalyScore  float64 // auxiliary isolation-forest score, diagnostic only
}

// AlertKind enumerates the eight advisory notifications the Alerter can
// send. None of them carry trading instructions.
type AlertKind string

const (
	AlertSocialOverheat       AlertKind = "SOCIAL_OVERHEAT"
	AlertPanicRisk            AlertKind = "PANIC_RISK"
	AlertFOMORisk             AlertKind = "FOMO_RISK"
	AlertExtremeMarketEmotion AlertKind = "EXTREME_MARKET_EMOTION"
	AlertDataQualityDegraded  AlertKind = "DATA_QUALITY_DEGRADED"
	AlertDataQualityCritical  AlertKind = "DATA_QUALITY_CRITICAL"
	AlertSourceDelay          AlertKind = "SOURCE_DELAY"
	AlertSourceDown           AlertKind = "SOURCE_DOWN"
)

// Alert is a single advisory notification candidate before dedup/rate-limit
// evaluation.
type Alert struct {
	Kind    AlertKind
	Asset   string
	Source  Source // only populated for SOURCE_DELAY / SOURCE_DOWN
	Time    time.Time
	Details string
}

// WorkerMetrics is what an ingestion worker's run_cycle returns to the
// scheduler: summary counters only, never individual errors.
type WorkerMetrics struct {
	Source        Source
	Fetched       int
	Accepted      int
	DroppedCounts map[DropReason]int
	Err           error
}

// GuardMetrics is what the Time-Sync Guard accumulates across a cycle.
type GuardMetrics struct {
	DroppedFuture     int
	DroppedLate       int
	DroppedOutOfOrder int
	DroppedDuplicate  int
	DroppedMalformed  int
	Passed            int
}

// Total returns the number of events the guard looked at during the cycle.
func (m GuardMetrics) Total() int {
	return m.DroppedFuture + m.DroppedLate + m.DroppedOutOfOrder +
		m.DroppedDuplicate + m.DroppedMalformed + m.Passed
}

// CursorState is one source loop's persisted progress, per spec §6's
// persistent-state contract: "last_event_time (UTC ISO-8601),
// last_processed_id (string), last_run_time". The scheduler never resets
// these silently; a failed cycle simply leaves them unchanged.
type CursorState struct {
	LastEventTime   time.Time `json:"last_event_time"`
	LastProcessedID string    `json:"last_processed_id"`
	LastRunTime     time.Time `json:"last_run_time"`
	LastSuccessTime time.Time `json:"last_success_time"`
}

// ContextRecord is one joined raw+sentiment+risk row as read back for the
// §6 read interface's aggregation — a flattened projection, not a stored
// shape, built by the Event Store's query side.
type ContextRecord struct {
	Source               Source
	SourceReliability     float64
	EventTime             time.Time
	SentimentLabel        SentimentLabel
	SentimentConfidence   float64
	SocialOverheat        bool
	PanicRisk             bool
	FOMORisk              bool
	FearGreedIndex        *int
	FearGreedZone         FearGreedZone
}

// AggregatedSentiment is the §6 read interface's sentiment field: the
// source-reliability-weighted majority label and the mean confidence
// across every record in the window.
type AggregatedSentiment struct {
	Label      SentimentLabel `json:"label"`
	Confidence float64        `json:"confidence"`
}

// AggregatedRiskIndicators is the §6 read interface's risk_indicators
// field: the logical OR of every boolean flag across records, and the
// most-recent record's scalar fear/greed fields.
type AggregatedRiskIndicators struct {
	SocialOverheat bool          `json:"social_overheat"`
	PanicRisk      bool          `json:"panic_risk"`
	FOMORisk       bool          `json:"fomo_risk"`
	FearGreedIndex *int          `json:"fear_greed_index"`
	FearGreedZone  FearGreedZone `json:"fear_greed_zone"`
}

// AggregatedDataQuality is the §6 read interface's data_quality field: the
// worst status per dimension across every quality event observed in the
// window.
type AggregatedDataQuality struct {
	Overall       OverallQuality      `json:"overall"`
	Availability  AvailabilityStatus  `json:"availability"`
	TimeIntegrity TimeIntegrityStatus `json:"time_integrity"`
	Volume        VolumeStatus        `json:"volume"`
	SourceBalance SourceBalanceStatus `json:"source_balance"`
	AnomalyFreq   AnomalyStatus       `json:"anomaly_frequency"`
}

// ContextWindow echoes the query's own bounds back to the caller.
type ContextWindow struct {
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
}

// ContextResult is the §6 read interface's full response shape: "an
// aggregated object with fields {sentiment {label, confidence},
// risk_indicators {...}, data_quality {...}, record_count, window}".
type ContextResult struct {
	Asset          string                   `json:"asset"`
	Sentiment      AggregatedSentiment      `json:"sentiment"`
	RiskIndicators AggregatedRiskIndicators `json:"risk_indicators"`
	DataQuality    AggregatedDataQuality    `json:"data_quality"`
	RecordCount    int                      `json:"record_count"`
	Window         ContextWindow            `json:"window"`
}

// ConversationMessage is one turn in the operator's Q&A advisor history
// (internal/advisor), persisted so multi-turn context survives restarts.
type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
