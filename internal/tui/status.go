package tui

import (
	"context"
	"fmt"
	"time"

	"socialcontext/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
)

// StatusProvider is the subset of internal/eventstore.Store the console
// needs to render the DQM/scheduler health panel, narrowed for
// testability.
type StatusProvider interface {
	QueryQualityEvents(ctx context.Context, since, until interface{}) ([]domain.DataQualityEvent, error)
}

// AlertCounters exposes internal/alerter.Alerter's lifetime counters
// without handing the console the ability to send or evaluate alerts.
type AlertCounters interface {
	Metrics() AlertMetricsSnapshot
}

// AlertMetricsSnapshot mirrors internal/alerter.Metrics's shape so this
// package doesn't need to import internal/alerter just for one struct.
type AlertMetricsSnapshot struct {
	Sent       int
	Suppressed int
	Failed     int
}

// statusWindow is how far back the panel looks for the latest emitted
// quality event; the DQM loop's default poll interval is 60 seconds
// (spec §4.9), so a 15 minute window comfortably covers missed ticks.
const statusWindow = 15 * time.Minute

// statusTickMsg triggers a periodic status refresh independent of the
// chat's request/response cycle.
type statusTickMsg struct{}

const statusRefreshInterval = 30 * time.Second

// scheduleStatusTick fires statusTickMsg on a fixed cadence, independent
// of the chat's own request/response cycle.
func scheduleStatusTick() tea.Cmd {
	return tea.Tick(statusRefreshInterval, func(time.Time) tea.Msg { return statusTickMsg{} })
}

// statusResultMsg carries a refreshed snapshot back into Update.
type statusResultMsg struct {
	quality *domain.DataQualityEvent
	alerts  AlertMetricsSnapshot
	err     error
}

func (m Model) refreshStatus() tea.Cmd {
	if m.svc.Status == nil {
		return nil
	}
	status := m.svc.Status
	alerts := m.svc.Alerts
	return func() tea.Msg {
		until := time.Now().UTC()
		since := until.Add(-statusWindow)
		events, err := status.QueryQualityEvents(context.Background(), since, until)
		if err != nil {
			return statusResultMsg{err: err}
		}
		var latest *domain.DataQualityEvent
		if len(events) > 0 {
			latest = &events[len(events)-1]
		}
		var snap AlertMetricsSnapshot
		if alerts != nil {
			snap = alerts.Metrics()
		}
		return statusResultMsg{quality: latest, alerts: snap}
	}
}

// renderStatus formats the header's one-line health summary.
func renderStatus(q *domain.DataQualityEvent, alerts AlertMetricsSnapshot) string {
	if q == nil {
		return "dqm: no recent quality event"
	}
	return fmt.Sprintf("dqm: %s (avail=%s time=%s volume=%s balance=%s anomaly=%s) | alerts sent=%d suppressed=%d failed=%d",
		q.Overall, q.Availability, q.TimeIntegrity, q.Volume, q.SourceBalance, q.AnomalyFreq,
		alerts.Sent, alerts.Suppressed, alerts.Failed)
}
