package resolve

import (
	"log/slog"

	"goldmap/internal/company"
	"goldmap/internal/logging"
)

// Resolved is reported after every entity.
type Resolved struct {
	Position int // 1-based within the current call
	Total    int
	Entity   company.Entity
	Mapping  company.Mapping
}

// Checkpointed is reported after every flush.
type Checkpointed struct {
	Processed int
	Total     int
	Tally     company.Tally
	Forced    bool // out-of-cycle flush on interruption
}

// Observer receives progress events from the engine.
type Observer interface {
	Resolved(Resolved)
	Checkpointed(Checkpointed)
}

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) Resolved(ev Resolved) {
	for _, obs := range o {
		if obs != nil {
			obs.Resolved(ev)
		}
	}
}

func (o Observers) Checkpointed(ev Checkpointed) {
	for _, obs := range o {
		if obs != nil {
			obs.Checkpointed(ev)
		}
	}
}

// LogObserver writes one log line per outcome and per flush.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver returns an observer that reports through logger.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logging.NewComponentLogger(logger, "resolve")}
}

func (l *LogObserver) Resolved(ev Resolved) {
	m := ev.Mapping
	attrs := []logging.Attr{
		logging.Int(logging.FieldCompanyID, m.CompanyID),
		logging.String("company_name", m.CompanyName),
		logging.Int("position", ev.Position),
		logging.Int("total", ev.Total),
		logging.String("match_method", string(m.Method)),
	}
	if m.Status == company.StatusUnmatched {
		l.logger.Warn("no match", logging.Args(append(attrs,
			logging.String(logging.FieldEventType, "company_unmatched"),
			logging.String("ticker", ev.Entity.TickerValue()))...)...)
		return
	}
	attrs = append(attrs,
		logging.String(logging.FieldEventType, "company_matched"),
		logging.String(logging.FieldExternalID, *m.ExternalID),
		logging.String("goldstock_name", *m.ExternalName),
		logging.String("match_status", string(m.Status)),
		logging.Float64("confidence", m.Confidence))
	l.logger.Info("match found", logging.Args(attrs...)...)
}

func (l *LogObserver) Checkpointed(ev Checkpointed) {
	l.logger.Info("resolution progress",
		logging.String(logging.FieldEventType, "resolve_progress"),
		logging.Int("processed", ev.Processed),
		logging.Int("total", ev.Total),
		logging.Int("matched", ev.Tally.Matched),
		logging.Int("manual", ev.Tally.Manual),
		logging.Int("unmatched", ev.Tally.Unmatched),
		logging.Bool("forced", ev.Forced))
}
