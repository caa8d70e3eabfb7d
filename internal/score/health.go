package score

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/gazetteer/internal/model"
	"github.com/ppiankov/gazetteer/internal/pipeline"
)

// Severity ranks a parse health signal
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Signal describes one bulletin whose parse looks unhealthy
type Signal struct {
	Document    model.DocumentID
	Severity    Severity
	Description string
	Data        map[string]interface{}
}

// Report summarises the parse health of a run
type Report struct {
	Documents   int
	Records     int
	Failures    int
	FailureRate float64 // failures / (records + failures)
	Signals     []Signal
	// SkipCandidates are bulletins whose failure rate is critical. Layouts
	// that break line-based extraction usually show up here first.
	SkipCandidates []model.DocumentID
}

// Scorer grades per-bulletin failure rates
type Scorer struct {
	warningRate  float64
	criticalRate float64
}

// NewScorer creates a scorer with the default thresholds: a bulletin losing
// 5% of its lines is a warning, 25% is critical
func NewScorer() *Scorer {
	return &Scorer{warningRate: 0.05, criticalRate: 0.25}
}

// WithThresholds overrides the warning and critical failure rates
func (s *Scorer) WithThresholds(warning, critical float64) *Scorer {
	s.warningRate = warning
	s.criticalRate = critical
	return s
}

// Assess grades every parsed bulletin
func (s *Scorer) Assess(docs []pipeline.DocumentResult) Report {
	var report Report
	report.Documents = len(docs)

	for _, doc := range docs {
		records := len(doc.Incorporations) + len(doc.NameChanges)
		report.Records += records
		report.Failures += doc.Failures

		if signal, ok := s.grade(doc.ID, records, doc.Failures); ok {
			report.Signals = append(report.Signals, signal)
			if signal.Severity == SeverityCritical && doc.Failures > 0 {
				report.SkipCandidates = append(report.SkipCandidates, doc.ID)
			}
		}
		if len(doc.Unterminated) > 0 {
			report.Signals = append(report.Signals, Signal{
				Document:    doc.ID,
				Severity:    SeverityWarning,
				Description: fmt.Sprintf("Section end header missing, records discarded: %s", strings.Join(doc.Unterminated, ", ")),
				Data:        map[string]interface{}{"sections": doc.Unterminated},
			})
		}
	}

	if total := report.Records + report.Failures; total > 0 {
		report.FailureRate = float64(report.Failures) / float64(total)
	}

	sort.SliceStable(report.Signals, func(i, j int) bool {
		return report.Signals[i].Severity.rank() > report.Signals[j].Severity.rank()
	})

	return report
}

// grade returns the signal for one bulletin, if any
func (s *Scorer) grade(id model.DocumentID, records, failures int) (Signal, bool) {
	if records == 0 && failures == 0 {
		return Signal{
			Document:    id,
			Severity:    SeverityInfo,
			Description: "No records extracted; section headers may be missing",
			Data:        map[string]interface{}{"records": 0, "failures": 0},
		}, true
	}

	rate := float64(failures) / float64(records+failures)
	var severity Severity
	switch {
	case rate >= s.criticalRate:
		severity = SeverityCritical
	case rate >= s.warningRate:
		severity = SeverityWarning
	default:
		return Signal{}, false
	}

	return Signal{
		Document:    id,
		Severity:    severity,
		Description: fmt.Sprintf("%d of %d record lines dropped (%.0f%%)", failures, records+failures, rate*100),
		Data: map[string]interface{}{
			"records":  records,
			"failures": failures,
			"rate":     rate,
		},
	}, true
}
