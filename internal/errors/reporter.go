package errors

import (
	"log"
)

// Severity grades a reported error for the downstream error sink.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ReportContext identifies where a reported error came from.
type ReportContext struct {
	Operation string
	Component string
	FilePath  string
}

// Reporter is the outbound error-reporting collaborator. The core only
// calls into it; rendering, persistence and telemetry live elsewhere.
type Reporter interface {
	Report(err error, ctx ReportContext, severity Severity)
}

// LogReporter is the default Reporter, writing to the standard logger.
type LogReporter struct{}

// NewLogReporter creates a log-backed error reporter
func NewLogReporter() *LogReporter {
	return &LogReporter{}
}

// Report implements Reporter
func (r *LogReporter) Report(err error, ctx ReportContext, severity Severity) {
	if err == nil {
		return
	}
	if ctx.FilePath != "" {
		log.Printf("[%s] %s/%s (%s): %v", severity, ctx.Component, ctx.Operation, ctx.FilePath, err)
		return
	}
	log.Printf("[%s] %s/%s: %v", severity, ctx.Component, ctx.Operation, err)
}

// NopReporter discards all reports. Used in tests.
type NopReporter struct{}

// Report implements Reporter
func (NopReporter) Report(error, ReportContext, Severity) {}
