// Package telemetry provides the structured-logging helpers the engine's
// components share. Every component takes a logrus.FieldLogger rather than
// reaching for a package-level logger, the same injection discipline the
// teacher's controllers use (pkg/controller/operators reconcilers take a
// *logrus.Logger constructor argument).
package telemetry

import "github.com/sirupsen/logrus"

// NewNop returns a logger that discards output, for callers (tests, library
// consumers) that don't want the engine's internal logging.
func NewNop() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(nopWriter{})
	return l
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// RuleFields returns the field set every per-rule log line carries, so
// every component logs the same keys for the same concept.
func RuleFields(ruleID, ruleType string) logrus.Fields {
	return logrus.Fields{"ruleId": ruleID, "ruleType": ruleType}
}
