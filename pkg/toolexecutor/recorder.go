package toolexecutor

import "time"

// Recorder receives invocation and consent outcomes for metrics.
type Recorder interface {
	RecordInvocation(toolName, outcome string, duration time.Duration)
	RecordConsent(decision Decision, reason ConsentReason)
	RecordSuperseded()
}

type nopRecorder struct{}

func (nopRecorder) RecordInvocation(string, string, time.Duration) {}
func (nopRecorder) RecordConsent(Decision, ConsentReason)          {}
func (nopRecorder) RecordSuperseded()                              {}
