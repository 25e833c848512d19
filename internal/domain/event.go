package domain

import "time"

// Stage names a milestone of an extraction attempt
type Stage string

const (
	StageNavigated           Stage = "navigated"
	StageReferenceSubmitted  Stage = "reference_submitted"
	StageConversionTriggered Stage = "conversion_triggered"
	StagePolling             Stage = "polling"
	StageWaiting             Stage = "waiting"
	StageRetrying            Stage = "retrying"
	StageCompleted           Stage = "completed"
	StageTimedOut            Stage = "timed_out"
	StageFailed              Stage = "failed"

	// StageDone marks the end of an attempt's event stream
	StageDone Stage = "done"
)

// IsTerminal reports whether the stage ends the state machine
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageTimedOut || s == StageFailed
}

// ExtractionEvent is one progress notification. Seq is strictly increasing
// within a stream.
type ExtractionEvent struct {
	Seq       uint64    `json:"seq"`
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message"`
	Time      time.Time `json:"time"`
	Percent   int       `json:"percent,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
}

// IsSentinel reports whether the event closes the stream
func (e ExtractionEvent) IsSentinel() bool {
	return e.Stage == StageDone
}
