package attendance

import (
	"errors"
	"time"
)

// Status is the terminal-aware state of one attendance record. PRESENT and
// ABSENT are terminal; ABSENT is only ever set by the close-time sweep.
type Status string

const (
	StatusIncomplete Status = "INCOMPLETE"
	StatusPresent    Status = "PRESENT"
	StatusAbsent     Status = "ABSENT"
)

// Scan conflicts. Each one is a definitive, non-transient outcome.
var (
	ErrStartAlreadyMarked = errors.New("start attendance already marked")
	ErrStartNotMarked     = errors.New("start attendance not marked yet")
	ErrEndAlreadyMarked   = errors.New("end attendance already marked")
	ErrUnknownPhase       = errors.New("unknown scan phase")
)

// Record is the unit of presence proof, keyed (sessionID, studentID).
// Status is PRESENT exactly when both scan timestamps are set. DeviceID is
// informational only and never trusted for correctness.
type Record struct {
	SessionID     string     `json:"sessionId"`
	StudentID     string     `json:"studentId"`
	DeviceID      string     `json:"deviceId,omitempty"`
	StartScanTime *time.Time `json:"startScanTime,omitempty"`
	EndScanTime   *time.Time `json:"endScanTime,omitempty"`
	Status        Status     `json:"status"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
