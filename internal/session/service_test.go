package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Hariiikrishnan/qr-attendance-backend/internal/token"
)

type countingFinalizer struct {
	calls  int
	absent int
}

func (f *countingFinalizer) Finalize(_ context.Context, _ Session, _ time.Time) (int, error) {
	f.calls++
	return f.absent, nil
}

func newTestService(t *testing.T) (*Service, *countingFinalizer) {
	t.Helper()
	replay := token.NewMemoryReplay(2 * time.Minute)
	t.Cleanup(replay.Stop)
	svc := NewService(NewMemoryStore(), token.NewService("test-secret", replay), 50)
	fin := &countingFinalizer{absent: 3}
	svc.SetFinalizer(fin)
	return svc, fin
}

func classroomConfig() OpenConfig {
	return OpenConfig{
		FacultyID:  "FAC1",
		VenueKind:  VenueClassroom,
		ClassID:    "CLS1",
		ClassName:  "cs101",
		BlockName:  "A",
		HourNumber: 3,
		Lat:        10.7283,
		Lng:        79.0198,
	}
}

func TestOpenClassroom(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.Open(context.Background(), classroomConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if sess.State != StateStartActive {
		t.Errorf("state = %s, want START_ACTIVE", sess.State)
	}
	if !strings.HasPrefix(sess.SessionID, "CS101_H3_") {
		t.Errorf("session id %q should derive from class, hour and date", sess.SessionID)
	}
	if sess.RadiusM != 50 {
		t.Errorf("radius = %g, want default 50", sess.RadiusM)
	}
}

func TestOpenDuplicateNaturalKey(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Open(context.Background(), classroomConfig()); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := svc.Open(context.Background(), classroomConfig()); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate open: got %v, want ErrDuplicate", err)
	}
}

func TestOpenReopensAfterClose(t *testing.T) {
	svc, _ := newTestService(t)

	first, err := svc.Open(context.Background(), classroomConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, _, err := svc.Close(context.Background(), first.SessionID); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := svc.Open(context.Background(), classroomConfig())
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	if second.SessionID == first.SessionID {
		t.Error("reopened session must get a fresh id")
	}
	if second.NaturalKey != first.NaturalKey {
		t.Error("reopened session must keep the natural key")
	}
}

func TestOpenAuditorium(t *testing.T) {
	svc, _ := newTestService(t)

	cfg := OpenConfig{
		FacultyID: "FAC1",
		VenueKind: VenueAuditorium,
		VenueName: "Main Hall",
		Lat:       10.7283,
		Lng:       79.0198,
		RadiusM:   120,
	}
	sess, err := svc.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !strings.HasPrefix(sess.SessionID, "ADHOC_") {
		t.Errorf("ad-hoc session id %q should be generated", sess.SessionID)
	}
	// Two auditorium sessions never collide.
	if _, err := svc.Open(context.Background(), cfg); err != nil {
		t.Errorf("second auditorium open: %v", err)
	}
}

func TestOpenValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		name   string
		mutate func(*OpenConfig)
	}{
		{"no faculty", func(c *OpenConfig) { c.FacultyID = "" }},
		{"no class id", func(c *OpenConfig) { c.ClassID = "" }},
		{"no class name", func(c *OpenConfig) { c.ClassName = "" }},
		{"no block", func(c *OpenConfig) { c.BlockName = "" }},
		{"hour zero", func(c *OpenConfig) { c.HourNumber = 0 }},
		{"hour nine", func(c *OpenConfig) { c.HourNumber = 9 }},
		{"bad latitude", func(c *OpenConfig) { c.Lat = 91 }},
		{"bad kind", func(c *OpenConfig) { c.VenueKind = "HALLWAY" }},
	}
	for _, tc := range cases {
		cfg := classroomConfig()
		tc.mutate(&cfg)
		if _, err := svc.Open(context.Background(), cfg); !errors.Is(err, ErrMissingFields) {
			t.Errorf("%s: got %v, want ErrMissingFields", tc.name, err)
		}
	}
}

func TestAdvancePhase(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.Open(context.Background(), classroomConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	advanced, err := svc.AdvancePhase(context.Background(), sess.SessionID)
	if err != nil {
		t.Fatalf("AdvancePhase: %v", err)
	}
	if advanced.State != StateEndActive {
		t.Errorf("state = %s, want END_ACTIVE", advanced.State)
	}
	if advanced.AdvancedAt == nil {
		t.Error("advance must stamp the phase marker")
	}

	if _, err := svc.AdvancePhase(context.Background(), sess.SessionID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second advance: got %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.AdvancePhase(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown session: got %v, want ErrNotFound", err)
	}
}

func TestCloseRunsFinalizerOnce(t *testing.T) {
	svc, fin := newTestService(t)

	sess, err := svc.Open(context.Background(), classroomConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	closed, absent, err := svc.Close(context.Background(), sess.SessionID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.State != StateClosed {
		t.Errorf("state = %s, want CLOSED", closed.State)
	}
	if absent != 3 {
		t.Errorf("absentMarked = %d, want 3", absent)
	}
	if fin.calls != 1 {
		t.Fatalf("finalizer ran %d times, want 1", fin.calls)
	}

	if _, _, err := svc.Close(context.Background(), sess.SessionID); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("second close: got %v, want ErrAlreadyClosed", err)
	}
	if fin.calls != 1 {
		t.Errorf("finalizer re-ran on rejected close (%d calls)", fin.calls)
	}
}

func TestCloseFromEndActive(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.Open(context.Background(), classroomConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := svc.AdvancePhase(context.Background(), sess.SessionID); err != nil {
		t.Fatalf("AdvancePhase: %v", err)
	}
	if _, _, err := svc.Close(context.Background(), sess.SessionID); err != nil {
		t.Errorf("close from END_ACTIVE: %v", err)
	}
}

func TestIssueTokenPhaseScoping(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.Open(context.Background(), classroomConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	issued, err := svc.IssueToken(context.Background(), sess.SessionID, "", 120*time.Second)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if issued.Payload.Phase != token.PhaseStart {
		t.Errorf("phase = %s, want START while START_ACTIVE", issued.Payload.Phase)
	}
	if issued.Payload.Anchor.Radius != 50 {
		t.Errorf("anchor radius = %g, want 50", issued.Payload.Anchor.Radius)
	}

	// Requesting the wrong phase is rejected, not reinterpreted.
	if _, err := svc.IssueToken(context.Background(), sess.SessionID, token.PhaseEnd, time.Minute); !errors.Is(err, ErrPhaseMismatch) {
		t.Errorf("END request in start phase: got %v, want ErrPhaseMismatch", err)
	}

	if _, err := svc.AdvancePhase(context.Background(), sess.SessionID); err != nil {
		t.Fatalf("AdvancePhase: %v", err)
	}
	issued, err = svc.IssueToken(context.Background(), sess.SessionID, "", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken after advance: %v", err)
	}
	if issued.Payload.Phase != token.PhaseEnd {
		t.Errorf("phase = %s, want END after advance", issued.Payload.Phase)
	}
}

func TestIssueTokenErrors(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.Open(context.Background(), classroomConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := svc.IssueToken(context.Background(), sess.SessionID, "", 0); !errors.Is(err, ErrInvalidExpiry) {
		t.Errorf("zero expiry: got %v, want ErrInvalidExpiry", err)
	}
	if _, err := svc.IssueToken(context.Background(), "nope", "", time.Minute); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown session: got %v, want ErrNotFound", err)
	}

	if _, _, err := svc.Close(context.Background(), sess.SessionID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := svc.IssueToken(context.Background(), sess.SessionID, "", time.Minute); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("issue on closed session: got %v, want ErrAlreadyClosed", err)
	}
}
