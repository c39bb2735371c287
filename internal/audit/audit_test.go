package audit

import "testing"

func TestEventRoundTrip(t *testing.T) {
	e := NewEvent(KindScan, "CS101_H3_21_08", "STU1", "OUTSIDE_GEOFENCE", "")
	if e.ID == "" {
		t.Fatal("event must get an id")
	}
	if e.CreatedAt.IsZero() {
		t.Fatal("event must get a timestamp")
	}

	decoded, err := Decode(e.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.ID != e.ID || decoded.SessionID != e.SessionID || decoded.Outcome != e.Outcome {
		t.Errorf("roundtrip mismatch: %+v != %+v", decoded, e)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("garbage body should not decode")
	}
}
