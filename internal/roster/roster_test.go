package roster

import (
	"context"
	"errors"
	"testing"
)

func sampleStudents() []Student {
	return []Student{
		{StudentID: "STU1", Name: "Alice"},
		{StudentID: "STU2", Name: "Bob"},
	}
}

func TestAddClassCreates(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	res, err := svc.AddClass(ctx, "cs101", "FAC1", "Prof X", sampleStudents())
	if err != nil {
		t.Fatalf("AddClass: %v", err)
	}
	if res.Merged {
		t.Error("new class reported as merged")
	}

	cls, students, err := svc.ClassDetail(ctx, res.ClassID)
	if err != nil {
		t.Fatalf("ClassDetail: %v", err)
	}
	if cls.ClassName != "CS101" {
		t.Errorf("class name = %q, want uppercased CS101", cls.ClassName)
	}
	if len(students) != 2 {
		t.Errorf("roster size = %d, want 2", len(students))
	}
}

func TestAddClassMergesFaculty(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	first, err := svc.AddClass(ctx, "CS101", "FAC1", "Prof X", sampleStudents())
	if err != nil {
		t.Fatalf("AddClass: %v", err)
	}

	// Same name, different faculty: merge, no roster required.
	second, err := svc.AddClass(ctx, "cs101", "FAC2", "Prof Y", nil)
	if err != nil {
		t.Fatalf("merge AddClass: %v", err)
	}
	if !second.Merged || second.ClassID != first.ClassID {
		t.Errorf("merge result = %+v, want Merged into %s", second, first.ClassID)
	}

	for _, fac := range []string{"FAC1", "FAC2"} {
		classes, err := svc.ClassesByFaculty(ctx, fac)
		if err != nil {
			t.Fatalf("ClassesByFaculty(%s): %v", fac, err)
		}
		if len(classes) != 1 {
			t.Errorf("%s sees %d classes, want 1", fac, len(classes))
		}
	}

	// Re-merging the same faculty member is a no-op.
	if _, err := svc.AddClass(ctx, "CS101", "FAC1", "Prof X", nil); err != nil {
		t.Errorf("repeat merge: %v", err)
	}
}

func TestAddClassValidation(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.AddClass(ctx, "", "FAC1", "Prof X", sampleStudents()); !errors.Is(err, ErrMissingFields) {
		t.Errorf("empty name: got %v, want ErrMissingFields", err)
	}
	if _, err := svc.AddClass(ctx, "CS101", "FAC1", "Prof X", nil); !errors.Is(err, ErrEmptyRoster) {
		t.Errorf("new class without roster: got %v, want ErrEmptyRoster", err)
	}
}

func TestStudentIDs(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	res, err := svc.AddClass(ctx, "CS101", "FAC1", "Prof X", sampleStudents())
	if err != nil {
		t.Fatalf("AddClass: %v", err)
	}

	ids, err := svc.StudentIDs(ctx, res.ClassID)
	if err != nil {
		t.Fatalf("StudentIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("got %d ids, want 2", len(ids))
	}

	// Unknown class resolves to an empty roster, not an error: the finalizer
	// still sweeps incomplete records for sessions without a stored class.
	ids, err = svc.StudentIDs(ctx, "CLS_UNKNOWN")
	if err != nil {
		t.Errorf("unknown class: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("unknown class returned %d ids, want 0", len(ids))
	}
}
