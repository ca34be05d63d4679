package tracker

import (
	"errors"
	"testing"
)

func TestApplyLineEdits_ReplaceSingleLine(t *testing.T) {
	t.Parallel()

	got, err := applyLineEdits([]byte("one\ntwo\nthree\n"), map[string]string{"2": "TWO\n"})
	if err != nil {
		t.Fatalf("applyLineEdits: %v", err)
	}

	want := "one\nTWO\nthree\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyLineEdits_ReplaceRange(t *testing.T) {
	t.Parallel()

	got, err := applyLineEdits([]byte("one\ntwo\nthree\nfour\n"), map[string]string{"2-3": "MIDDLE\n"})
	if err != nil {
		t.Fatalf("applyLineEdits: %v", err)
	}

	want := "one\nMIDDLE\nfour\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyLineEdits_InsertAfterLine(t *testing.T) {
	t.Parallel()

	got, err := applyLineEdits([]byte("one\ntwo\n"), map[string]string{"1i": "INSERTED\n"})
	if err != nil {
		t.Fatalf("applyLineEdits: %v", err)
	}

	want := "one\nINSERTED\ntwo\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyLineEdits_InsertAtBeginning(t *testing.T) {
	t.Parallel()

	got, err := applyLineEdits([]byte("one\ntwo\n"), map[string]string{"0i": "FIRST\n"})
	if err != nil {
		t.Fatalf("applyLineEdits: %v", err)
	}

	want := "FIRST\none\ntwo\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyLineEdits_Append(t *testing.T) {
	t.Parallel()

	got, err := applyLineEdits([]byte("one\n"), map[string]string{"a": "two\n"})
	if err != nil {
		t.Fatalf("applyLineEdits: %v", err)
	}

	want := "one\ntwo\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyLineEdits_OverlappingRangesConflict(t *testing.T) {
	t.Parallel()

	_, err := applyLineEdits([]byte("one\ntwo\nthree\n"), map[string]string{
		"1-2": "X\n",
		"2-3": "Y\n",
	})
	if !errors.Is(err, ErrConflictingEdit) {
		t.Fatalf("got %v, want ErrConflictingEdit", err)
	}
}

func TestApplyLineEdits_OutOfRangeSelectorRejected(t *testing.T) {
	t.Parallel()

	_, err := applyLineEdits([]byte("one\n"), map[string]string{"5": "x\n"})
	if !errors.Is(err, ErrInvalidSelector) {
		t.Fatalf("got %v, want ErrInvalidSelector", err)
	}
}

func TestApplyLineEdits_MultipleSelectorsUseOriginalNumbering(t *testing.T) {
	t.Parallel()

	// Both selectors address the *original* file, not a cumulatively
	// renumbered one: replacing line 1 must not shift what "line 3" means.
	got, err := applyLineEdits([]byte("one\ntwo\nthree\n"), map[string]string{
		"1": "ONE\n",
		"3": "THREE\n",
	})
	if err != nil {
		t.Fatalf("applyLineEdits: %v", err)
	}

	want := "ONE\ntwo\nTHREE\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
