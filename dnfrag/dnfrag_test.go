package dnfrag

import (
	"bytes"
	"errors"
	"testing"

	"github.com/braboj/protocol-devicenet/dnerr"
)

func TestReassembleExplicitTwoFragments(t *testing.T) {
	r := NewReassembler(true)

	out, err := r.Feed(false, 0, []byte{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("Feed 0: %v", err)
	}
	if !out.Ack || out.Count != 0 || out.Done {
		t.Errorf("Feed 0 outcome = %+v", out)
	}

	out, err = r.Feed(true, 1, []byte{7, 8, 9, 10, 11, 12})
	if err != nil {
		t.Fatalf("Feed 1: %v", err)
	}
	if !out.Done || !out.Ack || out.Count != 1 {
		t.Errorf("Feed 1 outcome = %+v", out)
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if !bytes.Equal(out.Data, want) {
		t.Errorf("Data = % X, want % X", out.Data, want)
	}
}

func TestReassembleIONoAck(t *testing.T) {
	r := NewReassembler(false)

	out, err := r.Feed(false, 0, []byte{1, 2})
	if err != nil {
		t.Fatalf("Feed 0: %v", err)
	}
	if out.Ack {
		t.Error("I/O reassembly must not ack")
	}

	out, err = r.Feed(true, 1, []byte{3, 4})
	if err != nil {
		t.Fatalf("Feed 1: %v", err)
	}
	if !out.Done || out.Ack {
		t.Errorf("outcome = %+v", out)
	}
}

func TestReassembleDuplicateTolerated(t *testing.T) {
	r := NewReassembler(true)

	if _, err := r.Feed(false, 0, []byte{1, 2}); err != nil {
		t.Fatalf("Feed 0: %v", err)
	}

	// Duplicate of fragment 0: re-ack, no re-append for explicit.
	out, err := r.Feed(false, 0, []byte{1, 2})
	if err != nil {
		t.Fatalf("Feed duplicate: %v", err)
	}
	if !out.Ack || out.Count != 0 || out.Done {
		t.Errorf("duplicate outcome = %+v", out)
	}

	out, err = r.Feed(true, 1, []byte{3, 4})
	if err != nil {
		t.Fatalf("Feed 1: %v", err)
	}
	if !bytes.Equal(out.Data, []byte{1, 2, 3, 4}) {
		t.Errorf("Data after duplicate = % X", out.Data)
	}
}

func TestReassembleGapReported(t *testing.T) {
	r := NewReassembler(true)

	if _, err := r.Feed(false, 0, []byte{1, 2}); err != nil {
		t.Fatalf("Feed 0: %v", err)
	}

	_, err := r.Feed(false, 2, []byte{5, 6})
	var missing *dnerr.FragmentMissing
	if !errors.As(err, &missing) {
		t.Fatalf("expected FragmentMissing, got %v", err)
	}
	if missing.Expected != 1 || missing.Got != 2 {
		t.Errorf("missing = %+v", missing)
	}
}

func TestReassembleSingleFragmentShortcut(t *testing.T) {
	r := NewReassembler(true)

	out, err := r.Feed(false, sentinelCount, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Feed shortcut: %v", err)
	}
	if !out.Done || !out.Ack || out.Count != sentinelCount {
		t.Errorf("shortcut outcome = %+v", out)
	}
	if !bytes.Equal(out.Data, []byte{1, 2, 3}) {
		t.Errorf("Data = % X", out.Data)
	}
}
