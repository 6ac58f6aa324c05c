// Package dnfrag reassembles an inbound stream of DeviceNet fragments
// into a complete message, generating the per-fragment acknowledgements
// explicit transfers require, and tolerates the duplicate and gap
// conditions the wire can produce.
package dnfrag

import "github.com/braboj/protocol-devicenet/dnerr"

// Reassembler accumulates fragments for one in-flight message. Explicit
// transfers ack each accepted fragment (including duplicates); I/O
// transfers never ack.
type Reassembler struct {
	explicit  bool
	prevCount int
	started   bool
	buffer    []byte
	done      bool
}

// NewReassembler creates a reassembler. explicit selects whether accepted
// fragments should be acknowledged (true) or not (false, for I/O
// transfers).
func NewReassembler(explicit bool) *Reassembler {
	return &Reassembler{explicit: explicit}
}

// Outcome reports what a reassembler wants the caller to do after
// feeding it one fragment.
type Outcome struct {
	// Ack is true when the caller must emit a fragment ack for Count.
	Ack   bool
	Count int
	// Done is true when the message is complete; Data holds the full
	// reassembled payload.
	Done bool
	Data []byte
}

// Feed processes one inbound fragment. final reports whether the fragment
// header's type is FINAL and count is its fragment count; data is the
// fragment's payload bytes.
//
// The reassembler exits when final is true or count is the
// single-fragment sentinel (0x3F). A gap in the count sequence (more than
// one past the last accepted count) is reported as dnerr.FragmentMissing;
// a repeat of the last accepted count is a duplicate and is tolerated --
// explicit transfers re-ack it, I/O transfers re-append its data per the
// protocol's duplicate-tolerance rule.
func (r *Reassembler) Feed(final bool, count int, data []byte) (Outcome, error) {
	if r.done {
		return Outcome{}, dnerr.NewFragmentResponseError("reassembly already complete")
	}

	if count == sentinelCount {
		r.buffer = append(r.buffer, data...)
		r.done = true
		out := Outcome{Done: true, Data: r.buffer}
		if r.explicit {
			out.Ack, out.Count = true, count
		}
		return out, nil
	}

	if !r.started {
		r.started = true
		r.prevCount = count
		r.buffer = append(r.buffer, data...)
		if final {
			r.done = true
			return r.finish(count), nil
		}
		return r.ackOnly(count), nil
	}

	delta := count - r.prevCount

	switch {
	case delta == 0:
		// Duplicate: for explicit, re-ack without re-appending; for I/O,
		// append again per the spec's documented tolerance.
		if !r.explicit {
			r.buffer = append(r.buffer, data...)
		}
		if final {
			r.done = true
			return r.finish(count), nil
		}
		return r.ackOnly(count), nil

	case delta == 1:
		r.buffer = append(r.buffer, data...)
		r.prevCount = count
		if final {
			r.done = true
			return r.finish(count), nil
		}
		return r.ackOnly(count), nil

	default:
		return Outcome{}, dnerr.NewFragmentMissing(r.prevCount+1, count)
	}
}

const sentinelCount = 0x3F

func (r *Reassembler) ackOnly(count int) Outcome {
	if !r.explicit {
		return Outcome{}
	}
	return Outcome{Ack: true, Count: count}
}

func (r *Reassembler) finish(count int) Outcome {
	out := Outcome{Done: true, Data: r.buffer}
	if r.explicit {
		out.Ack, out.Count = true, count
	}
	return out
}
