package dnlink

import (
	"context"
	"time"

	"github.com/braboj/protocol-devicenet/candrv"
	"github.com/braboj/protocol-devicenet/canid"
	"github.com/braboj/protocol-devicenet/dnerr"
	"github.com/braboj/protocol-devicenet/dnfrag"
	"github.com/braboj/protocol-devicenet/dnpacket"
)

const maxIOFrameData = 8

// sendIOPayload transmits data on h as a single IO frame, or as an
// IOFragment sequence when it exceeds the 8-byte frame budget. The
// single-fragment shortcut is never used here, since any payload that
// needs fragmenting is longer than one IOFragment can carry.
func (n *Node) sendIOPayload(ctx context.Context, h dnpacket.Header, data []byte) error {
	if len(data) <= maxIOFrameData {
		io := dnpacket.IO{Header: h, Data: data}
		id, payload, err := io.ToFrame()
		if err != nil {
			return err
		}
		return n.send(ctx, candrv.Frame{ID: id, Data: payload}, "dnlink")
	}

	frags, err := dnpacket.SplitIO(h, data, false)
	if err != nil {
		return err
	}
	for _, frag := range frags {
		id, payload, berr := frag.ToFrame()
		if berr != nil {
			return berr
		}
		if serr := n.send(ctx, candrv.Frame{ID: id, Data: payload}, "dnlink"); serr != nil {
			return serr
		}
	}
	return nil
}

// recvIOPayload receives one logical I/O message on the CAN identifier h
// maps to. I/O frames carry no header byte of their own, so whether the
// channel is running fragmented is connection state, not something a
// single frame can announce -- the caller supplies it. Fragments are
// reassembled with no per-fragment acknowledgement, matching the
// protocol's I/O fragmentation rule.
func (n *Node) recvIOPayload(ctx context.Context, h dnpacket.Header, otherMAC int, timeout time.Duration, fragmented bool) ([]byte, error) {
	canIDValue, err := h.CANID()
	if err != nil {
		return nil, err
	}
	if lerr := n.bus.StartListen([]uint32{canIDValue}); lerr != nil {
		return nil, lerr
	}
	defer n.bus.StopListen()

	if !fragmented {
		f, rerr := n.recv(ctx, timeout, "dnlink")
		if rerr != nil {
			return nil, rerr
		}
		io, perr := dnpacket.ParseIO(f.ID, f.Data, otherMAC)
		if perr != nil {
			return nil, perr
		}
		return io.Data, nil
	}

	deadline := time.Now().Add(timeout)
	r := dnfrag.NewReassembler(false)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, dnerr.NewNoResponseError()
		}
		f, rerr := n.recv(ctx, remaining, "dnlink")
		if rerr != nil {
			return nil, rerr
		}
		frag, perr := dnpacket.ParseIOFragment(f.ID, f.Data, otherMAC)
		if perr != nil {
			continue
		}
		outcome, ferr := r.Feed(frag.FragType == dnpacket.FragFinal, frag.FragCount, frag.Data)
		if ferr != nil {
			return nil, ferr
		}
		if outcome.Done {
			return outcome.Data, nil
		}
	}
}

// PollWrite sends data as a poll command and returns the slave's
// immediate poll response.
func (n *Node) PollWrite(ctx context.Context, data []byte) ([]byte, error) {
	reqHeader := dnpacket.Header{Group: canid.Group2, MessageID: dnpacket.MsgPollCmd, SrcMAC: n.srcMAC, DstMAC: n.dstMAC}
	rspHeader := dnpacket.Header{Group: canid.Group1, MessageID: dnpacket.MsgPollRsp, SrcMAC: n.dstMAC, DstMAC: n.srcMAC}

	rspCANID, err := rspHeader.CANID()
	if err != nil {
		return nil, err
	}
	if lerr := n.bus.StartListen([]uint32{rspCANID}); lerr != nil {
		return nil, lerr
	}
	defer n.bus.StopListen()

	if serr := n.sendIOPayload(ctx, reqHeader, data); serr != nil {
		return nil, serr
	}
	f, rerr := n.recv(ctx, n.waitTime, "dnlink")
	if rerr != nil {
		return nil, rerr
	}
	io, perr := dnpacket.ParseIO(f.ID, f.Data, n.srcMAC)
	if perr != nil {
		return nil, perr
	}
	return io.Data, nil
}

// PollRead is an alias of PollWrite with an empty command payload, for
// slaves whose poll command carries no master-to-slave data.
func (n *Node) PollRead(ctx context.Context) ([]byte, error) {
	return n.PollWrite(ctx, nil)
}

// BitStrobeWrite broadcasts an 8-byte bitmap over the bit-strobe channel
// (addressed by this node's own MAC, shared by every slave allocated to
// it) and returns this slave's strobe response.
func (n *Node) BitStrobeWrite(ctx context.Context, bitmap [8]byte) ([]byte, error) {
	reqHeader := dnpacket.Header{Group: canid.Group2, MessageID: dnpacket.MsgBitstrobeCmd, SrcMAC: n.srcMAC, DstMAC: n.dstMAC}
	rspHeader := dnpacket.Header{Group: canid.Group1, MessageID: dnpacket.MsgBitstrobeRsp, SrcMAC: n.dstMAC, DstMAC: n.srcMAC}

	rspCANID, err := rspHeader.CANID()
	if err != nil {
		return nil, err
	}
	if lerr := n.bus.StartListen([]uint32{rspCANID}); lerr != nil {
		return nil, lerr
	}
	defer n.bus.StopListen()

	io := dnpacket.IO{Header: reqHeader, Data: bitmap[:]}
	id, payload, berr := io.ToFrame()
	if berr != nil {
		return nil, berr
	}
	if serr := n.send(ctx, candrv.Frame{ID: id, Data: payload}, "dnlink"); serr != nil {
		return nil, serr
	}

	f, rerr := n.recv(ctx, n.waitTime, "dnlink")
	if rerr != nil {
		return nil, rerr
	}
	rsp, perr := dnpacket.ParseIO(f.ID, f.Data, n.srcMAC)
	if perr != nil {
		return nil, perr
	}
	return rsp.Data, nil
}

// BitStrobeRead strobes with every bit clear, used when the caller only
// wants the slave's unsolicited status back.
func (n *Node) BitStrobeRead(ctx context.Context) ([]byte, error) {
	return n.BitStrobeWrite(ctx, [8]byte{})
}

// consumedSizeNeedsFragment reports whether the COS/CYCLIC connection's
// registered consumed size exceeds one frame, meaning inbound messages on
// that channel arrive as IOFragment sequences rather than plain IO frames.
func (n *Node) consumedSizeNeedsFragment() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, ok := n.connections[InstanceCosCyclic]; ok {
		return c.ConsumedSize > maxIOFrameData
	}
	return false
}

// connAckSuppressed reports whether the COS/CYCLIC connection table entry
// has acknowledge suppression enabled; an unallocated connection defaults
// to false (ack required).
func (n *Node) connAckSuppressed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, ok := n.connections[InstanceCosCyclic]; ok {
		return c.AckSuppression
	}
	return false
}

// CosWrite produces data to the slave over the COS/CYCLIC channel the
// master uses to send, then (unless the connection was allocated with
// acknowledge suppression) waits for the slave's acknowledge.
func (n *Node) CosWrite(ctx context.Context, data []byte) error {
	reqHeader := dnpacket.Header{Group: canid.Group2, MessageID: dnpacket.MsgPollCmd, SrcMAC: n.srcMAC, DstMAC: n.dstMAC}

	if n.connAckSuppressed() {
		return n.sendIOPayload(ctx, reqHeader, data)
	}

	ackHeader := dnpacket.Header{Group: canid.Group2, MessageID: dnpacket.MsgMasterAck, SrcMAC: n.dstMAC, DstMAC: n.srcMAC}
	ackCANID, err := ackHeader.CANID()
	if err != nil {
		return err
	}
	if lerr := n.bus.StartListen([]uint32{ackCANID}); lerr != nil {
		return lerr
	}
	defer n.bus.StopListen()

	if serr := n.sendIOPayload(ctx, reqHeader, data); serr != nil {
		return serr
	}

	_, rerr := n.recv(ctx, n.waitTime, "dnlink")
	return rerr
}

// CosRead blocks for one unsolicited change-of-state/cyclic message
// produced by the slave, reassembling it if fragmented, then acknowledges
// it unless the connection suppresses acknowledgement.
func (n *Node) CosRead(ctx context.Context) ([]byte, error) {
	reqHeader := dnpacket.Header{Group: canid.Group1, MessageID: dnpacket.MsgCosSlaveMessage, SrcMAC: n.dstMAC, DstMAC: n.srcMAC}

	data, err := n.recvIOPayload(ctx, reqHeader, n.srcMAC, n.waitTime, n.consumedSizeNeedsFragment())
	if err != nil {
		return nil, err
	}

	if n.connAckSuppressed() {
		return data, nil
	}

	ackHeader := dnpacket.Header{Group: canid.Group1, MessageID: dnpacket.MsgPollRsp, SrcMAC: n.srcMAC, DstMAC: n.dstMAC}
	io := dnpacket.IO{Header: ackHeader, Data: nil}
	id, payload, berr := io.ToFrame()
	if berr != nil {
		return nil, berr
	}
	if serr := n.send(ctx, candrv.Frame{ID: id, Data: payload}, "dnlink"); serr != nil {
		return nil, serr
	}

	return data, nil
}
