// Package dnlink orchestrates explicit service request/response exchanges
// and the four DeviceNet I/O patterns (poll, bit-strobe, change-of-state,
// cyclic) against a single slave, including fragmented transfers and
// connection allocation. Every public operation is synchronous with a
// bounded wait, matching the single-threaded cooperative model the
// protocol assumes.
package dnlink

import (
	"context"
	"sync"
	"time"

	"github.com/braboj/protocol-devicenet/candrv"
	"github.com/braboj/protocol-devicenet/canid"
	"github.com/braboj/protocol-devicenet/dnerr"
	"github.com/braboj/protocol-devicenet/dnfrag"
	"github.com/braboj/protocol-devicenet/dnlog"
	"github.com/braboj/protocol-devicenet/dnpacket"
)

// EventHandler is invoked after every outbound frame and every inbound
// frame accepted by the link layer, for diagnostics and telemetry sinks.
// It must not block.
type EventHandler func(direction string, canID uint32, payload []byte)

// Option configures a Node at construction time.
type Option func(*Node)

// WithWaitTime overrides the default 1 second response deadline.
func WithWaitTime(d time.Duration) Option {
	return func(n *Node) { n.waitTime = d }
}

// WithLogger attaches a debug logger; nil disables logging.
func WithLogger(l *dnlog.Logger) Option {
	return func(n *Node) { n.log = l }
}

// WithEventHandler attaches a frame-observer callback.
func WithEventHandler(h EventHandler) Option {
	return func(n *Node) { n.eventHandler = h }
}

// Node is a DeviceNet master-side connection to one slave MAC. It owns
// the per-instance connection table and the single outstanding
// transaction's toggling xid bit; it is not safe for concurrent use by
// more than one goroutine at a time, matching the protocol's
// single-outstanding-request rule.
type Node struct {
	bus      candrv.Bus
	srcMAC   int
	dstMAC   int
	waitTime time.Duration
	log      *dnlog.Logger

	eventHandler EventHandler

	mu          sync.Mutex
	connections map[int]*Connection
	xid         bool
}

// NewNode creates a Node addressing dstMAC from srcMAC over bus.
func NewNode(bus candrv.Bus, srcMAC, dstMAC int, opts ...Option) *Node {
	n := &Node{
		bus:         bus,
		srcMAC:      srcMAC,
		dstMAC:      dstMAC,
		waitTime:    time.Second,
		connections: make(map[int]*Connection),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// DstMAC returns the slave address this node talks to.
func (n *Node) DstMAC() int { return n.dstMAC }

// SrcMAC returns this node's own address.
func (n *Node) SrcMAC() int { return n.srcMAC }

// Connections returns a snapshot of the connection table.
func (n *Node) Connections() map[int]Connection {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[int]Connection, len(n.connections))
	for k, v := range n.connections {
		out[k] = *v
	}
	return out
}

func (n *Node) nextXID() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.xid = !n.xid
	return n.xid
}

func (n *Node) send(ctx context.Context, frame candrv.Frame, tag string) error {
	n.log.TX(tag, frame.ID, frame.Data)
	if n.eventHandler != nil {
		n.eventHandler("TX", frame.ID, frame.Data)
	}
	return n.bus.Send(ctx, frame)
}

func (n *Node) recv(ctx context.Context, timeout time.Duration, tag string) (candrv.Frame, error) {
	f, err := n.bus.Recv(ctx, timeout)
	if err != nil {
		return candrv.Frame{}, dnerr.NewNoResponseError()
	}
	n.log.RX(tag, f.ID, f.Data)
	if n.eventHandler != nil {
		n.eventHandler("RX", f.ID, f.Data)
	}
	return f, nil
}

// ServiceRequest builds and sends an ExplicitService request in group 2
// message 4 (EXPLICIT_REQ) for serviceCode against (classID, instanceID)
// carrying data, then awaits the matching response on group 2 message 3.
// Oversized data is sent as a fragmented transfer with per-fragment
// acknowledgement; the response is reassembled the same way.
func (n *Node) ServiceRequest(ctx context.Context, serviceCode byte, classID, instanceID uint32, data []byte) ([]byte, error) {
	return n.serviceRequestGroupMsg(ctx, serviceCode, classID, instanceID, data, dnpacket.MsgExplicitReq, dnpacket.MsgExplicitRsp)
}

func (n *Node) serviceRequestGroupMsg(ctx context.Context, serviceCode byte, classID, instanceID uint32, data []byte, reqMsg, rspMsg int) (result []byte, err error) {
	reqHeader := dnpacket.Header{Group: canid.Group2, MessageID: reqMsg, SrcMAC: n.srcMAC, DstMAC: n.dstMAC}
	rspHeader := dnpacket.Header{Group: canid.Group2, MessageID: rspMsg, SrcMAC: n.dstMAC, DstMAC: n.srcMAC}

	rspCANID, ferr := rspHeader.CANID()
	if ferr != nil {
		return nil, ferr
	}
	if lerr := n.bus.StartListen([]uint32{rspCANID}); lerr != nil {
		return nil, lerr
	}
	defer n.bus.StopListen()

	xid := n.nextXID()

	const maxUnfragmentedData = 4 // format-0 request budget: 8 - 2 (header bytes) - 2 (class+instance)
	if len(data) <= maxUnfragmentedData {
		req := dnpacket.ExplicitService{
			Header: reqHeader, XID: xid, ServiceCode: serviceCode,
			ClassID: classID, InstanceID: instanceID, ServiceData: data,
		}
		id, payload, berr := req.ToFrame()
		if berr != nil {
			return nil, berr
		}
		if serr := n.send(ctx, candrv.Frame{ID: id, Data: payload}, "dnlink"); serr != nil {
			return nil, serr
		}
	} else {
		if ferr := n.sendFragmentedExplicit(ctx, reqHeader, xid, data); ferr != nil {
			return nil, ferr
		}
	}

	return n.awaitResponse(ctx, serviceCode, n.waitTime)
}

// sendFragmentedExplicit splits payload and transmits each fragment,
// waiting for a per-fragment acknowledge before sending the next.
func (n *Node) sendFragmentedExplicit(ctx context.Context, h dnpacket.Header, xid bool, payload []byte) error {
	frags, err := dnpacket.SplitExplicit(h, xid, payload, false)
	if err != nil {
		return err
	}

	ackHeader := dnpacket.Header{Group: h.Group, MessageID: dnpacket.MsgExplicitRsp, SrcMAC: h.DstMAC, DstMAC: h.SrcMAC}
	for _, frag := range frags {
		id, fp, berr := frag.ToFrame()
		if berr != nil {
			return berr
		}
		if serr := n.send(ctx, candrv.Frame{ID: id, Data: fp}, "dnlink"); serr != nil {
			return serr
		}
		if aerr := n.waitFragmentAck(ctx, ackHeader, frag.FragCount); aerr != nil {
			return aerr
		}
	}
	return nil
}

// waitFragmentAck accepts up to two receive attempts (tolerating one
// stray frame) before failing with NoResponseError. The listen filter it
// installs is left in place on return: acks arrive on the same identifier
// as the response the caller awaits next, and the caller stops the
// listener itself.
func (n *Node) waitFragmentAck(ctx context.Context, ackHeader dnpacket.Header, expectCount int) error {
	ackCANID, err := ackHeader.CANID()
	if err != nil {
		return err
	}
	if lerr := n.bus.StartListen([]uint32{ackCANID}); lerr != nil {
		return lerr
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, rerr := n.recv(ctx, n.waitTime, "dnlink")
		if rerr != nil {
			return rerr
		}
		ack, perr := dnpacket.ParseExplicitFragmentAck(f.ID, f.Data)
		if perr != nil {
			continue // stray frame, try once more
		}
		if ack.FragCount != expectCount {
			continue
		}
		if ack.AckStatus == 1 {
			return dnerr.NewFragmentResponseError("slave reports too much data at fragment %d", expectCount)
		}
		if ack.AckStatus != 0 {
			return dnerr.NewFragmentResponseError("unspecified ack status 0x%02X at fragment %d", ack.AckStatus, expectCount)
		}
		return nil
	}
	return dnerr.NewNoResponseError()
}

// awaitResponse implements the response-reception state machine: receive,
// classify, reassemble if fragmented, and return the service data.
func (n *Node) awaitResponse(ctx context.Context, requestedService byte, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, dnerr.NewNoResponseError()
		}

		f, err := n.recv(ctx, remaining, "dnlink")
		if err != nil {
			return nil, err
		}

		rsp, perr := dnpacket.ParseExplicitServiceResponse(f.ID, f.Data)
		if perr != nil {
			continue // not an explicit service response, discard and keep waiting
		}

		if rsp.ServiceCode == SvcError {
			if len(rsp.ServiceData) == 0 {
				return nil, dnerr.NewServiceError(0, nil)
			}
			return nil, dnerr.NewServiceError(rsp.ServiceData[0], nil)
		}

		if requestedService > 0x7F {
			return nil, dnerr.NewServiceError(errGeneralInvalidReplyReceived, nil)
		}

		if !rsp.FragFlag {
			return rsp.ServiceData, nil
		}

		return n.reassembleExplicitResponse(ctx, f, rsp)
	}
}

// reassembleExplicitResponse handles a fragmented explicit response,
// including the single-fragment shortcut, acknowledging accepted
// fragments as it goes. Acks the master sends ride the request channel
// (EXPLICIT_REQ), the same identifier the slave listens to for anything
// coming from the master.
func (n *Node) reassembleExplicitResponse(ctx context.Context, first candrv.Frame, firstParsed dnpacket.ExplicitService) ([]byte, error) {
	frag, err := dnpacket.ParseExplicitFragment(first.ID, first.Data)
	if err != nil {
		return nil, dnerr.NewFragmentResponseError("first frame has fragFlag but is not a fragment: %v", err)
	}

	r := dnfrag.NewReassembler(true)
	ackHeader := dnpacket.Header{Group: firstParsed.Group, MessageID: dnpacket.MsgExplicitReq, SrcMAC: firstParsed.DstMAC, DstMAC: firstParsed.SrcMAC}

	outcome, ferr := r.Feed(frag.FragType == dnpacket.FragFinal, frag.FragCount, frag.Data)
	if ferr != nil {
		return nil, ferr
	}
	if outcome.Ack {
		if aerr := n.sendExplicitFragmentAck(ctx, ackHeader, outcome.Count, 0); aerr != nil {
			return nil, aerr
		}
	}
	if outcome.Done {
		return outcome.Data, nil
	}

	fragCANID, err := (dnpacket.Header{Group: firstParsed.Group, MessageID: firstParsed.MessageID, SrcMAC: firstParsed.SrcMAC, DstMAC: firstParsed.DstMAC}).CANID()
	if err != nil {
		return nil, err
	}
	if lerr := n.bus.StartListen([]uint32{fragCANID}); lerr != nil {
		return nil, lerr
	}
	defer n.bus.StopListen()

	for {
		f, rerr := n.recv(ctx, n.waitTime, "dnlink")
		if rerr != nil {
			return nil, rerr
		}
		frag, perr := dnpacket.ParseExplicitFragment(f.ID, f.Data)
		if perr != nil {
			continue
		}
		outcome, ferr := r.Feed(frag.FragType == dnpacket.FragFinal, frag.FragCount, frag.Data)
		if ferr != nil {
			return nil, ferr
		}
		if outcome.Ack {
			if aerr := n.sendExplicitFragmentAck(ctx, ackHeader, outcome.Count, 0); aerr != nil {
				return nil, aerr
			}
		}
		if outcome.Done {
			return outcome.Data, nil
		}
	}
}

func (n *Node) sendExplicitFragmentAck(ctx context.Context, h dnpacket.Header, count int, status byte) error {
	ack := dnpacket.ExplicitFragmentAck{Header: h, FragCount: count, AckStatus: status}
	id, payload, err := ack.ToFrame()
	if err != nil {
		return err
	}
	return n.send(ctx, candrv.Frame{ID: id, Data: payload}, "dnlink")
}
