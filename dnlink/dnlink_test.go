package dnlink

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/braboj/protocol-devicenet/candrv"
	"github.com/braboj/protocol-devicenet/canid"
	"github.com/braboj/protocol-devicenet/dnerr"
	"github.com/braboj/protocol-devicenet/dnpacket"
)

func testNode(bus candrv.Bus) *Node {
	return NewNode(bus, 0, 1, WithWaitTime(50*time.Millisecond))
}

// TestGetAttrSingleRoundTrip drives a full ServiceRequest exchange: the
// test plays the slave by injecting a canned response once it observes
// the master's request.
func TestGetAttrSingleRoundTrip(t *testing.T) {
	bus := candrv.NewLoopbackBus()
	n := testNode(bus)

	go func() {
		for {
			time.Sleep(time.Millisecond)
			sent := bus.Sent()
			if len(sent) == 0 {
				continue
			}
			req, err := dnpacket.ParseExplicitServiceRequest(sent[0].ID, sent[0].Data, dnpacket.Format0)
			if err != nil {
				return
			}
			rsp := dnpacket.ExplicitService{
				Header:      dnpacket.Header{Group: canid.Group2, MessageID: dnpacket.MsgExplicitRsp, SrcMAC: req.DstMAC, DstMAC: req.SrcMAC},
				RRFlag:      true,
				ServiceCode: req.ServiceCode,
				ServiceData: []byte{0x42},
			}
			id, payload, _ := rsp.ToFrame()
			bus.Inject(candrv.Frame{ID: id, Data: payload})
			return
		}
	}()

	data, err := n.GetAttrSingle(context.Background(), 0x05, 1, 3)
	if err != nil {
		t.Fatalf("GetAttrSingle: %v", err)
	}
	if !bytes.Equal(data, []byte{0x42}) {
		t.Errorf("data = % X", data)
	}
}

// TestServiceRequestNoResponse exercises the timeout branch of
// awaitResponse when the slave never answers.
func TestServiceRequestNoResponse(t *testing.T) {
	bus := candrv.NewLoopbackBus()
	n := testNode(bus)

	_, err := n.GetAttrSingle(context.Background(), 0x05, 1, 3)
	if _, ok := err.(*dnerr.NoResponseError); !ok {
		t.Fatalf("expected NoResponseError, got %v (%T)", err, err)
	}
}

// TestServiceRequestErrorReply exercises the ERROR-service branch.
func TestServiceRequestErrorReply(t *testing.T) {
	bus := candrv.NewLoopbackBus()
	n := testNode(bus)

	go func() {
		for {
			time.Sleep(time.Millisecond)
			sent := bus.Sent()
			if len(sent) == 0 {
				continue
			}
			req, err := dnpacket.ParseExplicitServiceRequest(sent[0].ID, sent[0].Data, dnpacket.Format0)
			if err != nil {
				return
			}
			rsp := dnpacket.ExplicitService{
				Header:      dnpacket.Header{Group: canid.Group2, MessageID: dnpacket.MsgExplicitRsp, SrcMAC: req.DstMAC, DstMAC: req.SrcMAC},
				RRFlag:      true,
				ServiceCode: SvcError,
				ServiceData: []byte{0x14},
			}
			id, payload, _ := rsp.ToFrame()
			bus.Inject(candrv.Frame{ID: id, Data: payload})
			return
		}
	}()

	_, err := n.GetAttrSingle(context.Background(), 0x05, 1, 3)
	var svcErr *dnerr.ServiceError
	if se, ok := err.(*dnerr.ServiceError); !ok {
		t.Fatalf("expected ServiceError, got %v", err)
	} else {
		svcErr = se
	}
	if svcErr.Code != 0x14 {
		t.Errorf("code = 0x%02X, want 0x14", svcErr.Code)
	}
}

// TestE4DupMACProbeFree is the literal E4 scenario: two DupMAC frames go
// out on CAN-ID 0x40E and nothing answers, so the MAC is reported free.
func TestE4DupMACProbeFree(t *testing.T) {
	bus := candrv.NewLoopbackBus()
	n := testNode(bus)

	free, err := n.ProbeDupMAC(context.Background(), 1, 0x1234, 0xAABBCCDD)
	if err != nil {
		t.Fatalf("ProbeDupMAC: %v", err)
	}
	if !free {
		t.Fatal("expected MAC to be reported free")
	}

	sent := bus.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 probe frames, got %d", len(sent))
	}
	for _, f := range sent {
		if f.ID != 0x40E {
			t.Errorf("probe CAN-ID = 0x%03X, want 0x40E", f.ID)
		}
		want := []byte{0x00, 0x34, 0x12, 0xDD, 0xCC, 0xBB, 0xAA}
		if !bytes.Equal(f.Data, want) {
			t.Errorf("probe payload = % X, want % X", f.Data, want)
		}
	}
}

// TestE4DupMACProbeTaken injects an objection after the first probe.
func TestE4DupMACProbeTaken(t *testing.T) {
	bus := candrv.NewLoopbackBus()
	n := testNode(bus)

	go func() {
		time.Sleep(5 * time.Millisecond)
		bus.Inject(candrv.Frame{ID: 0x40E, Data: make([]byte, 7)})
	}()

	free, err := n.ProbeDupMAC(context.Background(), 1, 0x1234, 0xAABBCCDD)
	if err != nil {
		t.Fatalf("ProbeDupMAC: %v", err)
	}
	if free {
		t.Fatal("expected MAC to be reported taken")
	}
}

// TestE5AllocateExplicitAndPoll is the literal E5 scenario: an ALLOCATE
// with choice bits 0x03 (explicit+poll) registers both instance 1 and
// instance 2 once the slave answers successfully.
func TestE5AllocateExplicitAndPoll(t *testing.T) {
	bus := candrv.NewLoopbackBus()
	n := testNode(bus)

	go func() {
		for {
			time.Sleep(time.Millisecond)
			sent := bus.Sent()
			if len(sent) == 0 {
				continue
			}
			req, err := dnpacket.ParseExplicitServiceRequest(sent[0].ID, sent[0].Data, dnpacket.Format0)
			if err != nil {
				return
			}
			if req.ServiceData[0] != 0x03 || req.ServiceData[1] != 0x00 {
				t.Errorf("allocate body = % X, want [03 00]", req.ServiceData)
			}
			rsp := dnpacket.ExplicitService{
				Header:      dnpacket.Header{Group: canid.Group2, MessageID: dnpacket.MsgExplicitRsp, SrcMAC: req.DstMAC, DstMAC: req.SrcMAC},
				RRFlag:      true,
				ServiceCode: SvcAllocate,
			}
			id, payload, _ := rsp.ToFrame()
			bus.Inject(candrv.Frame{ID: id, Data: payload})
			return
		}
	}()

	if err := n.Allocate(context.Background(), AllocExplicit|AllocPoll, false); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	conns := n.Connections()
	if _, ok := conns[InstanceExplicit]; !ok {
		t.Error("instance 1 (explicit) not registered")
	}
	if _, ok := conns[InstancePoll]; !ok {
		t.Error("instance 2 (poll) not registered")
	}
}

// TestE6CosReadAckSuppressed is the literal E6 scenario: after COS
// allocation with ack suppression, CosRead receives a group 1 message 13
// frame and returns its payload without emitting any ack frame.
func TestE6CosReadAckSuppressed(t *testing.T) {
	bus := candrv.NewLoopbackBus()
	n := testNode(bus)

	n.mu.Lock()
	n.connections[InstanceCosCyclic] = &Connection{Instance: InstanceCosCyclic, AllocChoice: AllocCOS | AllocAckSup, AckSuppression: true}
	n.mu.Unlock()

	h := dnpacket.Header{Group: canid.Group1, MessageID: dnpacket.MsgCosSlaveMessage, SrcMAC: n.dstMAC, DstMAC: n.srcMAC}
	id, err := h.CANID()
	if err != nil {
		t.Fatalf("CANID: %v", err)
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		bus.Inject(candrv.Frame{ID: id, Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}})
	}()

	data, err := n.CosRead(context.Background())
	if err != nil {
		t.Fatalf("CosRead: %v", err)
	}
	if !bytes.Equal(data, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Errorf("data = % X", data)
	}
	if len(bus.Sent()) != 0 {
		t.Errorf("expected no ack frame sent, got %d frames", len(bus.Sent()))
	}
}

// TestCosReadAcknowledges verifies the non-suppressed path emits exactly
// one ack frame on group 1 message 15.
func TestCosReadAcknowledges(t *testing.T) {
	bus := candrv.NewLoopbackBus()
	n := testNode(bus)

	h := dnpacket.Header{Group: canid.Group1, MessageID: dnpacket.MsgCosSlaveMessage, SrcMAC: n.dstMAC, DstMAC: n.srcMAC}
	id, _ := h.CANID()

	go func() {
		time.Sleep(5 * time.Millisecond)
		bus.Inject(candrv.Frame{ID: id, Data: []byte{0x01}})
	}()

	if _, err := n.CosRead(context.Background()); err != nil {
		t.Fatalf("CosRead: %v", err)
	}

	sent := bus.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 ack frame, got %d", len(sent))
	}
	wantID, _ := (dnpacket.Header{Group: canid.Group1, MessageID: dnpacket.MsgPollRsp, SrcMAC: n.srcMAC, DstMAC: n.dstMAC}).CANID()
	if sent[0].ID != wantID {
		t.Errorf("ack CAN-ID = 0x%03X, want 0x%03X", sent[0].ID, wantID)
	}
}

// TestPollWriteRoundTrip exercises the poll I/O pattern end to end.
func TestPollWriteRoundTrip(t *testing.T) {
	bus := candrv.NewLoopbackBus()
	n := testNode(bus)

	go func() {
		for {
			time.Sleep(time.Millisecond)
			sent := bus.Sent()
			if len(sent) == 0 {
				continue
			}
			rspHeader := dnpacket.Header{Group: canid.Group1, MessageID: dnpacket.MsgPollRsp, SrcMAC: n.dstMAC, DstMAC: n.srcMAC}
			io := dnpacket.IO{Header: rspHeader, Data: []byte{0x99}}
			id, payload, _ := io.ToFrame()
			bus.Inject(candrv.Frame{ID: id, Data: payload})
			return
		}
	}()

	data, err := n.PollWrite(context.Background(), []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("PollWrite: %v", err)
	}
	if !bytes.Equal(data, []byte{0x99}) {
		t.Errorf("data = % X", data)
	}
}

// TestReleaseClearsConnectionTable verifies Release drops every instance
// named by the choice bitmask unconditionally.
func TestReleaseClearsConnectionTable(t *testing.T) {
	bus := candrv.NewLoopbackBus()
	n := testNode(bus)
	n.mu.Lock()
	n.connections[InstanceExplicit] = &Connection{Instance: InstanceExplicit}
	n.connections[InstancePoll] = &Connection{Instance: InstancePoll}
	n.mu.Unlock()

	err := n.Release(context.Background(), AllocExplicit|AllocPoll)
	if _, ok := err.(*dnerr.NoResponseError); !ok {
		t.Fatalf("expected NoResponseError (no slave reply), got %v", err)
	}

	conns := n.Connections()
	if len(conns) != 0 {
		t.Errorf("expected empty connection table after release, got %v", conns)
	}
}
