package candrv

import (
	"context"
	"testing"
	"time"
)

func TestLoopbackSendRecv(t *testing.T) {
	bus := NewLoopbackBus()
	if err := bus.StartListen([]uint32{0x40B}); err != nil {
		t.Fatalf("StartListen: %v", err)
	}

	bus.Inject(Frame{ID: 0x40B, Data: []byte{1, 2, 3}})

	ctx := context.Background()
	f, err := bus.Recv(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if f.ID != 0x40B || len(f.Data) != 3 {
		t.Errorf("Recv = %+v", f)
	}
}

func TestLoopbackFilterDropsUnmatchedFrame(t *testing.T) {
	bus := NewLoopbackBus()
	if err := bus.StartListen([]uint32{0x40B}); err != nil {
		t.Fatalf("StartListen: %v", err)
	}
	bus.Inject(Frame{ID: 0x999, Data: []byte{1}})

	_, err := bus.Recv(context.Background(), 30*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout for frame outside filter")
	}
}

func TestLoopbackRecvTimeout(t *testing.T) {
	bus := NewLoopbackBus()
	_ = bus.StartListen(nil)

	_, err := bus.Recv(context.Background(), 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestLoopbackSendRecordsFrame(t *testing.T) {
	bus := NewLoopbackBus()
	if err := bus.Send(context.Background(), Frame{ID: 0x40C, Data: []byte{1}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(bus.Sent()) != 1 {
		t.Fatalf("Sent() len = %d, want 1", len(bus.Sent()))
	}
}

func TestLoopbackFlush(t *testing.T) {
	bus := NewLoopbackBus()
	_ = bus.StartListen(nil)
	bus.Inject(Frame{ID: 1, Data: []byte{1}})
	if err := bus.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	_, err := bus.Recv(context.Background(), 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected no frame after flush")
	}
}
