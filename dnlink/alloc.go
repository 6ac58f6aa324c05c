package dnlink

import (
	"context"

	"github.com/braboj/protocol-devicenet/dnerr"
)

// allocInstances lists, in bit order, which connection-table instance each
// allocation-choice bit corresponds to. COS and CYCLIC share instance 4:
// a slave only ever runs one of the two at a time.
var allocInstances = []struct {
	bit AllocChoice
	inst int
}{
	{AllocExplicit, InstanceExplicit},
	{AllocPoll, InstancePoll},
	{AllocBitstrobe, InstanceBitstrobe},
	{AllocCOS, InstanceCosCyclic},
	{AllocCyclic, InstanceCosCyclic},
	{AllocMPoll, InstanceMPoll},
}

// Allocate requests one or more connections from the slave via service
// 0x4B against the DeviceNet object, passing choice (optionally OR'd with
// AllocAckSup) and this node's own MAC as the two request bytes. Every
// connection-table instance named by a set bit in choice is written
// whether or not the slave grants the request -- a failed allocation
// still needs to be visible to Release and to diagnostics, mirroring the
// unconditional table update the protocol performs. A choice with the
// AllocReserved bit set is rejected with dnerr.PacketError before
// anything is sent.
func (n *Node) Allocate(ctx context.Context, choice AllocChoice, ackSuppression bool) error {
	if choice&AllocReserved != 0 {
		return dnerr.NewPacketError("allocation choice 0x%02X sets the reserved bit", byte(choice))
	}
	allocChoice := choice
	if ackSuppression {
		allocChoice |= AllocAckSup
	}

	_, err := n.ServiceRequest(ctx, SvcAllocate, ClassDeviceNet, InstanceDeviceNet, []byte{byte(allocChoice), byte(n.srcMAC)})

	state := StateEstablished
	if err != nil {
		state = StateTimedOut
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, bi := range allocInstances {
		if allocChoice&bi.bit == 0 {
			continue
		}
		n.connections[bi.inst] = &Connection{
			Instance:       bi.inst,
			AllocChoice:    allocChoice,
			AckSuppression: ackSuppression,
			State:          state,
		}
	}

	return err
}

// Release requests termination of every connection instance still named
// by choice via service 0x4C, and clears those connection-table entries
// unconditionally, matching the allocator's behavior of dropping local
// bookkeeping regardless of whether the slave acknowledged the release.
func (n *Node) Release(ctx context.Context, choice AllocChoice) error {
	_, err := n.ServiceRequest(ctx, SvcRelease, ClassDeviceNet, InstanceDeviceNet, []byte{byte(choice)})

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, bi := range allocInstances {
		if choice&bi.bit == 0 {
			continue
		}
		delete(n.connections, bi.inst)
	}

	return err
}
