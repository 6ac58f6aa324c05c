package dnlink

import (
	"context"

	"github.com/braboj/protocol-devicenet/candrv"
	"github.com/braboj/protocol-devicenet/canid"
	"github.com/braboj/protocol-devicenet/dnerr"
	"github.com/braboj/protocol-devicenet/dnpacket"
)

// ProbeDupMAC claims candidateMAC by sending two duplicate-MAC-check
// messages identifying this node (vendorID, serialNumber) and listening
// briefly after each for an objection from whoever already owns that
// address. No response to either message means the MAC is free; any
// response means it is already taken.
func (n *Node) ProbeDupMAC(ctx context.Context, candidateMAC int, vendorID uint16, serialNumber uint32) (free bool, err error) {
	h := dnpacket.Header{Group: canid.Group2, MessageID: dnpacket.MsgDupMAC, SrcMAC: candidateMAC, DstMAC: candidateMAC}

	canIDValue, cerr := h.CANID()
	if cerr != nil {
		return false, cerr
	}
	if lerr := n.bus.StartListen([]uint32{canIDValue}); lerr != nil {
		return false, lerr
	}
	defer n.bus.StopListen()

	msg := dnpacket.DupMAC{Header: h, VendorID: vendorID, SerialNumber: serialNumber}
	id, payload, berr := msg.ToFrame()
	if berr != nil {
		return false, berr
	}

	for attempt := 0; attempt < 2; attempt++ {
		if serr := n.send(ctx, candrv.Frame{ID: id, Data: payload}, "dnlink"); serr != nil {
			return false, serr
		}
		_, rerr := n.recv(ctx, n.waitTime, "dnlink")
		if rerr == nil {
			return false, nil // an objection arrived: MAC is taken
		}
		if _, ok := rerr.(*dnerr.NoResponseError); !ok {
			return false, rerr
		}
	}

	return true, nil
}
