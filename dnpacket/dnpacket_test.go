package dnpacket

import (
	"bytes"
	"testing"

	"github.com/braboj/protocol-devicenet/canid"
)

// E1: Get Identity vendor.
func TestExplicitServiceRequestE1(t *testing.T) {
	req := ExplicitService{
		Header:      Header{Group: canid.Group2, MessageID: MsgExplicitReq, SrcMAC: 0, DstMAC: 1},
		ServiceCode: 0x0E,
		ClassID:     0x01,
		InstanceID:  0x01,
		ServiceData: []byte{0x01},
	}

	id, payload, err := req.ToFrame()
	if err != nil {
		t.Fatalf("ToFrame: %v", err)
	}
	if id != 0x40C {
		t.Errorf("CAN-ID = 0x%03X, want 0x40C", id)
	}
	want := []byte{0x00, 0x0E, 0x01, 0x01, 0x01}
	if !bytes.Equal(payload, want) {
		t.Errorf("payload = % X, want % X", payload, want)
	}
}

func TestExplicitServiceResponseE1(t *testing.T) {
	rsp, err := ParseExplicitServiceResponse(0x40B, []byte{0x00, 0x8E, 0x34, 0x12})
	if err != nil {
		t.Fatalf("ParseExplicitServiceResponse: %v", err)
	}
	if rsp.ServiceCode != 0x0E {
		t.Errorf("ServiceCode = 0x%02X, want 0x0E", rsp.ServiceCode)
	}
	if !bytes.Equal(rsp.ServiceData, []byte{0x34, 0x12}) {
		t.Errorf("ServiceData = % X, want 34 12", rsp.ServiceData)
	}
	if rsp.Header.SrcMAC != 1 {
		t.Errorf("SrcMAC = %d, want 1 (slave)", rsp.Header.SrcMAC)
	}
}

// E2: Reset.
func TestResetE2(t *testing.T) {
	req := ExplicitService{
		Header:      Header{Group: canid.Group2, MessageID: MsgExplicitReq, SrcMAC: 0, DstMAC: 1},
		ServiceCode: 0x05,
		ClassID:     0x01,
		InstanceID:  0x01,
	}
	id, payload, err := req.ToFrame()
	if err != nil {
		t.Fatalf("ToFrame: %v", err)
	}
	if id != 0x40C {
		t.Errorf("CAN-ID = 0x%03X, want 0x40C", id)
	}
	if !bytes.Equal(payload, []byte{0x00, 0x05, 0x01, 0x01}) {
		t.Errorf("payload = % X", payload)
	}

	rsp, err := ParseExplicitServiceResponse(0x40B, []byte{0x00, 0x85})
	if err != nil {
		t.Fatalf("ParseExplicitServiceResponse: %v", err)
	}
	if len(rsp.ServiceData) != 0 {
		t.Errorf("ServiceData = % X, want empty", rsp.ServiceData)
	}
}

// E3: fragmented 12-byte SET_ATTR_SINGLE value splits into two 6-byte
// fragments.
func TestSplitExplicitE3(t *testing.T) {
	h := Header{Group: canid.Group2, MessageID: MsgExplicitReq, SrcMAC: 0, DstMAC: 1}
	value := make([]byte, 12)
	for i := range value {
		value[i] = byte(i)
	}

	frags, err := SplitExplicit(h, false, value, false)
	if err != nil {
		t.Fatalf("SplitExplicit: %v", err)
	}
	if len(frags) != 2 {
		t.Fatalf("len(frags) = %d, want 2", len(frags))
	}
	if frags[0].FragType != FragStart || frags[0].FragCount != 0 || len(frags[0].Data) != 6 {
		t.Errorf("frag 0 = %+v, want START count=0 len=6", frags[0])
	}
	if frags[1].FragType != FragFinal || frags[1].FragCount != 1 || len(frags[1].Data) != 6 {
		t.Errorf("frag 1 = %+v, want FINAL count=1 len=6", frags[1])
	}

	reassembled := append(append([]byte(nil), frags[0].Data...), frags[1].Data...)
	if !bytes.Equal(reassembled, value) {
		t.Errorf("reassembled = % X, want % X", reassembled, value)
	}
}

func TestExplicitFragmentRoundTrip(t *testing.T) {
	h := Header{Group: canid.Group2, MessageID: MsgExplicitReq, SrcMAC: 0, DstMAC: 1}
	frag := ExplicitFragment{Header: h, XID: true, FragType: FragStart, FragCount: 0, Data: []byte{1, 2, 3, 4, 5, 6}}

	id, payload, err := frag.ToFrame()
	if err != nil {
		t.Fatalf("ToFrame: %v", err)
	}

	got, err := ParseExplicitFragment(id, payload)
	if err != nil {
		t.Fatalf("ParseExplicitFragment: %v", err)
	}
	if got.FragType != frag.FragType || got.FragCount != frag.FragCount || !bytes.Equal(got.Data, frag.Data) {
		t.Errorf("round trip = %+v, want %+v", got, frag)
	}
	if got.XID != true {
		t.Errorf("XID not preserved")
	}
}

func TestExplicitFragmentAckRoundTrip(t *testing.T) {
	h := Header{Group: canid.Group2, MessageID: MsgExplicitRsp, SrcMAC: 0, DstMAC: 1}
	ack := ExplicitFragmentAck{Header: h, FragCount: 1, AckStatus: 0}

	id, payload, err := ack.ToFrame()
	if err != nil {
		t.Fatalf("ToFrame: %v", err)
	}
	got, err := ParseExplicitFragmentAck(id, payload)
	if err != nil {
		t.Fatalf("ParseExplicitFragmentAck: %v", err)
	}
	if got.FragCount != 1 || got.AckStatus != 0 {
		t.Errorf("round trip = %+v", got)
	}
}

func TestIORoundTrip(t *testing.T) {
	h := Header{Group: canid.Group1, MessageID: MsgPollRsp, SrcMAC: 1, DstMAC: 0}
	pkt := IO{Header: h, Data: []byte{0xAA, 0xBB, 0xCC}}

	id, payload, err := pkt.ToFrame()
	if err != nil {
		t.Fatalf("ToFrame: %v", err)
	}
	got, err := ParseIO(id, payload, 0)
	if err != nil {
		t.Fatalf("ParseIO: %v", err)
	}
	if !bytes.Equal(got.Data, pkt.Data) {
		t.Errorf("Data = % X, want % X", got.Data, pkt.Data)
	}
}

func TestSplitIOShortcut(t *testing.T) {
	h := Header{Group: canid.Group1, MessageID: MsgPollRsp, SrcMAC: 1, DstMAC: 0}
	payload := []byte{1, 2, 3}

	frags, err := SplitIO(h, payload, true)
	if err != nil {
		t.Fatalf("SplitIO: %v", err)
	}
	if len(frags) != 1 || frags[0].FragCount != FragSentinel || frags[0].FragType != FragStart {
		t.Errorf("shortcut frags = %+v", frags)
	}
}

func TestDupMACRoundTrip(t *testing.T) {
	h := Header{Group: canid.Group2, MessageID: MsgDupMAC, SrcMAC: 5, DstMAC: 0}
	pkt := DupMAC{Header: h, VendorID: 0x1234, SerialNumber: 0xAABBCCDD}

	id, payload, err := pkt.ToFrame()
	if err != nil {
		t.Fatalf("ToFrame: %v", err)
	}
	got, err := ParseDupMAC(id, payload, pkt.SrcMAC)
	if err != nil {
		t.Fatalf("ParseDupMAC: %v", err)
	}
	if got.VendorID != pkt.VendorID || got.SerialNumber != pkt.SerialNumber {
		t.Errorf("round trip = %+v, want %+v", got, pkt)
	}
}
