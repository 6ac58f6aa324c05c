package dnlink

import (
	"context"

	"github.com/braboj/protocol-devicenet/dnwire"
)

// GetAttrAll fetches every attribute of (classID, instanceID) as one raw
// byte string; the caller decodes it per the object's attribute layout.
func (n *Node) GetAttrAll(ctx context.Context, classID, instanceID uint32) ([]byte, error) {
	return n.ServiceRequest(ctx, SvcGetAttrAll, classID, instanceID, nil)
}

// GetAttrSingle fetches one attribute's raw bytes.
func (n *Node) GetAttrSingle(ctx context.Context, classID, instanceID uint32, attrID byte) ([]byte, error) {
	return n.ServiceRequest(ctx, SvcGetAttrSingle, classID, instanceID, []byte{attrID})
}

// SetAttrSingle writes one attribute, fragmenting value automatically when
// it doesn't fit a single request frame.
func (n *Node) SetAttrSingle(ctx context.Context, classID, instanceID uint32, attrID byte, value []byte) ([]byte, error) {
	body := append([]byte{attrID}, value...)
	return n.ServiceRequest(ctx, SvcSetAttrSingle, classID, instanceID, body)
}

// SetAttrSingleInt writes an integer-valued attribute, encoding it little
// endian in size bytes.
func (n *Node) SetAttrSingleInt(ctx context.Context, classID, instanceID uint32, attrID byte, value uint64, size int) ([]byte, error) {
	return n.SetAttrSingle(ctx, classID, instanceID, attrID, dnwire.IntegerToBytes(value, size, false))
}

// GetMember fetches one member of an attribute that is itself a list
// (service 0x18), addressed by memberID within attrID.
func (n *Node) GetMember(ctx context.Context, classID, instanceID uint32, attrID, memberID byte) ([]byte, error) {
	return n.ServiceRequest(ctx, SvcGetMember, classID, instanceID, []byte{attrID, memberID})
}

// SetMember writes one member of a list-valued attribute (service 0x19).
func (n *Node) SetMember(ctx context.Context, classID, instanceID uint32, attrID, memberID byte, value []byte) ([]byte, error) {
	body := append([]byte{attrID, memberID}, value...)
	return n.ServiceRequest(ctx, SvcSetMember, classID, instanceID, body)
}

// Reset issues the RESET service against an object instance.
func (n *Node) Reset(ctx context.Context, classID, instanceID uint32, resetType byte) ([]byte, error) {
	return n.ServiceRequest(ctx, SvcReset, classID, instanceID, []byte{resetType})
}
