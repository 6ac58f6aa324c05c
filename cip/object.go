package cip

import (
	"context"

	"github.com/braboj/protocol-devicenet/dnlink"
	"github.com/braboj/protocol-devicenet/dnwire"
)

// AttrScope distinguishes a class-level attribute (shared by every
// instance of the class) from an instance-level one.
type AttrScope int

const (
	ScopeClass AttrScope = iota
	ScopeInstance
)

// AttributeDescriptor names one attribute in an object's catalog. Size
// is the attribute's wire width in bytes, or 0 for a variable-length
// (string) attribute.
type AttributeDescriptor struct {
	Scope AttrScope
	ID    byte
	Name  string
	Size  int
}

// Object is an (interface, srcAddr, dstAddr, classID, instance) tuple --
// Node carries the interface and both addresses -- plus the attribute
// catalog for its class. Its operations are a direct,
// thin mapping onto dnlink.Node service calls; it carries no protocol
// state of its own.
type Object struct {
	Node       *dnlink.Node
	ClassID    uint32
	InstanceID uint32
	Catalog    []AttributeDescriptor
}

// NewObject looks up classID's catalog and returns an Object bound to
// node and instanceID. An unknown class still returns a usable Object
// with an empty catalog -- GetAttribute/SetAttribute fall back to raw
// byte access rather than refusing the request.
func NewObject(node *dnlink.Node, classID, instanceID uint32) *Object {
	return &Object{Node: node, ClassID: classID, InstanceID: instanceID, Catalog: CatalogFor(classID)}
}

// GetAttribute fetches one attribute's raw bytes via GET_ATTR_SINGLE
// (service 0x0E). The catalog only documents the attribute; it does not
// gate the request -- a slave may expose attributes this adapter's
// catalog doesn't list.
func (o *Object) GetAttribute(ctx context.Context, id byte) ([]byte, error) {
	return o.Node.GetAttrSingle(ctx, o.ClassID, o.InstanceID, id)
}

// SetAttribute writes one attribute via SET_ATTR_SINGLE (service 0x10).
func (o *Object) SetAttribute(ctx context.Context, id byte, value []byte) error {
	_, err := o.Node.SetAttrSingle(ctx, o.ClassID, o.InstanceID, id, value)
	return err
}

// GetAttributeAll fetches every catalog-listed instance attribute for
// this object, one GET_ATTR_SINGLE call per attribute (DeviceNet's
// GET_ATTR_ALL returns an opaque concatenated blob whose layout this
// adapter would otherwise have to special-case per class; per-attribute
// reads are uniform and let a missing attribute fail independently of
// its neighbors). An attribute the slave refuses gets a nil entry in its
// slot rather than aborting the whole call.
func (o *Object) GetAttributeAll(ctx context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte, len(o.Catalog))
	for _, a := range o.Catalog {
		if a.Scope != ScopeInstance {
			continue
		}
		v, err := o.GetAttribute(ctx, a.ID)
		if err != nil {
			out[a.Name] = nil
			continue
		}
		out[a.Name] = v
	}
	return out, nil
}

// Reset issues the RESET service (0x05) against this object instance.
func (o *Object) Reset(ctx context.Context, resetType byte) error {
	_, err := o.Node.Reset(ctx, o.ClassID, o.InstanceID, resetType)
	return err
}

// GetAttributeInt fetches an integer-valued attribute and decodes it
// little-endian. A truncated reply (fewer bytes than the catalog's Size)
// decodes whatever bytes arrived, per spec.md's note that callers must
// tolerate a short GET reply.
func (o *Object) GetAttributeInt(ctx context.Context, id byte) (uint64, error) {
	raw, err := o.GetAttribute(ctx, id)
	if err != nil {
		return 0, err
	}
	return dnwire.BytesToInteger(raw, false), nil
}

// SetAttributeInt writes an integer-valued attribute, encoding it
// little-endian in size bytes.
func (o *Object) SetAttributeInt(ctx context.Context, id byte, value uint64, size int) error {
	return o.SetAttribute(ctx, id, dnwire.IntegerToBytes(value, size, false))
}

// GetAttributeString fetches a length-prefixed UTF-8 string attribute
// and decodes it, stripping the length prefix and any trailing NUL.
func (o *Object) GetAttributeString(ctx context.Context, id byte) (string, error) {
	raw, err := o.GetAttribute(ctx, id)
	if err != nil {
		return "", err
	}
	return dnwire.BytesToString(raw)
}

// SetAttributeString writes a length-prefixed UTF-8 string attribute,
// truncating to a 255-byte payload (including the length prefix) as the
// wire format requires.
func (o *Object) SetAttributeString(ctx context.Context, id byte, value string) error {
	return o.SetAttribute(ctx, id, dnwire.StringToBytes(value))
}
