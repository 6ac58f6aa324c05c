package cip

// CIP object class IDs the adapter carries a catalog for. These are the
// objects spec.md §1 names as out-of-scope collaborators "treated as a
// declarative attribute catalog sitting above the link layer" -- the
// catalog itself is in scope even though the object model's wider
// semantics are not.
const (
	ClassIdentity           uint32 = 0x01
	ClassMessageRouter      uint32 = 0x02
	ClassDeviceNet          uint32 = 0x03
	ClassAssembly           uint32 = 0x04
	ClassConnection         uint32 = 0x05
	ClassAcknowledgeHandler uint32 = 0x2B
)

// identityAttrs is the Identity object (class 0x01) catalog: the
// instance attributes every DeviceNet node exposes for device
// identification, matching the fields E1's "get identity vendor" example
// reads.
var identityAttrs = []AttributeDescriptor{
	{ScopeInstance, 1, "vendor_id", 2},
	{ScopeInstance, 2, "device_type", 2},
	{ScopeInstance, 3, "product_code", 2},
	{ScopeInstance, 4, "revision", 2},
	{ScopeInstance, 5, "status", 2},
	{ScopeInstance, 6, "serial_number", 4},
	{ScopeInstance, 7, "product_name", 0},
}

// deviceNetAttrs is the DeviceNet object (class 0x03) catalog: per-node
// configuration, the target of Allocate/Release (instance attributes 1-2
// are the MAC ID and baud rate this node itself uses).
var deviceNetAttrs = []AttributeDescriptor{
	{ScopeInstance, 1, "mac_id", 1},
	{ScopeInstance, 2, "baud_rate", 1},
	{ScopeInstance, 3, "bois", 1},
	{ScopeInstance, 4, "bus_off_interrupt", 1},
	{ScopeInstance, 5, "bus_off_counter", 1},
	{ScopeInstance, 6, "allocation_information", 0},
	{ScopeInstance, 7, "mac_id_switch_changed", 1},
	{ScopeInstance, 8, "baud_rate_switch_changed", 1},
}

// assemblyAttrs is the Assembly object (class 0x04) catalog: the bound
// data -- what the I/O messages poll/strobe/cos/cyclic actually carry.
var assemblyAttrs = []AttributeDescriptor{
	{ScopeInstance, 3, "data", 0},
	{ScopeInstance, 4, "size", 2},
}

// connectionAttrs is the Connection object (class 0x05) catalog, carried
// from original_source/devicenet/cip's instance_attributes table: a
// GetAttributeAll on a connection instance returns a realistic payload
// describing the connection this node allocated, not a stub.
var connectionAttrs = []AttributeDescriptor{
	{ScopeInstance, 1, "state", 1},
	{ScopeInstance, 2, "instance_type", 1},
	{ScopeInstance, 3, "transport_class_trigger", 1},
	{ScopeInstance, 4, "produced_connection_id", 2},
	{ScopeInstance, 5, "consumed_connection_id", 2},
	{ScopeInstance, 6, "initial_comm_characteristics", 1},
	{ScopeInstance, 7, "produced_connection_size", 2},
	{ScopeInstance, 8, "consumed_connection_size", 2},
	{ScopeInstance, 9, "expected_packet_rate", 2},
	{ScopeInstance, 12, "watchdog_timeout_action", 1},
	{ScopeInstance, 13, "produced_connection_path_length", 2},
	{ScopeInstance, 14, "produced_connection_path", 0},
	{ScopeInstance, 15, "consumed_connection_path_length", 2},
	{ScopeInstance, 16, "consumed_connection_path", 0},
	{ScopeInstance, 17, "production_inhibit_time", 2},
}

// ackHandlerAttrs is the Acknowledge Handler object (class 0x2B)
// catalog, which tracks COS/CYCLIC message acknowledgement timing.
var ackHandlerAttrs = []AttributeDescriptor{
	{ScopeInstance, 1, "acknowledge_timer", 2},
	{ScopeInstance, 2, "retry_limit", 1},
	{ScopeInstance, 3, "cos_producing_connection_instance", 2},
}

// CatalogFor returns the attribute catalog for classID, or nil for a
// class this adapter has no declarative catalog for -- callers fall
// back to raw GetAttribute/SetAttribute access in that case.
func CatalogFor(classID uint32) []AttributeDescriptor {
	switch classID {
	case ClassIdentity:
		return identityAttrs
	case ClassDeviceNet:
		return deviceNetAttrs
	case ClassAssembly:
		return assemblyAttrs
	case ClassConnection:
		return connectionAttrs
	case ClassAcknowledgeHandler:
		return ackHandlerAttrs
	default:
		return nil
	}
}
