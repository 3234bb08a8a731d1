// Package gadget services the kernel USB gadget endpoints the bridge
// presents to the PS3. ConfigFS composes the gadget (device identity is set
// there, external to this process); this package supplies the FunctionFS
// function: descriptors at bind time, then endpoint traffic.
package gadget

import (
	"bytes"
	"encoding/binary"

	"github.com/Alia5/dsbridge/ds3"
)

// USB descriptor type constants.
const (
	InterfaceDescType = 0x04
	EndpointDescType  = 0x05
	HIDDescType       = 0x21
	ReportDescType    = 0x22
)

// Descriptor lengths in bytes (fixed values from the USB spec).
const (
	InterfaceDescLen = 9
	EndpointDescLen  = 7
	HIDDescLen       = 9
)

// Endpoint addresses of the DS3 function: interrupt-in for input reports,
// interrupt-out for output reports.
const (
	EndpointAddrIn  = 0x81
	EndpointAddrOut = 0x02

	EndpointMaxPacket = 64
	EndpointInterval  = 1
)

// FunctionFS blob framing.
const (
	descriptorsMagicV2 = 3
	stringsMagic       = 2

	flagHasFSDesc = 1
	flagHasHSDesc = 2

	langEnglishUS = 0x0409
)

// InterfaceDescriptor (9 bytes) for the single HID interface.
type InterfaceDescriptor struct {
	BInterfaceNumber   uint8
	BAlternateSetting  uint8
	BNumEndpoints      uint8
	BInterfaceClass    uint8
	BInterfaceSubClass uint8
	BInterfaceProtocol uint8
	IInterface         uint8
}

func (i InterfaceDescriptor) Write(b *bytes.Buffer) {
	b.WriteByte(InterfaceDescLen)
	b.WriteByte(InterfaceDescType)
	b.WriteByte(i.BInterfaceNumber)
	b.WriteByte(i.BAlternateSetting)
	b.WriteByte(i.BNumEndpoints)
	b.WriteByte(i.BInterfaceClass)
	b.WriteByte(i.BInterfaceSubClass)
	b.WriteByte(i.BInterfaceProtocol)
	b.WriteByte(i.IInterface)
}

// EndpointDescriptor (7 bytes) for each endpoint.
type EndpointDescriptor struct {
	BEndpointAddress uint8
	BMAttributes     uint8
	WMaxPacketSize   uint16 // LE
	BInterval        uint8
}

func (e EndpointDescriptor) Write(b *bytes.Buffer) {
	b.WriteByte(EndpointDescLen)
	b.WriteByte(EndpointDescType)
	b.WriteByte(e.BEndpointAddress)
	b.WriteByte(e.BMAttributes)
	_ = binary.Write(b, binary.LittleEndian, e.WMaxPacketSize)
	b.WriteByte(e.BInterval)
}

// HIDDescriptor (class descriptor, 0x21) with one subordinate report
// descriptor (0x22).
type HIDDescriptor struct {
	BcdHID            uint16 // LE
	BCountryCode      uint8
	BNumDescriptors   uint8
	ClassDescType     uint8
	WDescriptorLength uint16 // LE
}

func (h HIDDescriptor) Write(b *bytes.Buffer) {
	b.WriteByte(HIDDescLen)
	b.WriteByte(HIDDescType)
	_ = binary.Write(b, binary.LittleEndian, h.BcdHID)
	b.WriteByte(h.BCountryCode)
	b.WriteByte(h.BNumDescriptors)
	b.WriteByte(h.ClassDescType)
	_ = binary.Write(b, binary.LittleEndian, h.WDescriptorLength)
}

// functionDescriptors renders the DS3 interface with its HID class
// descriptor and the two interrupt endpoints.
func functionDescriptors() []byte {
	var b bytes.Buffer
	InterfaceDescriptor{
		BNumEndpoints:   2,
		BInterfaceClass: 0x03, // HID
	}.Write(&b)
	HIDDescriptor{
		BcdHID:            0x0111,
		BNumDescriptors:   1,
		ClassDescType:     ReportDescType,
		WDescriptorLength: uint16(len(ds3.ReportDescriptor)),
	}.Write(&b)
	EndpointDescriptor{
		BEndpointAddress: EndpointAddrIn,
		BMAttributes:     0x03, // interrupt
		WMaxPacketSize:   EndpointMaxPacket,
		BInterval:        EndpointInterval,
	}.Write(&b)
	EndpointDescriptor{
		BEndpointAddress: EndpointAddrOut,
		BMAttributes:     0x03,
		WMaxPacketSize:   EndpointMaxPacket,
		BInterval:        EndpointInterval,
	}.Write(&b)
	return b.Bytes()
}

// descriptorsBlob builds the v2 descriptor blob written to ep0 at bind: the
// same descriptor set for full and high speed.
func descriptorsBlob() []byte {
	descs := functionDescriptors()
	// Each speed carries its descriptor count prefix-free; the header
	// counts descriptors, not bytes. We emit 4 descriptors per speed.
	const perSpeed = 4

	var body bytes.Buffer
	body.Write(descs) // fs
	body.Write(descs) // hs

	var b bytes.Buffer
	_ = binary.Write(&b, binary.LittleEndian, uint32(descriptorsMagicV2))
	_ = binary.Write(&b, binary.LittleEndian, uint32(0)) // length, patched below
	_ = binary.Write(&b, binary.LittleEndian, uint32(flagHasFSDesc|flagHasHSDesc))
	_ = binary.Write(&b, binary.LittleEndian, uint32(perSpeed))
	_ = binary.Write(&b, binary.LittleEndian, uint32(perSpeed))
	b.Write(body.Bytes())

	blob := b.Bytes()
	binary.LittleEndian.PutUint32(blob[4:], uint32(len(blob)))
	return blob
}

// stringsBlob builds the FunctionFS strings blob carrying the interface
// name.
func stringsBlob() []byte {
	var b bytes.Buffer
	_ = binary.Write(&b, binary.LittleEndian, uint32(stringsMagic))
	_ = binary.Write(&b, binary.LittleEndian, uint32(0)) // length, patched below
	_ = binary.Write(&b, binary.LittleEndian, uint32(1)) // str_count
	_ = binary.Write(&b, binary.LittleEndian, uint32(1)) // lang_count
	_ = binary.Write(&b, binary.LittleEndian, uint16(langEnglishUS))
	b.WriteString(ds3.ProductString)
	b.WriteByte(0)

	blob := b.Bytes()
	binary.LittleEndian.PutUint32(blob[4:], uint32(len(blob)))
	return blob
}
