package gadget

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/dsbridge/ds3"
)

func TestFunctionDescriptorsLayout(t *testing.T) {
	d := functionDescriptors()
	require.Len(t, d, InterfaceDescLen+HIDDescLen+2*EndpointDescLen)

	// Interface descriptor header.
	assert.Equal(t, byte(InterfaceDescLen), d[0])
	assert.Equal(t, byte(InterfaceDescType), d[1])
	assert.Equal(t, byte(0x03), d[5], "HID class")

	// HID class descriptor follows, pointing at the DS3 report descriptor.
	hid := d[InterfaceDescLen:]
	assert.Equal(t, byte(HIDDescLen), hid[0])
	assert.Equal(t, byte(HIDDescType), hid[1])
	assert.Equal(t, uint16(len(ds3.ReportDescriptor)), binary.LittleEndian.Uint16(hid[7:9]))

	// Interrupt-in then interrupt-out endpoints.
	ep1 := hid[HIDDescLen:]
	assert.Equal(t, byte(EndpointAddrIn), ep1[2])
	assert.Equal(t, byte(0x03), ep1[3])
	assert.Equal(t, uint16(EndpointMaxPacket), binary.LittleEndian.Uint16(ep1[4:6]))

	ep2 := ep1[EndpointDescLen:]
	assert.Equal(t, byte(EndpointAddrOut), ep2[2])
}

func TestDescriptorsBlobFraming(t *testing.T) {
	blob := descriptorsBlob()

	assert.Equal(t, uint32(descriptorsMagicV2), binary.LittleEndian.Uint32(blob[0:4]))
	assert.Equal(t, uint32(len(blob)), binary.LittleEndian.Uint32(blob[4:8]))
	assert.Equal(t, uint32(flagHasFSDesc|flagHasHSDesc), binary.LittleEndian.Uint32(blob[8:12]))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(blob[12:16]), "fs descriptor count")
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(blob[16:20]), "hs descriptor count")

	body := len(blob) - 20
	assert.Equal(t, 2*len(functionDescriptors()), body)
}

func TestStringsBlobFraming(t *testing.T) {
	blob := stringsBlob()

	assert.Equal(t, uint32(stringsMagic), binary.LittleEndian.Uint32(blob[0:4]))
	assert.Equal(t, uint32(len(blob)), binary.LittleEndian.Uint32(blob[4:8]))
	assert.Equal(t, uint16(langEnglishUS), binary.LittleEndian.Uint16(blob[16:18]))
	assert.Contains(t, string(blob[18:]), ds3.ProductString)
	assert.Equal(t, byte(0), blob[len(blob)-1], "nul-terminated")
}
