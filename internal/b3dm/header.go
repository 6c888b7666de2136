package b3dm

import (
	"encoding/binary"
	"errors"
)

// HeaderByteLength is the fixed size of a Batched 3D Model header.
const HeaderByteLength = 28

// Magic is the standard b3dm magic, "b3dm" read as a little-endian uint32.
var Magic = binary.LittleEndian.Uint32([]byte("b3dm"))

var ErrMalformedContainer = errors.New("malformed b3dm container")

// Contains the fixed-layout header of a b3dm tile. Fields are stored little-endian,
// four bytes each, in declaration order.
type Header struct {
	Magic                        uint32
	Version                      uint32
	ByteLength                   uint32
	FeatureTableJSONByteLength   uint32
	FeatureTableBinaryByteLength uint32
	BatchTableJSONByteLength     uint32
	BatchTableBinaryByteLength   uint32
}

// Some corpora carry nonstandard magics, callers decide whether that matters.
func (h Header) HasStandardMagic() bool {
	return h.Magic == Magic
}

func (h Header) FeatureTableByteLength() int {
	return int(h.FeatureTableJSONByteLength) + int(h.FeatureTableBinaryByteLength)
}

func (h Header) BatchTableByteLength() int {
	return int(h.BatchTableJSONByteLength) + int(h.BatchTableBinaryByteLength)
}

func (h Header) FeatureTableStart() int {
	return HeaderByteLength
}

func (h Header) BatchTableStart() int {
	return h.FeatureTableStart() + h.FeatureTableByteLength()
}

func (h Header) PayloadStart() int {
	return h.BatchTableStart() + h.BatchTableByteLength()
}

func (h Header) PayloadEnd() int {
	return int(h.ByteLength)
}

func (h Header) marshal() []byte {
	out := make([]byte, HeaderByteLength)
	fields := []uint32{
		h.Magic,
		h.Version,
		h.ByteLength,
		h.FeatureTableJSONByteLength,
		h.FeatureTableBinaryByteLength,
		h.BatchTableJSONByteLength,
		h.BatchTableBinaryByteLength,
	}
	for i, v := range fields {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func unmarshalHeader(data []byte) Header {
	return Header{
		Magic:                        binary.LittleEndian.Uint32(data[0:4]),
		Version:                      binary.LittleEndian.Uint32(data[4:8]),
		ByteLength:                   binary.LittleEndian.Uint32(data[8:12]),
		FeatureTableJSONByteLength:   binary.LittleEndian.Uint32(data[12:16]),
		FeatureTableBinaryByteLength: binary.LittleEndian.Uint32(data[16:20]),
		BatchTableJSONByteLength:     binary.LittleEndian.Uint32(data[20:24]),
		BatchTableBinaryByteLength:   binary.LittleEndian.Uint32(data[24:28]),
	}
}
