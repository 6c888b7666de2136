package b3dm

import (
	"bytes"
	"fmt"
)

// SideTables holds the feature and batch tables of a tile. Each table is the JSON segment
// followed by the binary segment, the split is tracked by the header lengths.
type SideTables struct {
	FeatureTable []byte
	BatchTable   []byte
}

// Decode splits a b3dm buffer into its header, side tables and embedded glTF payload.
// The returned slices alias data. Bytes past the header ByteLength are ignored.
func Decode(data []byte) (Header, SideTables, []byte, error) {
	if len(data) < HeaderByteLength {
		return Header{}, SideTables{}, nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrMalformedContainer, len(data), HeaderByteLength)
	}

	header := unmarshalHeader(data)

	payloadStart := header.PayloadStart()
	payloadEnd := header.PayloadEnd()

	if payloadEnd > len(data) {
		return header, SideTables{}, nil, fmt.Errorf("%w: byteLength %d exceeds buffer length %d", ErrMalformedContainer, payloadEnd, len(data))
	}
	if payloadStart > payloadEnd {
		return header, SideTables{}, nil, fmt.Errorf("%w: tables end at %d past byteLength %d", ErrMalformedContainer, payloadStart, payloadEnd)
	}

	tables := SideTables{
		FeatureTable: data[header.FeatureTableStart():header.BatchTableStart()],
		BatchTable:   data[header.BatchTableStart():payloadStart],
	}

	return header, tables, data[payloadStart:payloadEnd], nil
}

// Encode assembles a b3dm buffer. ByteLength is always recomputed from the actual table and
// payload sizes, the table length fields are copied from header unchanged.
func Encode(header Header, tables SideTables, payload []byte) ([]byte, error) {
	if len(tables.FeatureTable) != header.FeatureTableByteLength() {
		return nil, fmt.Errorf("feature table is %d bytes, header declares %d", len(tables.FeatureTable), header.FeatureTableByteLength())
	}
	if len(tables.BatchTable) != header.BatchTableByteLength() {
		return nil, fmt.Errorf("batch table is %d bytes, header declares %d", len(tables.BatchTable), header.BatchTableByteLength())
	}

	byteLength := HeaderByteLength + len(tables.FeatureTable) + len(tables.BatchTable) + len(payload)
	header.ByteLength = uint32(byteLength)

	var buf bytes.Buffer
	buf.Grow(byteLength)
	buf.Write(header.marshal())    // header
	buf.Write(tables.FeatureTable) // feature table json + binary
	buf.Write(tables.BatchTable)   // batch table json + binary
	buf.Write(payload)             // glb

	return buf.Bytes(), nil
}
