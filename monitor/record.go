package monitor

import (
	"encoding/hex"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/ardnew/softtwi/pkg"
)

// HexBytes is a byte slice that marshals to a hex string.
type HexBytes []byte

// MarshalText implements encoding.TextMarshaler.
func (h HexBytes) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(h)))
	hex.Encode(out, h)
	return out, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HexBytes) UnmarshalText(text []byte) error {
	b := make([]byte, hex.DecodedLen(len(text)))
	if _, err := hex.Decode(b, text); err != nil {
		return fmt.Errorf("hex bytes: %w", err)
	}
	*h = b
	return nil
}

// Record is one completed transaction as seen by the slave.
type Record struct {
	ID      int64       `json:"id,omitempty"`
	Time    time.Time   `json:"time"`
	Outcome pkg.Outcome `json:"outcome"`
	Address int         `json:"address"`
	Count   int         `json:"count"`
	Data    HexBytes    `json:"data,omitempty"`
	Fault   string      `json:"fault,omitempty"`
}

// Record wire format field numbers.
const (
	fieldTime    protowire.Number = 1
	fieldOutcome protowire.Number = 2
	fieldAddress protowire.Number = 3
	fieldCount   protowire.Number = 4
	fieldData    protowire.Number = 5
	fieldFault   protowire.Number = 6
)

// MarshalBinary encodes the record in protobuf wire format. ID is not
// encoded; it belongs to the journal row.
func (r Record) MarshalBinary() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldTime, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Time.UnixNano()))
	b = protowire.AppendTag(b, fieldOutcome, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Outcome))
	b = protowire.AppendTag(b, fieldAddress, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Address))
	b = protowire.AppendTag(b, fieldCount, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Count))
	if len(r.Data) > 0 {
		b = protowire.AppendTag(b, fieldData, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Data)
	}
	if r.Fault != "" {
		b = protowire.AppendTag(b, fieldFault, protowire.BytesType)
		b = protowire.AppendString(b, r.Fault)
	}
	return b, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary. Unknown
// fields are skipped.
func (r *Record) UnmarshalBinary(b []byte) error {
	*r = Record{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("record tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && num <= fieldCount:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("record field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldTime:
				r.Time = time.Unix(0, int64(v)).UTC()
			case fieldOutcome:
				r.Outcome = pkg.Outcome(v)
			case fieldAddress:
				r.Address = int(v)
			case fieldCount:
				r.Count = int(v)
			}

		case typ == protowire.BytesType && (num == fieldData || num == fieldFault):
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("record field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			if num == fieldData {
				r.Data = append(HexBytes(nil), v...)
			} else {
				r.Fault = string(v)
			}

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("record field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}
