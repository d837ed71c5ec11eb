// Package pbwire contains the small protobuf wire helpers shared by the
// hand-written message codecs of the backup format and the LMDB records.
package pbwire

import (
	"fmt"
	"io"
	"strings"

	"github.com/CrowdStrike/csproto"
)

type ErrUnexpectedWireType struct {
	Tag         int
	WireType    csproto.WireType
	ExpWireType csproto.WireType
}

func (e ErrUnexpectedWireType) Error() string {
	return fmt.Sprintf("unexpected wiretype for tag %d: got %v, expected %v",
		e.Tag, e.WireType, e.ExpWireType)
}

// ExpectWT returns an ErrUnexpectedWireType if got does not match exp
func ExpectWT(tag int, got, exp csproto.WireType) error {
	if got != exp {
		return ErrUnexpectedWireType{
			Tag:         tag,
			WireType:    got,
			ExpWireType: exp,
		}
	}
	return nil
}

// NewDecoder returns a csproto.Decoder in fast mode.
// Returned strings and bytes may alias data.
func NewDecoder(data []byte) *csproto.Decoder {
	d := csproto.NewDecoder(data)
	d.SetMode(csproto.DecoderModeFast)
	return d
}

func GetUInt32(d *csproto.Decoder, tag int, wireType csproto.WireType) (uint32, error) {
	if err := ExpectWT(tag, wireType, csproto.WireTypeVarint); err != nil {
		return 0, err
	}
	return d.DecodeUInt32()
}

func GetUInt64(d *csproto.Decoder, tag int, wireType csproto.WireType) (uint64, error) {
	if err := ExpectWT(tag, wireType, csproto.WireTypeVarint); err != nil {
		return 0, err
	}
	return d.DecodeUInt64()
}

func GetInt64(d *csproto.Decoder, tag int, wireType csproto.WireType) (int64, error) {
	if err := ExpectWT(tag, wireType, csproto.WireTypeVarint); err != nil {
		return 0, err
	}
	return d.DecodeInt64()
}

func GetBool(d *csproto.Decoder, tag int, wireType csproto.WireType) (bool, error) {
	if err := ExpectWT(tag, wireType, csproto.WireTypeVarint); err != nil {
		return false, err
	}
	return d.DecodeBool()
}

func GetFixed64(d *csproto.Decoder, tag int, wireType csproto.WireType) (uint64, error) {
	if err := ExpectWT(tag, wireType, csproto.WireTypeFixed64); err != nil {
		return 0, err
	}
	return d.DecodeFixed64()
}

// GetBytes returns the length delimited value capped to its own length, so
// that an append by the caller never overwrites the data that follows.
func GetBytes(d *csproto.Decoder, tag int, wireType csproto.WireType) ([]byte, error) {
	if err := ExpectWT(tag, wireType, csproto.WireTypeLengthDelimited); err != nil {
		return nil, err
	}
	val, err := d.DecodeBytes()
	if err != nil {
		return nil, err
	}
	n := len(val)
	return val[0:n:n], nil
}

// GetBytesCopy is like GetBytes, but returns a copy that does not alias
// the decoder input. A present but empty value yields a non-nil empty slice.
func GetBytesCopy(d *csproto.Decoder, tag int, wireType csproto.WireType) ([]byte, error) {
	val, err := GetBytes(d, tag, wireType)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func GetString(d *csproto.Decoder, tag int, wireType csproto.WireType) (string, error) {
	if err := ExpectWT(tag, wireType, csproto.WireTypeLengthDelimited); err != nil {
		return "", err
	}
	val, err := d.DecodeString()
	if err != nil {
		return "", err
	}
	// DecoderModeFast may return a string that aliases the input
	return strings.Clone(val), nil
}

// SkipTag returns the number of bytes to skip over the next tag data
func SkipTag(data []byte, wireType csproto.WireType) (skip int, err error) {
	switch wireType {
	case csproto.WireTypeVarint:
		_, n, err := csproto.DecodeVarint(data)
		if err != nil {
			return 0, err
		}
		skip = n
	case csproto.WireTypeLengthDelimited:
		size, n, err := csproto.DecodeVarint(data)
		if err != nil {
			return 0, err
		}
		skip = int(size) + n
	case csproto.WireTypeFixed32:
		skip = 4
	case csproto.WireTypeFixed64:
		skip = 8
	default:
		return 0, fmt.Errorf("unsupported wire type: %v", wireType)
	}
	if skip > len(data) {
		return 0, io.ErrUnexpectedEOF
	}
	return skip, nil
}
