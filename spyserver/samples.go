package spyserver

import (
	"encoding/binary"
	"math"

	"github.com/racerxdl/spyadapter/spytypes"
)

func decodeUint8IQ(body []byte) []spytypes.ComplexUInt8 {
	out := make([]spytypes.ComplexUInt8, len(body)/2)
	for i := range out {
		out[i] = spytypes.ComplexUInt8{
			Real: body[i*2],
			Imag: body[i*2+1],
		}
	}
	return out
}

func decodeInt16IQ(body []byte) []spytypes.ComplexInt16 {
	out := make([]spytypes.ComplexInt16, len(body)/4)
	for i := range out {
		out[i] = spytypes.ComplexInt16{
			Real: int16(binary.LittleEndian.Uint16(body[i*4:])),
			Imag: int16(binary.LittleEndian.Uint16(body[i*4+2:])),
		}
	}
	return out
}

func decodeFloatIQ(body []byte) []complex64 {
	out := make([]complex64, len(body)/8)
	for i := range out {
		re := math.Float32frombits(binary.LittleEndian.Uint32(body[i*8:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(body[i*8+4:]))
		out[i] = complex(re, im)
	}
	return out
}
