package spytypes

import "fmt"

// ComplexInt16 is a Complex Number in a signed 16 bit number
type ComplexInt16 struct {
	Real int16
	Imag int16
}

// ComplexUInt16 is a Complex Number in a unsigned 16 bit number
type ComplexUInt16 struct {
	Real uint16
	Imag uint16
}

// ComplexUInt8 is a Complex Number in a unsigned 8 bit number
// In this case the value 0 is in variable half-way (127)
type ComplexUInt8 struct {
	Real uint8
	Imag uint8
}

// SampleKind tells a Callback which slice type OnData carries.
type SampleKind int

const (
	// SamplesComplex64 carries []complex64
	SamplesComplex64 SampleKind = iota
	// SamplesFloat32 carries []float32
	SamplesFloat32
	// SamplesComplex32 carries []ComplexInt16
	SamplesComplex32
	// SamplesInt16 carries []int16
	SamplesInt16
	// SamplesUInt16 carries []uint16
	SamplesUInt16
	// SamplesComplexUInt8 carries []ComplexUInt8
	SamplesComplexUInt8
	// SamplesBytes carries []byte
	SamplesBytes
	// FFTUInt8 carries []uint8 FFT bins
	FFTUInt8
	// DeviceSync carries nil
	DeviceSync
)

var kindNames = [...]string{
	SamplesComplex64:    "complex64",
	SamplesFloat32:      "float32",
	SamplesComplex32:    "complex-int16",
	SamplesInt16:        "int16",
	SamplesUInt16:       "uint16",
	SamplesComplexUInt8: "complex-uint8",
	SamplesBytes:        "bytes",
	FFTUInt8:            "fft-uint8",
	DeviceSync:          "device-sync",
}

func (k SampleKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("SampleKind(%d)", int(k))
}

// Callback receives data from an airspy device or a spyserver connection.
type Callback interface {
	OnData(kind SampleKind, data interface{})
}

// CallbackFunc adapts a function to Callback.
type CallbackFunc func(kind SampleKind, data interface{})

// OnData calls f.
func (f CallbackFunc) OnData(kind SampleKind, data interface{}) {
	f(kind, data)
}

// Len returns the number of samples in data, or 0 for an unknown type.
func Len(data interface{}) int {
	switch v := data.(type) {
	case []complex64:
		return len(v)
	case []float32:
		return len(v)
	case []ComplexInt16:
		return len(v)
	case []int16:
		return len(v)
	case []uint16:
		return len(v)
	case []ComplexUInt8:
		return len(v)
	case []byte:
		return len(v)
	}
	return 0
}
