// Package spywrap adapts libairspy to Go.
//
// The adapter boxes the (device, status) pair of an open call into an OpenResult,
// unpacks the serial and part numbers from the raw words the board reports and
// relays the native receive callback to a single registered Go callback.
// Status codes are returned as the native library produced them.
package spywrap

import "unsafe"

// DeviceHandle is an opaque native airspy_device pointer.
type DeviceHandle unsafe.Pointer

// OpenResult boxes the outcome of an open call.
// The caller owns it and must hand it back to ReleaseOpenResult once Device and Result were read.
type OpenResult struct {
	Device DeviceHandle
	Result int

	box      unsafe.Pointer
	released bool
}

// NewOpenResult is used by Driver implementations to build the record they return.
func NewOpenResult(device DeviceHandle, result int, box unsafe.Pointer) *OpenResult {
	return &OpenResult{Device: device, Result: result, box: box}
}

// Box returns the driver allocation backing r.
func (r *OpenResult) Box() unsafe.Pointer {
	return r.box
}

// Transfer mirrors airspy_transfer_t.
// Samples points into driver owned memory that is only valid during the callback.
type Transfer struct {
	Device         DeviceHandle
	Ctx            unsafe.Pointer
	Samples        unsafe.Pointer
	SampleCount    int
	DroppedSamples uint64
	SampleType     SampleType
}

// PartIDSerialNo mirrors airspy_read_partid_serialno_t.
type PartIDSerialNo struct {
	PartID   [2]uint32
	SerialNo [4]uint32
}

// LibVersion mirrors airspy_lib_version_t.
type LibVersion struct {
	Major    uint32
	Minor    uint32
	Revision uint32
}

// Driver is the native airspy surface. Every int result is a libairspy status code.
//
// StartRx must route each completed transfer through CallbackTrampoline with the
// ctx it was given.
type Driver interface {
	Init() int
	Exit() int
	LibVersion() LibVersion

	OpenDevice() *OpenResult
	OpenDeviceBySerial(serialNumber uint64) *OpenResult
	FreeOpenResult(r *OpenResult)
	Close(dev DeviceHandle) int

	BoardIDRead(dev DeviceHandle) (uint8, int)
	VersionStringRead(dev DeviceHandle) (string, int)
	BoardPartIDSerialNoRead(dev DeviceHandle) (PartIDSerialNo, int)
	GetSampleRates(dev DeviceHandle) ([]uint32, int)

	SetSampleRate(dev DeviceHandle, sampleRate uint32) int
	SetSampleType(dev DeviceHandle, sampleType SampleType) int
	SetFreq(dev DeviceHandle, freqHz uint32) int
	SetLNAGain(dev DeviceHandle, value uint8) int
	SetMixerGain(dev DeviceHandle, value uint8) int
	SetVGAGain(dev DeviceHandle, value uint8) int
	SetLinearityGain(dev DeviceHandle, value uint8) int
	SetSensitivityGain(dev DeviceHandle, value uint8) int
	SetLNAAGC(dev DeviceHandle, value uint8) int
	SetMixerAGC(dev DeviceHandle, value uint8) int
	SetRFBias(dev DeviceHandle, value uint8) int

	StartRx(dev DeviceHandle, ctx unsafe.Pointer) int
	StopRx(dev DeviceHandle) int
	IsStreaming(dev DeviceHandle) int
}
