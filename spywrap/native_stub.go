//go:build !cgo || !airspy

package spywrap

import "unsafe"

// unavailableDriver answers every call with AirspyErrorOther.
// It is used when the binary is built without cgo or without the airspy build tag.
type unavailableDriver struct{}

// Native returns the libairspy binding. This build has none.
func Native() Driver {
	return unavailableDriver{}
}

func (unavailableDriver) Init() int              { return AirspyErrorOther }
func (unavailableDriver) Exit() int              { return AirspySuccess }
func (unavailableDriver) LibVersion() LibVersion { return LibVersion{} }

func (unavailableDriver) OpenDevice() *OpenResult {
	return NewOpenResult(nil, AirspyErrorOther, nil)
}

func (unavailableDriver) OpenDeviceBySerial(uint64) *OpenResult {
	return NewOpenResult(nil, AirspyErrorOther, nil)
}

func (unavailableDriver) FreeOpenResult(*OpenResult) {}

func (unavailableDriver) Close(DeviceHandle) int { return AirspyErrorOther }

func (unavailableDriver) BoardIDRead(DeviceHandle) (uint8, int) {
	return AirspyBoardIdInvalid, AirspyErrorOther
}

func (unavailableDriver) VersionStringRead(DeviceHandle) (string, int) {
	return "", AirspyErrorOther
}

func (unavailableDriver) BoardPartIDSerialNoRead(DeviceHandle) (PartIDSerialNo, int) {
	return PartIDSerialNo{}, AirspyErrorOther
}

func (unavailableDriver) GetSampleRates(DeviceHandle) ([]uint32, int) {
	return nil, AirspyErrorOther
}

func (unavailableDriver) SetSampleRate(DeviceHandle, uint32) int     { return AirspyErrorOther }
func (unavailableDriver) SetSampleType(DeviceHandle, SampleType) int { return AirspyErrorOther }
func (unavailableDriver) SetFreq(DeviceHandle, uint32) int           { return AirspyErrorOther }
func (unavailableDriver) SetLNAGain(DeviceHandle, uint8) int         { return AirspyErrorOther }
func (unavailableDriver) SetMixerGain(DeviceHandle, uint8) int       { return AirspyErrorOther }
func (unavailableDriver) SetVGAGain(DeviceHandle, uint8) int         { return AirspyErrorOther }
func (unavailableDriver) SetLinearityGain(DeviceHandle, uint8) int   { return AirspyErrorOther }
func (unavailableDriver) SetSensitivityGain(DeviceHandle, uint8) int { return AirspyErrorOther }
func (unavailableDriver) SetLNAAGC(DeviceHandle, uint8) int          { return AirspyErrorOther }
func (unavailableDriver) SetMixerAGC(DeviceHandle, uint8) int        { return AirspyErrorOther }
func (unavailableDriver) SetRFBias(DeviceHandle, uint8) int          { return AirspyErrorOther }

func (unavailableDriver) StartRx(DeviceHandle, unsafe.Pointer) int { return AirspyErrorOther }
func (unavailableDriver) StopRx(DeviceHandle) int                  { return AirspyErrorOther }
func (unavailableDriver) IsStreaming(DeviceHandle) int             { return AirspySuccess }
