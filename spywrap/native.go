//go:build cgo && airspy

package spywrap

/*
#cgo pkg-config: libairspy
#include <stdlib.h>
#include <libairspy/airspy.h>

typedef struct {
	struct airspy_device* device;
	int result;
} airspy_open_result_t;

extern int cbProxy(void *ctx, airspy_transfer *transfer);

static int cbProxyNative(airspy_transfer *transfer) {
	return cbProxy(transfer->ctx, transfer);
}

// The open calls box the out-parameter so that only single level pointers cross to Go.
static airspy_open_result_t* openDevice() {
	airspy_open_result_t *res = malloc(sizeof(airspy_open_result_t));
	if (res == NULL) {
		return NULL;
	}
	res->device = NULL;
	res->result = airspy_open(&res->device);
	return res;
}

static airspy_open_result_t* openDeviceBySerial(uint64_t serial_number) {
	airspy_open_result_t *res = malloc(sizeof(airspy_open_result_t));
	if (res == NULL) {
		return NULL;
	}
	res->device = NULL;
	res->result = airspy_open_sn(&res->device, serial_number);
	return res;
}

static void freeOpenResult(airspy_open_result_t *d) {
	free(d);
}

static int airspyStart(struct airspy_device* device, void *ctx) {
	return airspy_start_rx(device, cbProxyNative, ctx);
}
*/
import "C"

import "unsafe"

const versionStringLength = 128

type nativeDriver struct{}

// Native returns the libairspy binding.
func Native() Driver {
	return nativeDriver{}
}

func devPtr(dev DeviceHandle) *C.struct_airspy_device {
	return (*C.struct_airspy_device)(unsafe.Pointer(dev))
}

func boxed(res *C.airspy_open_result_t) *OpenResult {
	if res == nil {
		panic("spywrap: out of memory allocating open result")
	}
	return NewOpenResult(DeviceHandle(unsafe.Pointer(res.device)), int(res.result), unsafe.Pointer(res))
}

func (nativeDriver) Init() int {
	return int(C.airspy_init())
}

func (nativeDriver) Exit() int {
	return int(C.airspy_exit())
}

func (nativeDriver) LibVersion() LibVersion {
	var v C.airspy_lib_version_t
	C.airspy_lib_version(&v)
	return LibVersion{
		Major:    uint32(v.major_version),
		Minor:    uint32(v.minor_version),
		Revision: uint32(v.revision),
	}
}

func (nativeDriver) OpenDevice() *OpenResult {
	return boxed(C.openDevice())
}

func (nativeDriver) OpenDeviceBySerial(serialNumber uint64) *OpenResult {
	return boxed(C.openDeviceBySerial(C.uint64_t(serialNumber)))
}

func (nativeDriver) FreeOpenResult(r *OpenResult) {
	C.freeOpenResult((*C.airspy_open_result_t)(r.Box()))
}

func (nativeDriver) Close(dev DeviceHandle) int {
	return int(C.airspy_close(devPtr(dev)))
}

func (nativeDriver) BoardIDRead(dev DeviceHandle) (uint8, int) {
	var id C.uint8_t
	r := C.airspy_board_id_read(devPtr(dev), &id)
	return uint8(id), int(r)
}

func (nativeDriver) VersionStringRead(dev DeviceHandle) (string, int) {
	var buf [versionStringLength]byte
	r := C.airspy_version_string_read(devPtr(dev), (*C.char)(unsafe.Pointer(&buf[0])), C.uint8_t(len(buf)))
	return CharStringToString(buf[:]), int(r)
}

func (nativeDriver) BoardPartIDSerialNoRead(dev DeviceHandle) (PartIDSerialNo, int) {
	var s C.airspy_read_partid_serialno_t
	r := C.airspy_board_partid_serialno_read(devPtr(dev), &s)

	var out PartIDSerialNo
	for i := range out.PartID {
		out.PartID[i] = uint32(s.part_id[i])
	}
	for i := range out.SerialNo {
		out.SerialNo[i] = uint32(s.serial_no[i])
	}
	return out, int(r)
}

func (nativeDriver) GetSampleRates(dev DeviceHandle) ([]uint32, int) {
	var count C.uint32_t
	r := C.airspy_get_samplerates(devPtr(dev), &count, 0)
	if r != AirspySuccess || count == 0 {
		return nil, int(r)
	}

	rates := make([]uint32, count)
	r = C.airspy_get_samplerates(devPtr(dev), (*C.uint32_t)(unsafe.Pointer(&rates[0])), count)
	return rates, int(r)
}

func (nativeDriver) SetSampleRate(dev DeviceHandle, sampleRate uint32) int {
	return int(C.airspy_set_samplerate(devPtr(dev), C.uint32_t(sampleRate)))
}

func (nativeDriver) SetSampleType(dev DeviceHandle, sampleType SampleType) int {
	return int(C.airspy_set_sample_type(devPtr(dev), C.enum_airspy_sample_type(sampleType)))
}

func (nativeDriver) SetFreq(dev DeviceHandle, freqHz uint32) int {
	return int(C.airspy_set_freq(devPtr(dev), C.uint32_t(freqHz)))
}

func (nativeDriver) SetLNAGain(dev DeviceHandle, value uint8) int {
	return int(C.airspy_set_lna_gain(devPtr(dev), C.uint8_t(value)))
}

func (nativeDriver) SetMixerGain(dev DeviceHandle, value uint8) int {
	return int(C.airspy_set_mixer_gain(devPtr(dev), C.uint8_t(value)))
}

func (nativeDriver) SetVGAGain(dev DeviceHandle, value uint8) int {
	return int(C.airspy_set_vga_gain(devPtr(dev), C.uint8_t(value)))
}

func (nativeDriver) SetLinearityGain(dev DeviceHandle, value uint8) int {
	return int(C.airspy_set_linearity_gain(devPtr(dev), C.uint8_t(value)))
}

func (nativeDriver) SetSensitivityGain(dev DeviceHandle, value uint8) int {
	return int(C.airspy_set_sensitivity_gain(devPtr(dev), C.uint8_t(value)))
}

func (nativeDriver) SetLNAAGC(dev DeviceHandle, value uint8) int {
	return int(C.airspy_set_lna_agc(devPtr(dev), C.uint8_t(value)))
}

func (nativeDriver) SetMixerAGC(dev DeviceHandle, value uint8) int {
	return int(C.airspy_set_mixer_agc(devPtr(dev), C.uint8_t(value)))
}

func (nativeDriver) SetRFBias(dev DeviceHandle, value uint8) int {
	return int(C.airspy_set_rf_bias(devPtr(dev), C.uint8_t(value)))
}

func (nativeDriver) StartRx(dev DeviceHandle, ctx unsafe.Pointer) int {
	return int(C.airspyStart(devPtr(dev), ctx))
}

func (nativeDriver) StopRx(dev DeviceHandle) int {
	return int(C.airspy_stop_rx(devPtr(dev)))
}

func (nativeDriver) IsStreaming(dev DeviceHandle) int {
	return int(C.airspy_is_streaming(devPtr(dev)))
}
