//go:build cgo && airspy

package spywrap

/*
#include <libairspy/airspy.h>
*/
import "C"

import "unsafe"

//export cbProxy
func cbProxy(ctx unsafe.Pointer, transfer *C.airspy_transfer) C.int {
	t := Transfer{
		Device:         DeviceHandle(unsafe.Pointer(transfer.device)),
		Ctx:            ctx,
		Samples:        transfer.samples,
		SampleCount:    int(transfer.sample_count),
		DroppedSamples: uint64(transfer.dropped_samples),
		SampleType:     SampleType(transfer.sample_type),
	}
	return C.int(CallbackTrampoline(&t))
}
