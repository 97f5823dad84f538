package spywrap

import "fmt"

// Status codes returned by libairspy. The adapter passes them through untouched.
const (
	AirspySuccess                 = 0
	AirspyTrue                    = 1
	AirspyErrorInvalidParam       = -2
	AirspyErrorNotFound           = -5
	AirspyErrorBusy               = -6
	AirspyErrorNoMem              = -11
	AirspyErrorLibusb             = -1000
	AirspyErrorThread             = -1001
	AirspyErrorStreamingThreadErr = -1002
	AirspyErrorStreamingStopped   = -1003
	AirspyErrorOther              = -9999
)

const (
	AirspyBoardIdProtoAirspy = 0
	AirspyBoardIdInvalid     = 0xFF
)

// SampleType is the sample format the native library delivers in a Transfer.
type SampleType int

const (
	AirspySampleFloat32Iq   SampleType = 0 /* 2 * 32bit float per sample */
	AirspySampleFloat32Real SampleType = 1 /* 1 * 32bit float per sample */
	AirspySampleInt16Iq     SampleType = 2 /* 2 * 16bit int per sample */
	AirspySampleInt16Real   SampleType = 3 /* 1 * 16bit int per sample */
	AirspySampleUint16Real  SampleType = 4 /* 1 * 16bit unsigned int per sample */
	AirspySampleRaw         SampleType = 5 /* Raw packed samples from the device */
	AirspySampleEnd         SampleType = 6 /* Number of supported sample types */
)

var errorNames = map[int]string{
	AirspySuccess:                 "AIRSPY_SUCCESS",
	AirspyTrue:                    "AIRSPY_TRUE",
	AirspyErrorInvalidParam:       "AIRSPY_ERROR_INVALID_PARAM",
	AirspyErrorNotFound:           "AIRSPY_ERROR_NOT_FOUND",
	AirspyErrorBusy:               "AIRSPY_ERROR_BUSY",
	AirspyErrorNoMem:              "AIRSPY_ERROR_NO_MEM",
	AirspyErrorLibusb:             "AIRSPY_ERROR_LIBUSB",
	AirspyErrorThread:             "AIRSPY_ERROR_THREAD",
	AirspyErrorStreamingThreadErr: "AIRSPY_ERROR_STREAMING_THREAD_ERR",
	AirspyErrorStreamingStopped:   "AIRSPY_ERROR_STREAMING_STOPPED",
	AirspyErrorOther:              "AIRSPY_ERROR_OTHER",
}

// ErrorName returns the libairspy name of a status code, matching airspy_error_name.
func ErrorName(code int) string {
	if name, ok := errorNames[code]; ok {
		return name
	}
	return "airspy unknown error"
}

// BoardIDName matches airspy_board_id_name.
func BoardIDName(id uint8) string {
	switch id {
	case AirspyBoardIdProtoAirspy:
		return "AIRSPY"
	case AirspyBoardIdInvalid:
		return "Invalid Board ID"
	default:
		return "Unknown Board ID"
	}
}

func (t SampleType) String() string {
	switch t {
	case AirspySampleFloat32Iq:
		return "float32-iq"
	case AirspySampleFloat32Real:
		return "float32-real"
	case AirspySampleInt16Iq:
		return "int16-iq"
	case AirspySampleInt16Real:
		return "int16-real"
	case AirspySampleUint16Real:
		return "uint16-real"
	case AirspySampleRaw:
		return "raw"
	}
	return fmt.Sprintf("SampleType(%d)", int(t))
}

// ParseSampleType is the inverse of SampleType.String.
func ParseSampleType(s string) (SampleType, error) {
	for t := AirspySampleFloat32Iq; t < AirspySampleEnd; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return AirspySampleEnd, fmt.Errorf("unknown sample type %q", s)
}
