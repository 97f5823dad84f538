package airspy

import (
	"errors"
	"fmt"

	"github.com/racerxdl/spyadapter/spywrap"
)

var (
	ErrInvalidParam     = errors.New("airspy: invalid parameter")
	ErrNotFound         = errors.New("airspy: device not found")
	ErrBusy             = errors.New("airspy: device busy")
	ErrNoMem            = errors.New("airspy: out of memory")
	ErrLibusb           = errors.New("airspy: libusb error")
	ErrThread           = errors.New("airspy: thread error")
	ErrStreamingThread  = errors.New("airspy: streaming thread error")
	ErrStreamingStopped = errors.New("airspy: streaming stopped")
	ErrOther            = errors.New("airspy: unspecified error")
)

var sentinels = map[int]error{
	spywrap.AirspyErrorInvalidParam:       ErrInvalidParam,
	spywrap.AirspyErrorNotFound:           ErrNotFound,
	spywrap.AirspyErrorBusy:               ErrBusy,
	spywrap.AirspyErrorNoMem:              ErrNoMem,
	spywrap.AirspyErrorLibusb:             ErrLibusb,
	spywrap.AirspyErrorThread:             ErrThread,
	spywrap.AirspyErrorStreamingThreadErr: ErrStreamingThread,
	spywrap.AirspyErrorStreamingStopped:   ErrStreamingStopped,
	spywrap.AirspyErrorOther:              ErrOther,
}

// StatusError is a failed libairspy call.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("airspy_%s: %s (%d)", e.Op, spywrap.ErrorName(e.Code), e.Code)
}

// Is matches the sentinel error of the status code.
func (e *StatusError) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

func check(op string, code int) error {
	if code == spywrap.AirspySuccess {
		return nil
	}
	return &StatusError{Op: op, Code: code}
}
