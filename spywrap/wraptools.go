package spywrap

import "bytes"

// CharStringToString converts a NUL terminated buffer filled by the native library.
// A buffer without terminator is taken whole.
func CharStringToString(data []byte) string {
	if i := bytes.IndexByte(data, 0x00); i >= 0 {
		return string(data[:i])
	}
	return string(data)
}
