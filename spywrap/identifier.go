package spywrap

// UnpackSerialNumber joins serial_no[3] (high) and serial_no[2] (low).
func UnpackSerialNumber(words []uint32) uint64 {
	return uint64(words[3])<<32 | uint64(words[2])
}

// UnpackPartNumber joins part_id[1] (high) and part_id[0] (low).
func UnpackPartNumber(words []uint32) uint64 {
	return uint64(words[1])<<32 | uint64(words[0])
}
