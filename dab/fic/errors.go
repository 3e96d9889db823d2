package fic

import "errors"

// ErrShortFIB is returned when a FIC byte block is not a multiple of
// 32 bytes (30-byte FIB + 2-byte CRC).
var ErrShortFIB = errors.New("fic: FIC length is not a multiple of 32 bytes")
