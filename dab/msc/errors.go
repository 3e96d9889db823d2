package msc

import "errors"

var (
	// ErrInvalidFrameLength is returned when the first logical frame fed
	// to an Assembler has a length that cannot divide into a valid
	// 5-frame superframe (ETSI TS 102 563 ties superframe length to
	// 120ms multiples).
	ErrInvalidFrameLength = errors.New("msc: invalid logical frame length")

	// ErrFrameLengthMismatch is returned when a later frame's length
	// differs from the one established by the first Feed call.
	ErrFrameLengthMismatch = errors.New("msc: logical frame length changed mid-stream")
)
