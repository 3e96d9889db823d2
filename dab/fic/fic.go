package fic

import (
	"encoding/binary"

	"github.com/howeyc/crc16"
)

// FIB is 30 content bytes + a 2-byte CRC16-CCITT.
const fibSize = 30
const fibBlockSize = fibSize + 2

// fibCRC validates fibSize content bytes against the trailing CRC word,
// the same `crc16.ChecksumCCITTFalse(...) ^ 0xFFFF` pattern edisplitter.go
// uses at every protocol layer (ParseFib).
func fibCRC(fib []byte) bool {
	want := binary.BigEndian.Uint16(fib[fibSize:fibBlockSize])
	got := crc16.ChecksumCCITTFalse(fib[:fibSize]) ^ 0xFFFF
	return got == want
}

// Logger is the minimal logging surface this package needs; satisfied
// structurally by the root package's injectable logger.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

// Decoder parses a stream of FIC byte blocks into Ensemble updates.
type Decoder struct {
	ensemble *Ensemble
	log      Logger
}

// NewDecoder builds a FIC decoder writing into ensemble.
func NewDecoder(ensemble *Ensemble, log Logger) *Decoder {
	if log == nil {
		log = nopLogger{}
	}
	return &Decoder{ensemble: ensemble, log: log}
}

// Feed decodes one DETI-delivered FIC block (a concatenation of FIBs)
// and applies every well-formed FIG within each valid FIB to the
// ensemble, ticking the rate limiter once per FIB.
func (d *Decoder) Feed(fic []byte) error {
	if len(fic)%fibBlockSize != 0 {
		return ErrShortFIB
	}
	for off := 0; off < len(fic); off += fibBlockSize {
		fib := fic[off : off+fibBlockSize]
		if !fibCRC(fib) {
			d.log.Warn("fic: dropping FIB with bad CRC")
			d.ensemble.Tick()
			continue
		}
		d.decodeFIGs(fib[:fibSize])
		d.ensemble.Tick()
	}
	return nil
}

// decodeFIGs walks the FIGs packed into one 30-byte FIB, stopping at the
// end-of-FIB sentinel (header byte 0xFF, i.e. type 7 length 31) or when
// bytes run out.
func (d *Decoder) decodeFIGs(fib []byte) {
	pos := 0
	for pos < len(fib) {
		header := fib[pos]
		if header == 0xFF {
			break
		}
		figType := header >> 5
		length := int(header & 0x1F)
		pos++
		if pos+length > len(fib) {
			d.log.Warn("fic: truncated FIG, type=%d length=%d", figType, length)
			break
		}
		body := fib[pos : pos+length]
		pos += length
		switch figType {
		case 0:
			d.decodeFIG0(body)
		case 1:
			d.decodeFIG1(body)
		default:
			// Other FIG types (2, MCI continuation, etc.) carry no
			// fields this decoder models and are ignored silently.
		}
	}
}
