// Package dab wires the FIC, MSC superframe and X-PAD decoders together
// behind a single byte-stream intake: AF/PFT frame sync, EDI tag-packet
// demultiplexing, DETI record decoding, and synchronous event dispatch.
package dab

import (
	"time"

	"github.com/ohrstrom/edinburgh/dab/fic"
	"github.com/ohrstrom/edinburgh/dab/pad"
)

// Clock supplies wall-clock milliseconds. Tests inject a fake clock to
// drive the ensemble-update rate limiter and (eventually) the PFT
// reassembly timeout deterministically; production use leaves it nil
// and gets the real wall clock.
type Clock interface {
	NowMillis() int64
}

type systemClock struct{}

func (systemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// Logger is the optional diagnostic hook passed to Config. Left nil, a
// Decoder discards everything it would have logged.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

// Config is a typed event sink: one optional callback per event kind,
// invoked synchronously from within Feed. There is no listener
// registry or class hierarchy; a caller that needs multiple
// subscribers for one kind composes its own fan-out closure before
// passing it in.
type Config struct {
	Clock  Clock
	Logger Logger

	OnEnsembleUpdated func(fic.EnsembleSnapshot)
	OnAacSegment      func(AacSegment)
	OnDlObject        func(pad.DLObject)
	OnMotImage        func(pad.MotImage)
	OnUnknownFrame    func(UnknownFrame)
	OnResyncLoss      func(ResyncLoss)
	OnInternalError   func(InternalError)
}
