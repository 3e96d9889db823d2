// Package fic decodes the Fast Information Channel: FIB framing, FIG 0
// and FIG 1 extensions, and the live Ensemble/Service/ServiceComponent/
// Subchannel model they build up.
package fic

import (
	"sort"
	"time"

	"github.com/ohrstrom/edinburgh/dab/msc"
)

// Clock supplies wall-clock milliseconds for the EnsembleUpdated
// rate limiter. Satisfied structurally by the root package's injectable
// clock (no import needed: same single-method shape).
type Clock interface {
	NowMillis() int64
}

type systemClock struct{}

func (systemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// Timestamp is the FIG 0/10 date & time, decoded from the Modified
// Julian Day + UTC fields (a supplemented feature, see SPEC_FULL.md).
type Timestamp struct {
	Year, Month, Day   int
	Hour, Minute       int
	Second             int // only present in the long form
	HasSeconds         bool
}

// Subchannel is a fixed-bandwidth slice of the MSC, derived from FIG 0/1.
type Subchannel struct {
	ID      uint8
	Start   uint16 // CU address, 0..863
	Size    uint16 // CUs
	Bitrate uint16
	PL      string // e.g. "EEP 3-A", "UEP 5"
}

// ServiceComponent is one component of a Service, keyed by scid.
type ServiceComponent struct {
	SCID          uint8
	HasSubchannel bool
	SubchannelID  uint8
	HasLanguage   bool
	Language      string
	UserApps      []string
	AudioFormat   *msc.AudioFormat

	// ComponentLabel/ComponentShortLabel come from FIG 1/4, a
	// supplemented feature absent from original_source.
	ComponentLabel      string
	ComponentShortLabel string

	sid   uint32 // owning service, for FIG 0/8 scid resolution
	scids uint8  // SCIdS within the owning service
}

// Service is a programme or data service, keyed by SID.
type Service struct {
	SID           uint32
	HasLabel      bool
	Label         string
	HasShortLabel bool
	ShortLabel    string
	Components    map[uint8]*ServiceComponent // keyed by scid
}

// Ensemble is the root directory built from FIC content.
type Ensemble struct {
	HasEID        bool
	EID           uint16
	HasLabel      bool
	Label         string
	HasShortLabel bool
	ShortLabel    string
	AlarmFlag     bool
	HasECC        bool
	ECC           uint8
	UTCTime       *Timestamp

	Services    map[uint32]*Service
	Subchannels map[uint8]*Subchannel

	// scidBySIDComponent maps (SID, SCIdS) -> scid, populated by FIG 0/8.
	scidBySIDComponent map[sidComponentKey]uint8
	// packetSubchannelBySCId maps a FIG 0/3 12-bit SCId to the
	// subchannel carrying it, for fig0_8 to resolve against.
	packetSubchannelBySCId map[uint16]uint8

	// UnknownCharsetCount counts FIG 1 labels decoded under a charset
	// selector this library does not recognize (see pad.DecodeChars).
	UnknownCharsetCount uint64
	// SubchannelConflictCount counts FIG 0/1 re-announcements of an
	// already-known subchannel with different parameters; the new
	// values win but the occurrence is tallied here.
	SubchannelConflictCount uint64

	clock        Clock
	fibsSinceFire int
	lastFireMs   int64
	dirty        bool
	onUpdate     func(EnsembleSnapshot)
}

type sidComponentKey struct {
	sid   uint32
	scids uint8
}

// rateLimitFIBs / rateLimitMillis implement a "one event per N FIBs or
// per 200 ms, whichever is sooner" coalescing rule, so a burst of
// re-announced FIGs doesn't fire an update per FIG. N is chosen as 16
// (roughly one ensemble-scale update window at the FIB rate of 3 per
// 24 ms frame).
const (
	rateLimitFIBs   = 16
	rateLimitMillis = 200
)

// NewEnsemble constructs an empty ensemble. onUpdate, if non-nil, is
// invoked with a snapshot each time accumulated changes are flushed
// under the rate limiter (see Tick).
func NewEnsemble(clock Clock, onUpdate func(EnsembleSnapshot)) *Ensemble {
	if clock == nil {
		clock = systemClock{}
	}
	return &Ensemble{
		Services:               make(map[uint32]*Service),
		Subchannels:            make(map[uint8]*Subchannel),
		scidBySIDComponent:     make(map[sidComponentKey]uint8),
		packetSubchannelBySCId: make(map[uint16]uint8),
		clock:                  clock,
		onUpdate:               onUpdate,
	}
}

// setPacketSubchannel records the subchannel carrying a FIG 0/3 packet
// mode SCId.
func (e *Ensemble) setPacketSubchannel(scid uint16, subchannelID uint8) {
	e.packetSubchannelBySCId[scid] = subchannelID
}

// packetSubchannel looks up the subchannel recorded for a packet mode
// SCId by a prior FIG 0/3.
func (e *Ensemble) packetSubchannel(scid uint16) (uint8, bool) {
	v, ok := e.packetSubchannelBySCId[scid]
	return v, ok
}

// Reset clears all ensemble state back to empty; it does not
// unregister the onUpdate callback.
func (e *Ensemble) Reset() {
	cb := e.onUpdate
	clk := e.clock
	*e = *NewEnsemble(clk, cb)
}

// markDirty flags that a field actually changed (vs re-announcement of
// the same value), so idempotent re-announcements never fire an update.
func (e *Ensemble) markDirty() { e.dirty = true }

// service returns (creating if absent) the Service for sid.
func (e *Ensemble) service(sid uint32) *Service {
	s, ok := e.Services[sid]
	if !ok {
		s = &Service{SID: sid, Components: make(map[uint8]*ServiceComponent)}
		e.Services[sid] = s
	}
	return s
}

// component returns (creating if absent) the ServiceComponent scid
// within service sid.
func (e *Ensemble) component(sid uint32, scid uint8) *ServiceComponent {
	s := e.service(sid)
	c, ok := s.Components[scid]
	if !ok {
		c = &ServiceComponent{SCID: scid, sid: sid}
		s.Components[scid] = c
	}
	return c
}

// ResolveSCID returns the scid mapped to (sid, scids) by a prior FIG 0/8,
// per the Open Question in DESIGN.md.
func (e *Ensemble) ResolveSCID(sid uint32, scids uint8) (uint8, bool) {
	v, ok := e.scidBySIDComponent[sidComponentKey{sid, scids}]
	return v, ok
}

// Tick should be called once per FIB processed; it flushes a pending
// EnsembleUpdated snapshot once the rate-limit window elapses.
func (e *Ensemble) Tick() {
	e.fibsSinceFire++
	if !e.dirty {
		return
	}
	now := e.clock.NowMillis()
	if e.fibsSinceFire >= rateLimitFIBs || now-e.lastFireMs >= rateLimitMillis {
		e.flush(now)
	}
}

func (e *Ensemble) flush(now int64) {
	e.dirty = false
	e.fibsSinceFire = 0
	e.lastFireMs = now
	if e.onUpdate != nil {
		e.onUpdate(e.Snapshot())
	}
}

// EnsembleSnapshot is an immutable point-in-time copy of the ensemble,
// handed to listeners instead of a live mutable reference so callbacks
// can't observe a partially-updated model.
type EnsembleSnapshot struct {
	EID         uint16
	HasEID      bool
	Label       string
	HasLabel    bool
	ShortLabel  string
	AlarmFlag   bool
	ECC         uint8
	HasECC      bool
	UTCTime     *Timestamp
	Services    []ServiceSnapshot
	Subchannels []Subchannel

	UnknownCharsetCount     uint64
	SubchannelConflictCount uint64
}

// ServiceSnapshot is the immutable view of a Service within a snapshot.
type ServiceSnapshot struct {
	SID        uint32
	Label      string
	HasLabel   bool
	ShortLabel string
	Components []ServiceComponent
}

// Snapshot copies the current ensemble state into an EnsembleSnapshot,
// with services/components/subchannels sorted by id for determinism.
func (e *Ensemble) Snapshot() EnsembleSnapshot {
	snap := EnsembleSnapshot{
		EID: e.EID, HasEID: e.HasEID,
		Label: e.Label, HasLabel: e.HasLabel,
		ShortLabel: e.ShortLabel,
		AlarmFlag:  e.AlarmFlag,
		ECC:        e.ECC, HasECC: e.HasECC,
		UTCTime: e.UTCTime,

		UnknownCharsetCount:     e.UnknownCharsetCount,
		SubchannelConflictCount: e.SubchannelConflictCount,
	}
	sids := make([]uint32, 0, len(e.Services))
	for sid := range e.Services {
		sids = append(sids, sid)
	}
	sort.Slice(sids, func(i, j int) bool { return sids[i] < sids[j] })
	for _, sid := range sids {
		s := e.Services[sid]
		ss := ServiceSnapshot{SID: s.SID, Label: s.Label, HasLabel: s.HasLabel, ShortLabel: s.ShortLabel}
		scids := make([]uint8, 0, len(s.Components))
		for scid := range s.Components {
			scids = append(scids, scid)
		}
		sort.Slice(scids, func(i, j int) bool { return scids[i] < scids[j] })
		for _, scid := range scids {
			ss.Components = append(ss.Components, *s.Components[scid])
		}
		snap.Services = append(snap.Services, ss)
	}
	ids := make([]uint8, 0, len(e.Subchannels))
	for id := range e.Subchannels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		snap.Subchannels = append(snap.Subchannels, *e.Subchannels[id])
	}
	return snap
}
