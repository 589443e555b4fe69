package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/andresousadotpt/hkd/internal/binding"
	"github.com/andresousadotpt/hkd/internal/keys"
	"github.com/andresousadotpt/hkd/internal/remap"
	"github.com/andresousadotpt/hkd/internal/taphold"
)

// Injector synthesizes key and button events on the output side.
type Injector interface {
	Inject(id keys.Identity, dir keys.Direction) error
}

// Executor runs a bound action. Execute must return without waiting for the
// action to finish.
type Executor interface {
	Execute(b binding.Binding)
}

// Config is everything a Dispatcher needs. Tables are shared read-only.
type Config struct {
	Bindings *binding.Table
	Remaps   *remap.Table
	TapHold  *taphold.Machine
	Policy   binding.LockPolicy

	// Locks is the lock state observed when capture started.
	Locks keys.Locks

	// Injector receives synthesized tap keys and, with PassThrough, every
	// forwarded event. It may be nil when neither is needed.
	Injector Injector
	Executor Executor

	// PassThrough re-emits forwarded events of grabbed devices through
	// Injector. A press consumed by a binding is not re-emitted and neither
	// is its release.
	PassThrough bool

	Log *logrus.Entry
}

// Stats counts what a Dispatcher did.
type Stats struct {
	Events  uint64
	Matched uint64
	Tapped  uint64
}

// Dispatcher consumes captured events in order. All of its state is owned
// by the goroutine calling Handle or Run.
type Dispatcher struct {
	cfg      Config
	state    *keys.State
	consumed map[keys.Identity]bool
	stats    Stats
	log      *logrus.Entry
}

func NewDispatcher(cfg Config) *Dispatcher {
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Dispatcher{
		cfg:      cfg,
		state:    keys.NewState(cfg.Locks),
		consumed: make(map[keys.Identity]bool),
		log:      log.WithField("component", "dispatch"),
	}
}

// Run handles events until in is closed.
func (d *Dispatcher) Run(in <-chan keys.Event) {
	for ev := range in {
		d.Handle(ev)
	}
	d.log.WithFields(logrus.Fields{
		"events":  d.stats.Events,
		"matched": d.stats.Matched,
		"tapped":  d.stats.Tapped,
	}).Debug("dispatcher drained")
}

func (d *Dispatcher) Stats() Stats { return d.stats }

// Mask is the modifier mask currently active, locks included.
func (d *Dispatcher) Mask() keys.Mask { return d.state.Mask() }

// Handle remaps ev, runs it through the tap/hold automaton and matches each
// resulting logical event against the binding table.
func (d *Dispatcher) Handle(ev keys.Event) {
	d.stats.Events++
	ev.ID = d.cfg.Remaps.Apply(ev.ID)

	if d.cfg.TapHold == nil {
		d.forward(ev)
		return
	}
	for _, out := range d.cfg.TapHold.Feed(ev) {
		switch out.Kind {
		case taphold.Suppress:
			d.log.WithField("key", out.Event.ID).Trace("suppressed")
		case taphold.Synthesize:
			if out.Event.Dir == keys.Press {
				d.stats.Tapped++
			}
			matched := d.logical(out.Event)
			if d.cfg.PassThrough {
				d.passThrough(out.Event, matched)
			} else {
				d.inject(out.Event)
			}
		case taphold.Forward:
			d.forward(out.Event)
		}
	}
}

func (d *Dispatcher) forward(ev keys.Event) {
	matched := d.logical(ev)
	if d.cfg.PassThrough && ev.Grabbed {
		d.passThrough(ev, matched)
	}
}

// passThrough re-emits ev unless a binding consumed it. A release is only
// swallowed when its press was, so no re-emitted key is left held.
func (d *Dispatcher) passThrough(ev keys.Event, matched bool) {
	switch ev.Dir {
	case keys.Press:
		if matched {
			d.consumed[ev.ID] = true
			return
		}
	case keys.Release:
		if d.consumed[ev.ID] {
			delete(d.consumed, ev.ID)
			return
		}
	}
	d.inject(ev)
}

// logical matches one logical event and updates the modifier state. The
// mask used for matching is the one in effect before ev, so a modifier's own
// press is matched without itself.
func (d *Dispatcher) logical(ev keys.Event) bool {
	active := d.state.Mask()
	d.state.Update(ev)

	b, ok := d.cfg.Bindings.Match(active, ev.ID, ev.Dir, d.cfg.Policy)
	if !ok {
		if d.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
			d.log.WithFields(logrus.Fields{
				"key":  keys.DisplayName(ev.ID, d.state.Locks()),
				"dir":  ev.Dir,
				"mask": active,
			}).Trace("no binding")
		}
		return false
	}
	d.stats.Matched++
	d.log.WithFields(logrus.Fields{
		"trigger": b.Trigger,
		"line":    b.Line,
	}).Debug("matched")
	if d.cfg.Executor != nil {
		d.cfg.Executor.Execute(b)
	}
	return true
}

func (d *Dispatcher) inject(ev keys.Event) {
	if d.cfg.Injector == nil {
		return
	}
	if err := d.cfg.Injector.Inject(ev.ID, ev.Dir); err != nil {
		d.log.WithError(err).WithField("key", ev.ID).Error("inject failed")
	}
}
