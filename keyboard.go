package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	evdev "github.com/holoplot/go-evdev"
	"github.com/sirupsen/logrus"

	"github.com/andresousadotpt/hkd/internal/engine"
	"github.com/andresousadotpt/hkd/internal/keys"
)

const inputDir = "/dev/input"

// deviceKind tells what a device is used for.
type deviceKind int

const (
	kindKeyboard deviceKind = 1 << iota
	kindMouse
)

type inputDevice struct {
	path    string
	name    string
	kind    deviceKind
	grabbed bool
	dev     *evdev.InputDevice
}

type readResult struct {
	ev  *evdev.InputEvent
	at  time.Duration
	dev *inputDevice
	err error
}

// DeviceSource merges the events of every keyboard and mouse under
// /dev/input into one ordered stream. One goroutine reads each device.
type DeviceSource struct {
	grab  bool
	skip  string
	log   *logrus.Entry
	start time.Time

	reads   chan readResult
	lost    chan error
	done    chan struct{}
	pending []keys.Event

	mu      sync.Mutex
	devices map[string]*inputDevice
	watcher *fsnotify.Watcher
	once    sync.Once
}

// OpenDevices opens every usable input device. Devices whose name starts
// with skip are our own virtual devices and are never read back. With grab,
// keyboards are grabbed exclusively.
func OpenDevices(grab bool, skip string, log *logrus.Entry) (*DeviceSource, error) {
	s := &DeviceSource{
		grab:    grab,
		skip:    skip,
		log:     log.WithField("component", "evdev"),
		start:   time.Now(),
		reads:   make(chan readResult, 64),
		lost:    make(chan error, 1),
		done:    make(chan struct{}),
		devices: make(map[string]*inputDevice),
	}

	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}
	for _, p := range paths {
		if err := s.add(p.Path); err != nil {
			s.log.WithError(err).WithField("path", p.Path).Trace("skipped")
		}
	}
	if s.keyboards() == 0 {
		s.Close()
		return nil, fmt.Errorf("no keyboard devices found\nMake sure you are in the 'input' group:\n  sudo usermod -aG input $USER\nThen log out and back in")
	}

	if w, err := fsnotify.NewWatcher(); err != nil {
		s.log.WithError(err).Warn("hotplug disabled")
	} else if err := w.Add(inputDir); err != nil {
		w.Close()
		s.log.WithError(err).Warn("hotplug disabled")
	} else {
		s.watcher = w
		go s.watch()
	}
	return s, nil
}

// classify reports what dev can be used for, or 0.
func classify(dev *evdev.InputDevice) deviceKind {
	var kind deviceKind
	codes := dev.CapableEvents(evdev.EV_KEY)
	if slices.Contains(codes, evdev.KEY_A) && slices.Contains(codes, evdev.KEY_ENTER) {
		kind |= kindKeyboard
	}
	if slices.Contains(codes, evdev.BTN_LEFT) {
		kind |= kindMouse
	}
	return kind
}

func (s *DeviceSource) add(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[path]; ok {
		return nil
	}

	dev, err := evdev.Open(path)
	if err != nil {
		return err
	}
	name, _ := dev.Name()
	if s.skip != "" && strings.HasPrefix(name, s.skip) {
		dev.Close()
		return errors.New("own virtual device")
	}
	kind := classify(dev)
	if kind == 0 {
		dev.Close()
		return errors.New("not a keyboard or mouse")
	}
	// Pointer motion is not re-emitted, so only pure keyboards are grabbed.
	// Events from other devices are marked ungrabbed and never re-emitted.
	grabbed := s.grab && kind == kindKeyboard
	if grabbed {
		if err := dev.Grab(); err != nil {
			dev.Close()
			return fmt.Errorf("grab: %w", err)
		}
	}
	if s.grab && !grabbed && kind&kindKeyboard != 0 {
		s.log.WithField("name", name).Warn("keyboard with a pointer is not grabbed, remaps do not reach other clients")
	}

	d := &inputDevice{path: path, name: name, kind: kind, grabbed: grabbed, dev: dev}
	s.devices[path] = d
	go s.read(d)
	s.log.WithFields(logrus.Fields{
		"path":     path,
		"name":     name,
		"keyboard": kind&kindKeyboard != 0,
		"grabbed":  grabbed,
	}).Info("device added")
	return nil
}

func (s *DeviceSource) read(d *inputDevice) {
	for {
		ev, err := d.dev.ReadOne()
		r := readResult{ev: ev, at: time.Since(s.start), dev: d, err: err}
		select {
		case s.reads <- r:
		case <-s.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *DeviceSource) remove(d *inputDevice, reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.devices[d.path] != d {
		return
	}
	delete(s.devices, d.path)
	d.dev.Close()
	s.log.WithFields(logrus.Fields{"path": d.path, "name": d.name}).WithError(reason).Info("device removed")

	if s.watcher == nil && len(s.devices) == 0 {
		s.fail(fmt.Errorf("all input devices gone: %w", engine.ErrConnectionLost))
	}
}

func (s *DeviceSource) fail(err error) {
	select {
	case s.lost <- err:
	default:
	}
}

func (s *DeviceSource) watch() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				s.fail(fmt.Errorf("hotplug watcher closed: %w", engine.ErrConnectionLost))
				return
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), "event") {
				continue
			}
			if ev.Has(fsnotify.Create) {
				go s.addLater(ev.Name)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("hotplug watcher")
		case <-s.done:
			return
		}
	}
}

// addLater retries for a while because udev applies permissions after the
// node appears.
func (s *DeviceSource) addLater(path string) {
	var err error
	for i := 0; i < 10; i++ {
		select {
		case <-s.done:
			return
		case <-time.After(100 * time.Millisecond):
		}
		if err = s.add(path); err == nil {
			return
		}
	}
	s.log.WithError(err).WithField("path", path).Debug("hotplugged device ignored")
}

// Next returns the next normalized event. Key auto-repeat is dropped and
// wheel steps become press/release pairs of buttons 4 to 7.
func (s *DeviceSource) Next(ctx context.Context) (keys.Event, error) {
	for len(s.pending) == 0 {
		select {
		case <-ctx.Done():
			return keys.Event{}, ctx.Err()
		case err := <-s.lost:
			return keys.Event{}, err
		case r := <-s.reads:
			if r.err != nil {
				s.remove(r.dev, r.err)
				continue
			}
			s.pending = normalize(r.ev, r.at)
			for i := range s.pending {
				s.pending[i].Grabbed = r.dev.grabbed
			}
		}
	}
	ev := s.pending[0]
	s.pending = s.pending[1:]
	return ev, nil
}

// Locks reads the lock LEDs of the first keyboard.
func (s *DeviceSource) Locks() (keys.Locks, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d.kind&kindKeyboard == 0 {
			continue
		}
		st, err := d.dev.State(evdev.EV_LED)
		if err != nil {
			return 0, fmt.Errorf("led state of %s: %w", d.path, err)
		}
		return locksFromLEDState(st), nil
	}
	return 0, errors.New("no keyboard")
}

func locksFromLEDState(st evdev.StateMap) keys.Locks {
	var l keys.Locks
	if st[evdev.LED_CAPSL] {
		l |= keys.CapsLock
	}
	if st[evdev.LED_NUML] {
		l |= keys.NumLock
	}
	if st[evdev.LED_SCROLLL] {
		l |= keys.ScrollLock
	}
	return l
}

func (s *DeviceSource) keyboards() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.devices {
		if d.kind&kindKeyboard != 0 {
			n++
		}
	}
	return n
}

// Close releases every device. Grabs end with the file descriptors.
func (s *DeviceSource) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.watcher != nil {
			s.watcher.Close()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for path, d := range s.devices {
			d.dev.Close()
			delete(s.devices, path)
		}
	})
}

// buttons maps evdev button codes to X button numbers.
var buttons = map[evdev.EvCode]uint16{
	evdev.BTN_LEFT:    1,
	evdev.BTN_MIDDLE:  2,
	evdev.BTN_RIGHT:   3,
	evdev.BTN_SIDE:    8,
	evdev.BTN_BACK:    8,
	evdev.BTN_EXTRA:   9,
	evdev.BTN_FORWARD: 9,
}

// normalize converts one raw event. It returns nothing for auto-repeat,
// motion, sync and button codes that are not mouse buttons.
func normalize(ev *evdev.InputEvent, at time.Duration) []keys.Event {
	switch ev.Type {
	case evdev.EV_KEY:
		var dir keys.Direction
		switch ev.Value {
		case 1:
			dir = keys.Press
		case 0:
			dir = keys.Release
		default:
			return nil
		}
		if n, ok := buttons[ev.Code]; ok {
			return []keys.Event{{ID: keys.Button(n), Dir: dir, Time: at}}
		}
		if ev.Code >= evdev.BTN_MISC && ev.Code < evdev.KEY_OK {
			return nil
		}
		return []keys.Event{{ID: keys.Key(uint16(ev.Code)), Dir: dir, Time: at}}

	case evdev.EV_REL:
		var n uint16
		switch {
		case ev.Code == evdev.REL_WHEEL && ev.Value > 0:
			n = 4
		case ev.Code == evdev.REL_WHEEL && ev.Value < 0:
			n = 5
		case ev.Code == evdev.REL_HWHEEL && ev.Value < 0:
			n = 6
		case ev.Code == evdev.REL_HWHEEL && ev.Value > 0:
			n = 7
		default:
			return nil
		}
		return []keys.Event{
			{ID: keys.Button(n), Dir: keys.Press, Time: at},
			{ID: keys.Button(n), Dir: keys.Release, Time: at},
		}
	}
	return nil
}
