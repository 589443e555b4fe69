package main

import (
	"context"
	"testing"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"github.com/andresousadotpt/hkd/internal/keys"
)

func TestNormalize(t *testing.T) {
	at := 5 * time.Millisecond
	key := func(code evdev.EvCode, value int32) *evdev.InputEvent {
		return &evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: value}
	}
	rel := func(code evdev.EvCode, value int32) *evdev.InputEvent {
		return &evdev.InputEvent{Type: evdev.EV_REL, Code: code, Value: value}
	}

	tests := []struct {
		name string
		ev   *evdev.InputEvent
		want []keys.Event
	}{
		{"key press", key(evdev.KEY_A, 1), []keys.Event{{ID: keys.Key(uint16(evdev.KEY_A)), Dir: keys.Press, Time: at}}},
		{"key release", key(evdev.KEY_A, 0), []keys.Event{{ID: keys.Key(uint16(evdev.KEY_A)), Dir: keys.Release, Time: at}}},
		{"repeat", key(evdev.KEY_A, 2), nil},
		{"left button", key(evdev.BTN_LEFT, 1), []keys.Event{{ID: keys.Button(1), Dir: keys.Press, Time: at}}},
		{"back button", key(evdev.BTN_SIDE, 0), []keys.Event{{ID: keys.Button(8), Dir: keys.Release, Time: at}}},
		{"touch", key(evdev.BTN_TOUCH, 1), nil},
		{"motion", rel(evdev.REL_X, 3), nil},
		{"sync", &evdev.InputEvent{Type: evdev.EV_SYN}, nil},
		{"wheel up", rel(evdev.REL_WHEEL, 1), []keys.Event{
			{ID: keys.Button(4), Dir: keys.Press, Time: at},
			{ID: keys.Button(4), Dir: keys.Release, Time: at},
		}},
		{"wheel down", rel(evdev.REL_WHEEL, -1), []keys.Event{
			{ID: keys.Button(5), Dir: keys.Press, Time: at},
			{ID: keys.Button(5), Dir: keys.Release, Time: at},
		}},
		{"wheel left", rel(evdev.REL_HWHEEL, -1), []keys.Event{
			{ID: keys.Button(6), Dir: keys.Press, Time: at},
			{ID: keys.Button(6), Dir: keys.Release, Time: at},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(tt.ev, at)
			if len(got) != len(tt.want) {
				t.Fatalf("normalize() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("event %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLocksFromLEDState(t *testing.T) {
	st := evdev.StateMap{evdev.LED_CAPSL: true, evdev.LED_NUML: false, evdev.LED_SCROLLL: true}
	if got := locksFromLEDState(st); got != keys.CapsLock|keys.ScrollLock {
		t.Errorf("locksFromLEDState() = %v", got)
	}
	if got := locksFromLEDState(nil); got != 0 {
		t.Errorf("empty state = %v", got)
	}
}

func TestWheelStep(t *testing.T) {
	tests := []struct {
		button     uint16
		horizontal bool
		delta      int32
	}{
		{4, false, 1},
		{5, false, -1},
		{6, true, -1},
		{7, true, 1},
	}
	for _, tt := range tests {
		h, d := wheelStep(tt.button)
		if h != tt.horizontal || d != tt.delta {
			t.Errorf("wheelStep(%d) = %v, %d", tt.button, h, d)
		}
	}
}

func TestNextMarksGrabbedDevices(t *testing.T) {
	s := &DeviceSource{
		reads: make(chan readResult, 2),
		lost:  make(chan error, 1),
		done:  make(chan struct{}),
	}
	kbd := &inputDevice{path: "event0", kind: kindKeyboard, grabbed: true}
	mouse := &inputDevice{path: "event1", kind: kindMouse}
	s.reads <- readResult{ev: &evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.KEY_A, Value: 1}, dev: kbd}
	s.reads <- readResult{ev: &evdev.InputEvent{Type: evdev.EV_REL, Code: evdev.REL_WHEEL, Value: 1}, dev: mouse}

	want := []bool{true, false, false}
	for i, w := range want {
		ev, err := s.Next(context.Background())
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if ev.Grabbed != w {
			t.Errorf("event %d (%v) Grabbed = %v, want %v", i, ev, ev.Grabbed, w)
		}
	}
}
