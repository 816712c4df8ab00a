// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dylos

import (
	"io"
	"testing"
	"time"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		pm1     uint16
		pm10    uint16
		wantErr bool
	}{
		{line: "75,16\r", pm1: 75, pm10: 16},
		{line: "0,0", pm1: 0, pm10: 0},
		// Garbage bytes below 0x20 are dropped before parsing.
		{line: "\x0175,\x0216\r", pm1: 75, pm10: 16},
		{line: "empty", wantErr: true},
		{line: "1,2,3", wantErr: true},
		{line: "a,b", wantErr: true},
		{line: "", wantErr: true},
	}
	for _, test := range tests {
		sample, err := parseLine(test.line)
		if test.wantErr {
			if err == nil {
				t.Errorf("parseLine(%q) accepted", test.line)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseLine(%q): %v", test.line, err)
			continue
		}
		if sample.PM1 != test.pm1 || sample.PM10 != test.pm10 {
			t.Errorf("parseLine(%q)=%d,%d expected %d,%d", test.line, sample.PM1, sample.PM10, test.pm1, test.pm10)
		}
	}
}

func TestMonitorBuffersLatest(t *testing.T) {
	r, w := io.Pipe()
	m := newMonitor(r)

	if _, ok := m.Latest(); ok {
		t.Error("Latest() reported a sample before any line arrived")
	}

	if _, err := w.Write([]byte("75,16\r\n")); err != nil {
		t.Fatal(err)
	}
	waitForSample(t, m)
	sample, ok := m.Latest()
	if !ok || sample.PM1 != 75 || sample.PM10 != 16 {
		t.Errorf("Latest()=%v,%t expected 75,16", sample, ok)
	}

	// A newer report, with some line noise around it, replaces the old one.
	if _, err := w.Write([]byte("\x02100,42\r\n")); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		if sample, _ = m.Latest(); sample.PM1 == 100 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if sample.PM1 != 100 || sample.PM10 != 42 {
		t.Errorf("Latest()=%v expected 100,42", sample)
	}

	_ = w.Close()
	if err := m.Close(); err != nil {
		t.Errorf("Close(): %v", err)
	}
}

func waitForSample(t *testing.T, m *Monitor) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if _, ok := m.Latest(); ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for a sample")
}
