// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dylos reads particle counts from a Dylos DC1700 air quality
// monitor attached over a serial port.
//
// The DC1700 emits one report per minute as an ASCII line of the form
// "small,large\r\n" where small counts particles above 0.5 micron and large
// counts particles above 2.5 micron, both per 0.01 cubic foot. A background
// goroutine buffers the most recent complete report so callers never block
// on the once-a-minute cadence.
package dylos

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Sample is one particle count report.
type Sample struct {
	// PM1 approximates the concentration of small particles (>0.5um).
	PM1 uint16
	// PM10 approximates the concentration of large particles (>2.5um).
	PM10 uint16
	// Time the report was received.
	Time time.Time
}

// Monitor owns the serial connection to a DC1700.
type Monitor struct {
	port io.ReadCloser

	mu    sync.Mutex
	last  Sample
	valid bool

	done chan struct{}
}

// Open connects to the DC1700 on the named serial port, typically
// /dev/ttyUSB0, and starts the background reader.
func Open(portName string) (*Monitor, error) {
	mode := &serial.Mode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "dylos: opening %s", portName)
	}
	return newMonitor(port), nil
}

func newMonitor(r io.ReadCloser) *Monitor {
	m := &Monitor{port: r, done: make(chan struct{})}
	go m.readLoop()
	return m
}

func (m *Monitor) readLoop() {
	defer close(m.done)
	scanner := bufio.NewScanner(m.port)
	for scanner.Scan() {
		sample, err := parseLine(scanner.Text())
		if err != nil {
			log.Debugf("dylos: discarding line: %v", err)
			continue
		}
		log.Debugf("dylos: small=%d large=%d", sample.PM1, sample.PM10)
		m.mu.Lock()
		m.last = sample
		m.valid = true
		m.mu.Unlock()
	}
	// Read errors also land here after Close(); nothing to do but stop.
}

// parseLine extracts the two counts from a report line. Carriage returns
// and any garbage bytes below 0x20 picked up on the wire are skipped before
// parsing, matching the tolerance of the device's own monitor software.
func parseLine(line string) (Sample, error) {
	clean := make([]byte, 0, len(line))
	for i := 0; i < len(line); i++ {
		if line[i] >= 0x20 {
			clean = append(clean, line[i])
		}
	}
	fields := strings.Split(string(clean), ",")
	if len(fields) != 2 {
		return Sample{}, errors.Errorf("dylos: malformed report %q", line)
	}
	small, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 16)
	if err != nil {
		return Sample{}, errors.Wrapf(err, "dylos: bad small particle count in %q", line)
	}
	large, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 16)
	if err != nil {
		return Sample{}, errors.Wrapf(err, "dylos: bad large particle count in %q", line)
	}
	return Sample{PM1: uint16(small), PM10: uint16(large), Time: time.Now()}, nil
}

// Latest returns the most recent report without blocking. ok is false until
// the first complete report has arrived.
func (m *Monitor) Latest() (sample Sample, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.valid
}

// Close releases the serial port and stops the background reader.
func (m *Monitor) Close() error {
	err := m.port.Close()
	// Wait for the reader to notice.
	<-m.done
	return err
}
