// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/scd30mon/common"
)

// PPM=Parts Per Million. Units of measure for CO2 concentration.
type PPM uint16

const (
	// The SCD30 only supports this i2c address.
	SensorAddress uint16 = 0x61

	// Interval bounds for continuous measurement mode, in seconds.
	MinInterval uint16 = 2
	MaxInterval uint16 = 1800
)

// A bus transaction is attempted this many times before the operation is
// reported as failed.
const busAttempts = 4

// Number of data ready polls performed by StartSingleMeasurement before
// giving up. With the 1 second pacing between polls this bounds the
// emulated single measurement to roughly 10 seconds.
const singleShotPolls = 10

// ErrNoData is returned when a measurement read is attempted while the
// sensor does not report new data available.
var ErrNoData = errors.New("scd30: no measurement data available")

type cmd uint16

// The command words implemented by the sensor. All of them are sent MSB
// first, optionally followed by a 2 byte argument and a CRC over the
// argument bytes.
const (
	cmdStartContinuous  cmd = 0x0010
	cmdStopMeasurement  cmd = 0x0104
	cmdGetDataReady     cmd = 0x0202
	cmdReadMeasurement  cmd = 0x0300
	cmdSetInterval      cmd = 0x4600
	cmdSetAltitude      cmd = 0x5102
	cmdSetFRC           cmd = 0x5204
	cmdSetASC           cmd = 0x5306
	cmdSetTempOffset    cmd = 0x5403
	cmdReadSerialNumber cmd = 0xd033
	cmdSoftReset        cmd = 0xd304
)

func (c cmd) String() string {
	switch c {
	case cmdStartContinuous:
		return "start continuous measurement"
	case cmdStopMeasurement:
		return "stop measurement"
	case cmdGetDataReady:
		return "get data ready status"
	case cmdReadMeasurement:
		return "read measurement"
	case cmdSetInterval:
		return "set measurement interval"
	case cmdSetAltitude:
		return "set altitude compensation"
	case cmdSetFRC:
		return "set forced recalibration factor"
	case cmdSetASC:
		return "set automatic self calibration"
	case cmdSetTempOffset:
		return "set temperature offset"
	case cmdReadSerialNumber:
		return "read serial number"
	case cmdSoftReset:
		return "soft reset"
	}
	return "unknown command"
}

// Opts holds the initial operating mode for the sensor.
type Opts struct {
	// Interval is the continuous measurement sample interval in seconds,
	// MinInterval to MaxInterval. The value 0 stops continuous measurement
	// instead.
	Interval uint16
	// ASC enables automatic self calibration. The setting is stored by the
	// sensor in non-volatile memory.
	ASC bool
}

// DefaultOpts starts continuous measurement at the fastest rate with
// automatic self calibration enabled.
var DefaultOpts = Opts{Interval: 2, ASC: true}

// Dev represents an SCD30 device.
type Dev struct {
	// The i2c bus device.
	d  *i2c.Dev
	mu sync.Mutex
	// Debug verbosity. 0=silent, 1=commands, 2=commands and bus traffic.
	debug int

	// Host side shadow of the sensor's non-volatile mode settings. A soft
	// reset re-programs the sensor from these. interval==0 means continuous
	// measurement is stopped.
	asc      bool
	interval uint16

	// The last decoded measurement. The values are the sensor's IEEE-754
	// bit patterns, not conversions.
	co2         float32
	temperature float32
	humidity    float32
	// Per value consumption flags. Set when a value has been handed to a
	// caller, cleared together when a new measurement is decoded.
	co2Reported         bool
	temperatureReported bool
	humidityReported    bool
}

// The sensor reading. Returns CO2 PPM, Temperature, and Humidity.
type Env struct {
	physic.Env
	CO2 PPM
}

func (ppm PPM) String() string {
	return fmt.Sprintf("%d PPM", uint16(ppm))
}

// Return the sensor readings in string format.
func (e *Env) String() string {
	return fmt.Sprintf("Temperature: %s Humidity: %s CO2: %s", e.Temperature.String(), e.Humidity.String(), e.CO2.String())
}

// NewI2C creates a new SCD30 sensor using the supplied bus and address, and
// programs the operating mode given in opts. The constant value
// SensorAddress should be supplied as the value for addr. A nil opts selects
// DefaultOpts.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Interval != 0 && (opts.Interval < MinInterval || opts.Interval > MaxInterval) {
		return nil, fmt.Errorf("scd30: invalid measurement interval %d. must be %d to %d seconds", opts.Interval, MinInterval, MaxInterval)
	}
	d := &Dev{
		d:        &i2c.Dev{Bus: b, Addr: addr},
		asc:      opts.ASC,
		interval: opts.Interval,
		// Force a bus read on first access.
		co2Reported:         true,
		temperatureReported: true,
		humidityReported:    true,
	}
	return d, d.begin()
}

// SetDebug sets the driver verbosity. 0 disables debug output, 1 logs the
// commands sent and received, 2 additionally logs bus level retries and
// protocol failures. Output goes through logrus at debug level.
func (d *Dev) SetDebug(level int) {
	if level < 0 {
		level = 0
	}
	if level > 2 {
		level = 2
	}
	d.mu.Lock()
	d.debug = level
	d.mu.Unlock()
}

// begin programs the sensor according to the interval/asc shadow values.
// A positive interval starts continuous measurement, zero stops it.
func (d *Dev) begin() error {
	if d.interval > 0 {
		if err := d.sendCommandArg(cmdStartContinuous, 0); err != nil {
			return err
		}
		if err := d.sendCommandArg(cmdSetInterval, d.interval); err != nil {
			return err
		}
		return d.sendCommandArg(cmdSetASC, ascArg(d.asc))
	}
	return d.sendCommand(cmdStopMeasurement)
}

func ascArg(enable bool) uint16 {
	if enable {
		return 1
	}
	return 0
}

// tx performs one bus transaction, retrying on transport failures. NACKs,
// clock stretch timeouts and partial transfers all surface as errors from
// the bus and are indistinguishable here.
func (d *Dev) tx(w, r []byte) error {
	var err error
	for attempt := 1; attempt <= busAttempts; attempt++ {
		if err = d.d.Tx(w, r); err == nil {
			return nil
		}
		if d.debug > 1 {
			log.Debugf("scd30: bus transaction attempt %d/%d failed: %v", attempt, busAttempts, err)
		}
	}
	return err
}

// sendCommand sends a bare 2 byte command word.
func (d *Dev) sendCommand(c cmd) error {
	if d.debug > 0 {
		log.Debugf("scd30: sending 0x%04x (%s)", uint16(c), c)
	}
	w := []byte{byte(c >> 8), byte(c)}
	if err := d.tx(w, nil); err != nil {
		return fmt.Errorf("scd30 cmd 0x%04x: %w", uint16(c), err)
	}
	return nil
}

// sendCommandArg sends a command word followed by a 2 byte argument and the
// CRC computed over the argument bytes only. The frame is always 5 bytes.
func (d *Dev) sendCommandArg(c cmd, arg uint16) error {
	if d.debug > 0 {
		log.Debugf("scd30: sending 0x%04x (%s) argument 0x%04x", uint16(c), c, arg)
	}
	w := []byte{byte(c >> 8), byte(c), byte(arg >> 8), byte(arg), 0}
	w[4] = common.CRC8(w[2:4])
	if err := d.tx(w, nil); err != nil {
		return fmt.Errorf("scd30 cmd 0x%04x: %w", uint16(c), err)
	}
	return nil
}

// readWords reads count 16-bit words from the sensor. Every word arrives as
// 2 data bytes followed by a CRC byte. A CRC mismatch discards the whole
// response; the bytes already arrived so there is nothing to retry.
func (d *Dev) readWords(count int) ([]uint16, error) {
	r := make([]byte, count*3)
	if err := d.tx(nil, r); err != nil {
		return nil, fmt.Errorf("scd30 read: %w", err)
	}
	words := make([]uint16, count)
	for ix := range words {
		if !common.CheckCRC8(r[ix*3:ix*3+2], r[ix*3+2]) {
			return nil, fmt.Errorf("scd30: invalid crc for word %d", ix)
		}
		words[ix] = uint16(r[ix*3])<<8 | uint16(r[ix*3+1])
	}
	if d.debug > 0 {
		log.Debugf("scd30: received %d words: %#v", count, words)
	}
	return words, nil
}

// dataReady polls the data ready status register. The sensor answers with a
// single word whose low byte is 1 when a measurement can be read.
func (d *Dev) dataReady() (bool, error) {
	if err := d.sendCommand(cmdGetDataReady); err != nil {
		return false, err
	}
	words, err := d.readWords(1)
	if err != nil {
		return false, err
	}
	return words[0]&0xff == 1, nil
}

// DataAvailable returns true if the sensor has a new measurement ready to
// read. A false return does not distinguish "not ready yet" from a bus or
// CRC failure; the original interface behaves the same way and callers are
// expected to retry or eventually issue a SoftReset.
func (d *Dev) DataAvailable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	ready, err := d.dataReady()
	if err != nil {
		if d.debug > 1 {
			log.Debugf("scd30: data ready poll failed: %v", err)
		}
		return false
	}
	return ready
}

// readMeasurementData reads and decodes the 18 byte measurement response.
// The caller must have established that data is available.
func (d *Dev) readMeasurementData() error {
	if err := d.sendCommand(cmdReadMeasurement); err != nil {
		return err
	}
	words, err := d.readWords(6)
	if err != nil {
		return err
	}
	// Each value is a 32-bit big-endian IEEE-754 float split over two
	// words. Reassemble the exact bit pattern; a numeric cast would mangle
	// the value.
	d.co2 = math.Float32frombits(uint32(words[0])<<16 | uint32(words[1]))
	d.temperature = math.Float32frombits(uint32(words[2])<<16 | uint32(words[3]))
	d.humidity = math.Float32frombits(uint32(words[4])<<16 | uint32(words[5]))
	d.co2Reported = false
	d.temperatureReported = false
	d.humidityReported = false
	return nil
}

func (d *Dev) readMeasurement() error {
	ready, err := d.dataReady()
	if err != nil {
		return err
	}
	if !ready {
		return ErrNoData
	}
	return d.readMeasurementData()
}

// ReadMeasurement refreshes the cached CO2, temperature and humidity values
// from the sensor. It fails with ErrNoData if the sensor does not report a
// measurement available. On success all three cached values are marked
// unconsumed.
func (d *Dev) ReadMeasurement() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readMeasurement()
}

// CO2 returns the latest CO2 concentration in PPM. If the cached value was
// already handed out, a fresh measurement is read first. The decimal part
// is cut off as the sensor range is 0 to 10000 PPM.
func (d *Dev) CO2() (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.co2Reported {
		if err := d.readMeasurement(); err != nil {
			return 0, err
		}
	}
	d.co2Reported = true
	return uint16(d.co2), nil
}

// Humidity returns the latest relative humidity in %RH. If the cached value
// was already handed out, a fresh measurement is read first.
func (d *Dev) Humidity() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.humidityReported {
		if err := d.readMeasurement(); err != nil {
			return 0, err
		}
	}
	d.humidityReported = true
	return float64(d.humidity), nil
}

// Temperature returns the latest temperature in degrees Celsius. If the
// cached value was already handed out, a fresh measurement is read first.
func (d *Dev) Temperature() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.temperatureReported {
		if err := d.readMeasurement(); err != nil {
			return 0, err
		}
	}
	d.temperatureReported = true
	return float64(d.temperature), nil
}

// TemperatureF returns the latest temperature in degrees Fahrenheit. The
// conversion is purely arithmetic, no additional bus access happens beyond
// what Temperature performs.
func (d *Dev) TemperatureF() (float64, error) {
	t, err := d.Temperature()
	if err != nil {
		return 0, err
	}
	return t*9/5 + 32, nil
}

// SerialNumber reads the sensor serial number, six ASCII characters.
func (d *Dev) SerialNumber() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.sendCommand(cmdReadSerialNumber); err != nil {
		return "", err
	}
	words, err := d.readWords(3)
	if err != nil {
		return "", err
	}
	serial := make([]byte, 0, 6)
	for _, w := range words {
		serial = append(serial, byte(w>>8), byte(w))
	}
	return string(serial), nil
}

// SoftReset resets the sensor and re-programs the operating mode from the
// interval/asc shadow values. This is the recovery path after the sensor
// stops answering data ready polls.
func (d *Dev) SoftReset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.sendCommand(cmdSoftReset); err != nil {
		return err
	}
	return d.begin()
}

// StopMeasurement stops continuous measurement. The sensor persists the
// stopped state across power cycles. The interval shadow is left untouched
// so a later SoftReset restores the previous mode.
func (d *Dev) StopMeasurement() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sendCommand(cmdStopMeasurement)
}

// Halt implements conn.Resource and stops continuous measurement.
func (d *Dev) Halt() error {
	return d.StopMeasurement()
}

// StartSingleMeasurement performs a single measurement and refreshes the
// cached values.
//
// The sensor's native single measurement command (0x0006) returns stale or
// zero values on repeated use, a defect confirmed by the vendor. The
// measurement is therefore emulated: continuous mode is started at a 2
// second interval with self calibration off, the data ready status is
// polled once per second, a single measurement is read, and the sensor is
// stopped again. The previous interval/asc shadow values are restored so a
// later SoftReset or explicit restart resumes the prior mode; continuous
// measurement is NOT resumed automatically.
//
// Expect at least 4 seconds of latency. That is the cost of the
// workaround, not a bug.
func (d *Dev) StartSingleMeasurement() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	savedASC, savedInterval := d.asc, d.interval
	d.asc = false
	d.interval = 2

	err := d.begin()
	if err == nil {
		ready := false
		for attempt := 0; attempt < singleShotPolls; attempt++ {
			if attempt > 0 {
				time.Sleep(time.Second)
			}
			// A poll failure is treated as not ready.
			if ready, _ = d.dataReady(); ready {
				break
			}
		}
		if ready {
			// The successful poll above satisfies the readiness
			// precondition of the read.
			err = d.readMeasurementData()
		} else {
			err = ErrNoData
		}
	}

	// Always stop and restore the shadow, even on failure.
	if stopErr := d.sendCommand(cmdStopMeasurement); err == nil {
		err = stopErr
	}
	d.asc = savedASC
	d.interval = savedInterval
	return err
}

// SetMeasurementInterval sets the continuous measurement interval in
// seconds, 2 to 1800. The shadow value is updated on success so the setting
// survives a SoftReset.
func (d *Dev) SetMeasurementInterval(seconds uint16) error {
	if seconds < MinInterval || seconds > MaxInterval {
		return fmt.Errorf("scd30: invalid measurement interval %d. must be %d to %d seconds", seconds, MinInterval, MaxInterval)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.sendCommandArg(cmdSetInterval, seconds); err != nil {
		return err
	}
	d.interval = seconds
	return nil
}

// SetAutoSelfCalibration enables or disables automatic self calibration.
// The sensor stores the setting in non-volatile memory. Forced
// recalibration overwrites the self calibration state and vice versa; the
// sensor keeps whichever was applied last.
func (d *Dev) SetAutoSelfCalibration(enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.sendCommandArg(cmdSetASC, ascArg(enable)); err != nil {
		return err
	}
	d.asc = enable
	return nil
}

// SetForcedRecalibration sets the forced recalibration reference
// concentration, 400 to 2000 PPM.
func (d *Dev) SetForcedRecalibration(ppm uint16) error {
	if ppm < 400 || ppm > 2000 {
		return fmt.Errorf("scd30: invalid forced recalibration value %d. must be 400 to 2000 ppm", ppm)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sendCommandArg(cmdSetFRC, ppm)
}

// SetTemperatureOffset sets the temperature offset in degrees Celsius. The
// offset lowers the reported temperature and raises the reported humidity
// over a period of roughly 10 minutes; CO2 readings are unaffected.
// Negative offsets are rejected, they destabilize the sensor's internal
// compensation loop.
func (d *Dev) SetTemperatureOffset(offset float64) error {
	if offset < 0 {
		return fmt.Errorf("scd30: invalid temperature offset %.2f. must not be negative", offset)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sendCommandArg(cmdSetTempOffset, uint16(offset*100))
}

// SetAltitudeCompensation sets the sensor altitude in metres, -1520 to
// 3040. Altitude compensation is ignored by the sensor while an ambient
// pressure value is active.
func (d *Dev) SetAltitudeCompensation(metres int) error {
	if metres < -1520 || metres > 3040 {
		return fmt.Errorf("scd30: invalid altitude %d. must be -1520 to 3040 metres", metres)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sendCommandArg(cmdSetAltitude, uint16(int16(metres)))
}

// SetAmbientPressure sets the ambient pressure in mbar, 700 to 1200, or 0
// to disable pressure compensation. The sensor only accepts the value as
// the argument of the start continuous measurement command, so this
// restarts continuous measurement.
func (d *Dev) SetAmbientPressure(mbar uint16) error {
	if mbar != 0 && (mbar < 700 || mbar > 1200) {
		return fmt.Errorf("scd30: invalid ambient pressure %d. must be 0 or 700 to 1200 mbar", mbar)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sendCommandArg(cmdStartContinuous, mbar)
}

// Sense waits for a measurement to become ready and fills env with it. It
// polls the data ready status once per second for up to the sample interval
// plus 5 seconds before giving up. All three cached values are marked
// consumed since the reading reports them together.
func (d *Dev) Sense(env *Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ready := false
	tCutoff := time.Now().Add(time.Duration(d.interval+5) * time.Second)
	for !ready && time.Now().Before(tCutoff) {
		if ready, _ = d.dataReady(); !ready {
			time.Sleep(time.Second)
		}
	}
	if !ready {
		return errors.New("scd30: timeout waiting for data ready status")
	}
	if err := d.readMeasurementData(); err != nil {
		return err
	}
	d.co2Reported = true
	d.temperatureReported = true
	d.humidityReported = true
	env.CO2 = PPM(d.co2)
	env.Temperature = physic.ZeroCelsius + physic.Temperature(float64(d.temperature)*float64(physic.Celsius))
	env.Humidity = physic.RelativeHumidity(float64(d.humidity) * float64(physic.PercentRH))
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("scd30: %s", d.d.String())
}
