// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// scd30mon polls an SCD30 CO2 sensor and prints its readings, optionally
// merged with particle counts from a Dylos DC1700 monitor on a serial port.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/scd30mon/dylos"
	"github.com/GermanBionicSystems/scd30mon/scd30"
	"github.com/GermanBionicSystems/scd30mon/trend"
)

// Consecutive not-ready polls tolerated before a soft reset is issued.
const resetRetry = 5

// Sentinels for "flag not given".
const (
	noAltitude = -10000
	noValue    = -1
)

const (
	colRed    = "\033[31m"
	colGreen  = "\033[32m"
	colYellow = "\033[33m"
	colReset  = "\033[0m"
)

var (
	asc        = flag.Bool("asc", true, "enable automatic self calibration")
	interval   = flag.Int("interval", 2, "measurement interval in seconds (2-1800)")
	frc        = flag.Int("frc", noValue, "forced recalibration value in ppm (400-2000)")
	altitude   = flag.Int("altitude", noAltitude, "altitude compensation in metres (-1520-3040)")
	pressure   = flag.Int("pressure", noValue, "ambient pressure in mbar (0 or 700-1200)")
	tempOffset = flag.Float64("offset", noValue, "temperature offset in degrees Celsius (0-25)")
	stop       = flag.Bool("stop", false, "stop continuous measurement and exit")
	single     = flag.Bool("single", false, "perform a single measurement instead of a loop")
	loopCount  = flag.Int("loop", 10, "number of measurements, 0 for endless")
	loopDelay  = flag.Int("delay", 5, "seconds between measurements")
	timestamp  = flag.Bool("timestamp", false, "prefix readings with a timestamp")
	dewpoint   = flag.Bool("dewpoint", false, "add the dew point to the output")
	heatindex  = flag.Bool("heatindex", false, "add the heat index to the output")
	fahrenheit = flag.Bool("fahrenheit", false, "report temperatures in Fahrenheit")
	verbose    = flag.Int("v", 0, "verbosity level 0-2")
	noColor    = flag.Bool("nocolor", false, "disable colored output")
	busName    = flag.String("bus", "", "i2c bus name, empty for the first available")
	dylosPort  = flag.String("dylos", "", "serial port of a Dylos DC1700, empty to disable")
	chartPath  = flag.String("chart", "", "write a PNG trend chart to this path on exit")
	fontPath   = flag.String("font", "", "TTF font for the trend chart labels")
)

var out io.Writer

// cprintf prints with an ANSI color through the colorable writer. The
// NonColorable writer strips the escapes when -nocolor is given.
func cprintf(col, format string, args ...interface{}) {
	fmt.Fprintf(out, col+format+colReset, args...)
}

func fatalf(format string, args ...interface{}) {
	cprintf(colRed, format+"\n", args...)
	os.Exit(1)
}

// co2Indicator returns a colored block grading the CO2 concentration:
// green below 800 PPM, yellow below 1200, red above.
func co2Indicator(ppm uint16) string {
	if *noColor {
		return ""
	}
	c := color.NRGBA{R: 0, G: 200, B: 0, A: 255}
	switch {
	case ppm >= 1200:
		c = color.NRGBA{R: 220, G: 0, B: 0, A: 255}
	case ppm >= 800:
		c = color.NRGBA{R: 220, G: 200, B: 0, A: 255}
	}
	return ansi256.Default.Block(c) + colReset + " "
}

// report prints one reading and returns it as a chart point.
func report(dev *scd30.Dev, pm *dylos.Monitor) (trend.Point, error) {
	var point trend.Point

	co2, err := dev.CO2()
	if err != nil {
		return point, err
	}
	humidity, err := dev.Humidity()
	if err != nil {
		return point, err
	}
	var temp float64
	unit := 'C'
	if *fahrenheit {
		temp, err = dev.TemperatureF()
		unit = 'F'
	} else {
		temp, err = dev.Temperature()
	}
	if err != nil {
		return point, err
	}

	if *timestamp {
		fmt.Fprintf(out, "%s: ", time.Now().Format(time.ANSIC))
	}
	fmt.Fprintf(out, "%sCO2: %4d PPM\tHumidity: %3.2f %%RH  Temperature: %3.2f *%c  ", co2Indicator(co2), co2, humidity, temp, unit)
	if *heatindex {
		fmt.Fprintf(out, "heatindex: %3.2f *%c ", scd30.HeatIndex(temp, humidity, *fahrenheit), unit)
	}
	if *dewpoint {
		fmt.Fprintf(out, "dew-point: %3.2f *%c ", scd30.DewPoint(temp, humidity, *fahrenheit), unit)
	}
	if pm != nil {
		if sample, ok := pm.Latest(); ok {
			fmt.Fprintf(out, "  DYLOS: PM1 %4d  PM10 %4d", sample.PM1, sample.PM10)
		}
	}
	fmt.Fprintln(out)

	point = trend.Point{Time: time.Now(), CO2: co2, Temperature: temp, Humidity: humidity}
	return point, nil
}

func main() {
	flag.Parse()

	out = colorable.NewColorableStdout()
	if *noColor {
		out = colorable.NewNonColorable(os.Stdout)
	}

	if *verbose < 0 || *verbose > 2 {
		fatalf("invalid verbosity %d. must be 0, 1 or 2", *verbose)
	}
	if *verbose > 0 {
		log.SetLevel(log.DebugLevel)
	}
	if *altitude != noAltitude && *pressure != noValue {
		fatalf("either set altitude or pressure, not both")
	}
	if *tempOffset != noValue && (*tempOffset < 0 || *tempOffset > 25) {
		fatalf("invalid temperature offset %.1f. must be 0 to 25 degrees", *tempOffset)
	}
	if *interval < 2 || *interval > 1800 {
		fatalf("invalid interval %d. must be 2 to 1800 seconds", *interval)
	}

	if _, err := host.Init(); err != nil {
		fatalf("host init failed: %v", err)
	}
	bus, err := i2creg.Open(*busName)
	if err != nil {
		fatalf("opening i2c bus: %v", err)
	}
	defer bus.Close()

	opts := scd30.Opts{Interval: uint16(*interval), ASC: *asc}
	if *stop || *single {
		// Stopped mode. Single measurement emulation starts its own
		// continuous cycle.
		opts.Interval = 0
	}
	if *frc != noValue {
		// A forced recalibration overwrites the self calibration state.
		opts.ASC = false
	}
	dev, err := scd30.NewI2C(bus, scd30.SensorAddress, &opts)
	if err != nil {
		fatalf("initializing scd30: %v", err)
	}
	dev.SetDebug(*verbose)
	defer func() { _ = dev.Halt() }()

	if *altitude != noAltitude {
		if err := dev.SetAltitudeCompensation(*altitude); err != nil {
			fatalf("%v", err)
		}
	}
	if *pressure != noValue {
		if err := dev.SetAmbientPressure(uint16(*pressure)); err != nil {
			fatalf("%v", err)
		}
	}
	if *frc != noValue {
		if err := dev.SetForcedRecalibration(uint16(*frc)); err != nil {
			fatalf("%v", err)
		}
	}
	if *tempOffset != noValue {
		if err := dev.SetTemperatureOffset(*tempOffset); err != nil {
			fatalf("%v", err)
		}
	}

	var pm *dylos.Monitor
	if *dylosPort != "" {
		if pm, err = dylos.Open(*dylosPort); err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = pm.Close() }()
	}

	// Reading the serial number doubles as a communication check.
	serial, err := dev.SerialNumber()
	if err != nil {
		fatalf("reading serial number: %v", err)
	}
	cprintf(colYellow, "Serialnumber %s\n", serial)

	if *stop {
		cprintf(colGreen, "Continuous measurement stopped\n")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var points []trend.Point
	if *single {
		cprintf(colGreen, "Starting single SCD30 measurement:\n")
		if err := dev.StartSingleMeasurement(); err != nil {
			fatalf("single measurement failed: %v", err)
		}
		if _, err := report(dev, pm); err != nil {
			fatalf("%v", err)
		}
		return
	}

	cprintf(colGreen, "Starting SCD30 measurement:\n")
	retry := resetRetry
	first := true
	remaining := *loopCount
loop:
	for {
		if dev.DataAvailable() {
			retry = resetRetry
			point, err := report(dev, pm)
			if err != nil {
				cprintf(colRed, "reading measurement: %v\n", err)
			} else {
				points = append(points, point)
			}
		} else if retry--; retry < 0 {
			cprintf(colRed, "Retry count exceeded. performing soft reset\n")
			if err := dev.SoftReset(); err != nil {
				cprintf(colRed, "soft reset failed: %v\n", err)
			}
			retry = resetRetry
			first = true
		} else if first {
			// The first poll after a previous stop needs at least 4
			// seconds before data shows up; stay quiet about it.
			first = false
		} else {
			fmt.Fprintln(out, "no data available")
		}

		if *loopCount > 0 {
			if remaining--; remaining <= 0 {
				break
			}
		}
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nStopping SCD30 monitor")
			break loop
		case <-time.After(time.Duration(*loopDelay) * time.Second):
		}
	}

	if *chartPath != "" {
		if len(points) < 2 {
			cprintf(colYellow, "not enough readings for a trend chart\n")
		} else if err := trend.WritePNG(*chartPath, points, &trend.Options{Title: "SCD30", FontPath: *fontPath}); err != nil {
			cprintf(colRed, "%v\n", err)
		}
	}
}
