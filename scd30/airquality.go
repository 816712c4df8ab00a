// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import "math"

// HeatIndex computes the apparent temperature from the measured temperature
// and relative humidity, using the Rothfusz regression and Steadman's
// simplified formula as published by the US National Weather Service:
// http://www.wpc.ncep.noaa.gov/html/heatindex_equation.shtml
//
// fahrenheit selects the unit of both temperature and the returned value.
func HeatIndex(temperature, humidity float64, fahrenheit bool) float64 {
	t := temperature
	if !fahrenheit {
		t = t*1.8 + 32
	}

	hi := 0.5 * (t + 61.0 + ((t - 68.0) * 1.2) + (humidity * 0.094))

	// The simplified formula only holds below 79F. Above that, switch to
	// the full regression plus its two boundary corrections.
	if hi > 79 {
		hi = -42.379 +
			2.04901523*t +
			10.14333127*humidity +
			-0.22475541*t*humidity +
			-0.00683783*t*t +
			-0.05481717*humidity*humidity +
			0.00122874*t*t*humidity +
			0.00085282*t*humidity*humidity +
			-0.00000199*t*t*humidity*humidity

		if humidity < 13 && t >= 80.0 && t <= 112.0 {
			hi -= ((13.0 - humidity) * 0.25) * math.Sqrt((17.0-math.Abs(t-95.0))*0.05882)
		} else if humidity > 85.0 && t >= 80.0 && t <= 87.0 {
			hi += ((humidity - 85.0) * 0.1) * ((87.0 - t) * 0.2)
		}
	}

	if !fahrenheit {
		return (hi - 32) * 0.55555
	}
	return hi
}

// DewPoint computes the dew point from the measured temperature and
// relative humidity using the August-Roche-Magnus approximation.
//
// fahrenheit selects the unit of both temperature and the returned value.
func DewPoint(temperature, humidity float64, fahrenheit bool) float64 {
	t := temperature
	if fahrenheit {
		t = (t - 32) * 0.55555
	}

	g := math.Log(humidity/100) + (17.625*t)/(243.12+t)
	td := 243.04 * g / (17.625 - g)

	if fahrenheit {
		return td*1.8 + 32
	}
	return td
}
