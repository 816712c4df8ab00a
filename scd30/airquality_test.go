// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"math"
	"testing"
)

func TestHeatIndex(t *testing.T) {
	tests := []struct {
		temperature float64
		humidity    float64
		fahrenheit  bool
		expected    float64
	}{
		// Below the 79F threshold the simplified formula is returned
		// unmodified.
		{temperature: 75, humidity: 40, fahrenheit: true, expected: 74.08},
		{temperature: 20, humidity: 50, fahrenheit: false, expected: 19.360917},
		// High humidity correction: regression gives 101.5808, the
		// correction term adds 0.2.
		{temperature: 85, humidity: 90, fahrenheit: true, expected: 101.780804},
		// Low humidity hot-dry correction.
		{temperature: 96, humidity: 10, fahrenheit: true, expected: 90.361604},
	}
	for _, test := range tests {
		result := HeatIndex(test.temperature, test.humidity, test.fahrenheit)
		if math.Abs(result-test.expected) > 0.001 {
			t.Errorf("HeatIndex(%f, %f, %t)=%f expected %f", test.temperature, test.humidity, test.fahrenheit, result, test.expected)
		}
	}
}

func TestHeatIndexSimplifiedBranch(t *testing.T) {
	// Verify the value below the threshold is exactly the simplified
	// formula, ie the regression branch was not taken.
	temperature, humidity := 75.0, 40.0
	simplified := 0.5 * (temperature + 61.0 + ((temperature - 68.0) * 1.2) + (humidity * 0.094))
	if result := HeatIndex(temperature, humidity, true); result != simplified {
		t.Errorf("HeatIndex(%f, %f, true)=%f expected the simplified value %f", temperature, humidity, result, simplified)
	}
}

func TestDewPoint(t *testing.T) {
	// 20C at 50%RH gives a dew point of roughly 9.3C.
	result := DewPoint(20, 50, false)
	if math.Abs(result-9.3) > 0.2 {
		t.Errorf("DewPoint(20, 50, false)=%f expected 9.3 +/- 0.2", result)
	}

	// The same physical conditions expressed in Fahrenheit must give the
	// Fahrenheit-converted equivalent of the same dew point.
	resultF := DewPoint(20*1.8+32, 50, true)
	if math.Abs(resultF-(result*1.8+32)) > 0.01 {
		t.Errorf("DewPoint(68, 50, true)=%f expected %f", resultF, result*1.8+32)
	}
}
