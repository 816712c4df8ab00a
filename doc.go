// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scd30mon contains a driver for the Sensirion SCD30
// CO2/temperature/humidity sensor and a command line monitor built on top
// of it. The monitor can optionally merge readings from a Dylos DC1700
// particulate monitor attached over a serial port.
package scd30mon
