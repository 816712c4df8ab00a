// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// This package provides a driver for the Sensiron SCD30 CO2 sensor module.
// The SCD30 measures CO2 concentration with an accuracy of +/- 30ppm and
// additionally provides temperature and relative humidity readings.
//
// The sensor uses clock stretching extensively, up to 150ms once a day
// during calibration. The i2c bus host adapter must tolerate stretches of
// at least 200ms or reads will fail intermittently.
//
// Refer to the interface guide for more information.
//
// https://sensirion.com/media/documents/D7CEEF4A/6165372F/Sensirion_CO2_Sensors_SCD30_Interface_Description.pdf
package scd30
