//go:build examples
// +build examples

// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30_test

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/scd30mon/scd30"
)

// basic example program for the scd30 sensor using this library.
//
// To execute this as a stand-alone program:
//
// Copy the file example_test.go to a new directory.
// rename the file to main.go
// rename the Example() function to main, and the package to main
//
// execute:
//
//	go mod init mydomain.com/scd30
//	go mod tidy
//	go build -o main main.go
//	./main
func Example() {
	fmt.Println("scd30 example program")
	if _, err := host.Init(); err != nil {
		fmt.Println(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	dev, err := scd30.NewI2C(bus, scd30.SensorAddress, nil)
	if err != nil {
		log.Fatal(err)
	}

	serial, err := dev.SerialNumber()
	if err == nil {
		fmt.Printf("serial number: %s\n", serial)
	} else {
		fmt.Println(err)
	}

	env := scd30.Env{}
	err = dev.Sense(&env)
	if err == nil {
		fmt.Println(env.String())
		temp := env.Temperature.Celsius()
		humidity := float64(env.Humidity) / float64(physic.PercentRH)
		fmt.Printf("dew point: %.2f°C heat index: %.2f°C\n",
			scd30.DewPoint(temp, humidity, false),
			scd30.HeatIndex(temp, humidity, false))
	} else {
		fmt.Println(err)
	}
	// Output: Temperature: 22.5°C Humidity: 45%rH CO2: 800 PPM
}
