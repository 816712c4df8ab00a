// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, a CRC8 calculation
package common

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. CRC bytes are used in sensors from TI and Sensirion.
// The polynomial is 0x31, initialized with 0xff, without reflection or a
// final xor.
func CRC8(bytes []byte) byte {
	var crc byte = 0xff
	for _, val := range bytes {
		crc ^= val
		for i := 0; i < 8; i++ {
			if (crc & 0x80) == 0 {
				crc <<= 1
			} else {
				crc = (byte)((crc << 1) ^ 0x31)
			}
		}
	}
	return crc
}

// CheckCRC8 returns true if expected matches the CRC8 of bytes. Sensirion
// sensors append a CRC byte to every 2 byte data word, and a mismatch means
// the word must be discarded.
func CheckCRC8(bytes []byte, expected byte) bool {
	return CRC8(bytes) == expected
}
