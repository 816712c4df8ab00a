// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import "testing"

func TestCRC8(t *testing.T) {
	var tests = []struct {
		bytes  []byte
		result byte
	}{
		{bytes: []byte{0xbe, 0xef}, result: 0x92},
		{bytes: []byte{0x01, 0xa4}, result: 0x4d},
		{bytes: []byte{0xab, 0xcd}, result: 0x6f},
		{bytes: []byte{0x00, 0x00}, result: 0x81},
		{bytes: []byte{0x00, 0x01}, result: 0xb0},
	}
	for _, test := range tests {
		res := CRC8(test.bytes)
		if res != test.result {
			t.Errorf("CRC8(%#v)!=0x%d received 0x%d", test.bytes, test.result, res)
		}
		if !CheckCRC8(test.bytes, test.result) {
			t.Errorf("CheckCRC8(%#v, 0x%x) returned false", test.bytes, test.result)
		}
	}
}

// The 0x31 polynomial detects every single bit error in a 2 byte word. Flip
// each of the 16 data bits in turn and verify the CRC no longer matches.
func TestCRC8SingleBitErrors(t *testing.T) {
	words := [][]byte{
		{0x00, 0x00},
		{0xbe, 0xef},
		{0x44, 0x48},
		{0xff, 0xff},
		{0x5a, 0xa5},
	}
	for _, word := range words {
		crc := CRC8(word)
		for bit := 0; bit < 16; bit++ {
			corrupted := []byte{word[0], word[1]}
			corrupted[bit/8] ^= 1 << (bit % 8)
			if CheckCRC8(corrupted, crc) {
				t.Errorf("CheckCRC8 missed bit %d flipped in %#v", bit, word)
			}
		}
	}
}
