// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package trend

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func samplePoints(n int) []Point {
	points := make([]Point, n)
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for ix := range points {
		points[ix] = Point{
			Time:        base.Add(time.Duration(ix) * time.Minute),
			CO2:         uint16(600 + 25*ix),
			Temperature: 21.5 + 0.1*float64(ix),
			Humidity:    45 - 0.2*float64(ix),
		}
	}
	return points
}

func TestRender(t *testing.T) {
	img, err := Render(samplePoints(10), &Options{Width: 320, Height: 200, Title: "scd30"})
	if err != nil {
		t.Fatal(err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 320 || bounds.Dy() != 200 {
		t.Errorf("unexpected bounds %v", bounds)
	}
	// At least some pixels must differ from the white background.
	white := color.RGBA{0xff, 0xff, 0xff, 0xff}
	painted := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			wr, wg, wb, wa := white.RGBA()
			if r != wr || g != wg || b != wb || a != wa {
				painted++
			}
		}
	}
	if painted == 0 {
		t.Error("rendered chart is entirely background")
	}
}

func TestRenderTooFewPoints(t *testing.T) {
	if _, err := Render(samplePoints(1), nil); err == nil {
		t.Error("Render accepted a single point")
	}
}

func TestRenderFlatSeries(t *testing.T) {
	points := samplePoints(5)
	for ix := range points {
		points[ix].CO2 = 600
		points[ix].Temperature = 21
		points[ix].Humidity = 45
	}
	if _, err := Render(points, nil); err != nil {
		t.Errorf("flat series failed to render: %v", err)
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trend.png")
	if err := WritePNG(path, samplePoints(6), nil); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("wrote an empty PNG")
	}
}

func TestLoadFaceMissingFile(t *testing.T) {
	if _, err := loadFace("/does/not/exist.ttf"); err == nil {
		t.Error("loadFace accepted a missing font file")
	}
}
