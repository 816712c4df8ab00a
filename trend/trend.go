// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package trend renders a logged series of SCD30 readings to a PNG chart.
package trend

import (
	"fmt"
	"image"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Point is one logged reading.
type Point struct {
	Time time.Time
	// CO2 concentration in PPM.
	CO2 uint16
	// Temperature in the unit the monitor displays.
	Temperature float64
	// Relative humidity in %RH.
	Humidity float64
}

// Options control the chart rendering.
type Options struct {
	// Width and height of the image in pixels. Zero selects 800x480.
	Width, Height int
	// Title drawn at the top of the chart.
	Title string
	// FontPath optionally names a TTF file for the labels. When empty the
	// basicfont face is used.
	FontPath string
}

const margin = 48.0

// Render draws the series as three colored polylines with min/max labels
// per series.
func Render(points []Point, opts *Options) (image.Image, error) {
	if len(points) < 2 {
		return nil, errors.New("trend: need at least two points to draw a chart")
	}
	if opts == nil {
		opts = &Options{}
	}
	w, h := opts.Width, opts.Height
	if w == 0 {
		w = 800
	}
	if h == 0 {
		h = 480
	}

	face, err := loadFace(opts.FontPath)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(w, h)
	dc.SetFontFace(face)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Plot area border.
	dc.SetRGB(0.75, 0.75, 0.75)
	dc.SetLineWidth(1)
	dc.DrawRectangle(margin, margin, float64(w)-2*margin, float64(h)-2*margin)
	dc.Stroke()

	if opts.Title != "" {
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(opts.Title, float64(w)/2, margin/2, 0.5, 0.5)
	}

	series := []struct {
		label   string
		r, g, b float64
		value   func(p Point) float64
	}{
		{"CO2 PPM", 0.8, 0.1, 0.1, func(p Point) float64 { return float64(p.CO2) }},
		{"temperature", 0.1, 0.5, 0.1, func(p Point) float64 { return p.Temperature }},
		{"humidity %RH", 0.1, 0.2, 0.8, func(p Point) float64 { return p.Humidity }},
	}
	for ix, s := range series {
		lo, hi := seriesRange(points, s.value)
		drawSeries(dc, points, s.value, lo, hi, s.r, s.g, s.b, float64(w), float64(h))
		dc.SetRGB(s.r, s.g, s.b)
		label := fmt.Sprintf("%s %.1f..%.1f", s.label, lo, hi)
		dc.DrawString(label, margin+float64(ix)*220, float64(h)-margin/2)
	}

	// Time labels at the plot corners.
	dc.SetRGB(0.3, 0.3, 0.3)
	dc.DrawString(points[0].Time.Format("15:04:05"), margin, margin-6)
	dc.DrawStringAnchored(points[len(points)-1].Time.Format("15:04:05"), float64(w)-margin, margin-6, 1, 0)

	return dc.Image(), nil
}

// WritePNG renders the series and writes it to path.
func WritePNG(path string, points []Point, opts *Options) error {
	img, err := Render(points, opts)
	if err != nil {
		return err
	}
	if err := gg.SavePNG(path, img); err != nil {
		return errors.Wrapf(err, "trend: writing %s", path)
	}
	return nil
}

func loadFace(path string) (font.Face, error) {
	if path == "" {
		return basicfont.Face7x13, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "trend: reading font %s", path)
	}
	f, err := truetype.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "trend: parsing font %s", path)
	}
	return truetype.NewFace(f, &truetype.Options{Size: 13}), nil
}

func seriesRange(points []Point, value func(p Point) float64) (lo, hi float64) {
	lo, hi = value(points[0]), value(points[0])
	for _, p := range points[1:] {
		v := value(p)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	// A flat series still needs a drawable span.
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}

func drawSeries(dc *gg.Context, points []Point, value func(p Point) float64, lo, hi, r, g, b, w, h float64) {
	plotW := w - 2*margin
	plotH := h - 2*margin
	dc.SetRGB(r, g, b)
	dc.SetLineWidth(2)
	for ix, p := range points {
		x := margin + plotW*float64(ix)/float64(len(points)-1)
		y := margin + plotH*(1-(value(p)-lo)/(hi-lo))
		if ix == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()
}
