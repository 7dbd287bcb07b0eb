// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"io"
	"log"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/lokata/internal/status"
)

const (
	displayW     = 128
	displayH     = 64
	lineHeight   = 13
	maxLineChars = displayW / 7
)

// Display is the 128x64 status OLED. It is meant to sit behind
// status.Async: Present blocks for a full I2C frame transfer.
type Display struct {
	mu  sync.Mutex
	dev *ssd1306.Dev
	err error // last draw error, logged once per change
}

// OpenDisplay opens the I2C bus ("" for the first one) and initializes the
// panel. The returned closer releases the bus.
func OpenDisplay(bus string) (*Display, io.Closer, error) {
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}
	dev, err := ssd1306.NewI2C(b, &ssd1306.DefaultOpts)
	if err != nil {
		b.Close()
		return nil, nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: initialized")
	return &Display{dev: dev}, b, nil
}

// Splash draws the boot screen.
func (d *Display) Splash(lines ...string) error {
	return d.draw(renderLines(lines))
}

// Present draws the snapshot.
func (d *Display) Present(s status.Snapshot) {
	err := d.draw(renderStatus(s))
	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil && (d.err == nil || d.err.Error() != err.Error()) {
		log.Printf("display: error updating display: %v", err)
	}
	d.err = err
}

func (d *Display) draw(img *image1bit.VerticalLSB) error {
	return d.dev.Draw(d.dev.Bounds(), img, image.Point{})
}

// statusLines is the text shown for s, top to bottom.
func statusLines(s status.Snapshot) []string {
	lines := make([]string, 0, 4)
	if s.LocationValid {
		lines = append(lines, "GPS: LOCKED")
	} else {
		lines = append(lines, "GPS: SEARCH")
	}
	lines = append(lines, fmt.Sprintf("Sats: %d", s.Satellites))
	if s.HDOPValid {
		lines = append(lines, fmt.Sprintf("HDOP %.1f ~%.0fm", s.HDOP, s.AccuracyM))
	} else {
		lines = append(lines, "HDOP --")
	}
	if s.LocationValid {
		lines = append(lines, fmt.Sprintf("%.5f,%.5f", s.Latitude, s.Longitude))
	}
	return lines
}

func renderStatus(s status.Snapshot) *image1bit.VerticalLSB {
	return renderLines(statusLines(s))
}

func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayW, displayH))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		y := (i + 1) * lineHeight
		if y > displayH {
			break
		}
		if len(line) > maxLineChars {
			line = line[:maxLineChars]
		}
		drawer.Dot = fixed.P(0, y)
		drawer.DrawString(line)
	}
	return img
}
