// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/lokata/internal/config"
	"github.com/relabs-tech/lokata/internal/gps"
	"github.com/relabs-tech/lokata/internal/telemetry"
)

// captureFlushRows is how many rows are buffered between flushes to disk,
// about one second at 100 Hz.
const captureFlushRows = 100

// capturePortGlobs are where USB serial adapters show up on Linux.
var capturePortGlobs = []string{"/dev/ttyUSB*", "/dev/ttyACM*"}

// Capture turns telemetry lines into CSV rows.
type Capture struct {
	layout   telemetry.Layout
	csv      *csv.Writer
	progress io.Writer

	start    time.Time
	rows     uint64
	rejected uint64
}

// NewCapture writes the header row for layout to w. Progress goes to
// progress every captureFlushRows rows; nil disables it.
func NewCapture(w io.Writer, layout telemetry.Layout, progress io.Writer) (*Capture, error) {
	c := &Capture{
		layout:   layout,
		csv:      csv.NewWriter(w),
		progress: progress,
		start:    time.Now(),
	}
	if err := c.csv.Write(layout.Columns()); err != nil {
		return nil, fmt.Errorf("capture: write header: %w", err)
	}
	return c, nil
}

// Line ingests one line. Lines without the DATA tag (boot messages, noise)
// are ignored; tagged lines with the wrong field count are counted as
// rejected. It reports whether a row was written.
func (c *Capture) Line(line string) (bool, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, telemetry.Tag+",") {
		return false, nil
	}
	parts := strings.Split(line, ",")
	if len(parts) != c.layout.FieldCount()+1 {
		c.rejected++
		return false, nil
	}
	if err := c.csv.Write(parts[1:]); err != nil {
		return false, fmt.Errorf("capture: write row: %w", err)
	}
	c.rows++

	if c.rows%captureFlushRows == 0 {
		if err := c.Flush(); err != nil {
			return true, err
		}
		if c.progress != nil {
			last := line
			if len(last) > 40 {
				last = last[:40] + "..."
			}
			fmt.Fprintf(c.progress, "\rRows: %s | Rate: %.1f Hz | Last: %s",
				humanize.Comma(int64(c.rows)), c.Rate(), last)
		}
	}
	return true, nil
}

// Consume reads lines from r until EOF or a read error.
func (c *Capture) Consume(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024), 64*1024)
	for sc.Scan() {
		if _, err := c.Line(sc.Text()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Flush pushes buffered rows to the underlying writer.
func (c *Capture) Flush() error {
	c.csv.Flush()
	return c.csv.Error()
}

// Rows is the number of rows written.
func (c *Capture) Rows() uint64 { return c.rows }

// Rejected is the number of DATA lines with the wrong field count.
func (c *Capture) Rejected() uint64 { return c.rejected }

// Rate is the mean row rate since the capture started.
func (c *Capture) Rate() float64 {
	d := time.Since(c.start).Seconds()
	if d <= 0 {
		return 0
	}
	return float64(c.rows) / d
}

// SessionManifest is written next to the CSV when a capture ends.
type SessionManifest struct {
	Port     string    `yaml:"port"`
	Baud     int       `yaml:"baud"`
	Layout   string    `yaml:"layout"`
	Columns  []string  `yaml:"columns"`
	CSV      string    `yaml:"csv"`
	Started  time.Time `yaml:"started"`
	Stopped  time.Time `yaml:"stopped"`
	Rows     uint64    `yaml:"rows"`
	Rejected uint64    `yaml:"rejected"`
	RateHz   float64   `yaml:"rate_hz"`
}

// WriteManifest stores m as YAML at path.
func WriteManifest(path string, m SessionManifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("capture: marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("capture: write manifest: %w", err)
	}
	return nil
}

// findSerialPorts lists candidate ports in a stable order.
func findSerialPorts(globs []string) []string {
	var ports []string
	for _, g := range globs {
		m, err := filepath.Glob(g)
		if err != nil {
			continue
		}
		ports = append(ports, m...)
	}
	sort.Strings(ports)
	return ports
}

// selectPort picks the only port, or asks on in/out when there are several.
func selectPort(ports []string, in io.Reader, out io.Writer) (string, error) {
	switch len(ports) {
	case 0:
		return "", errors.New("capture: no serial ports found")
	case 1:
		fmt.Fprintf(out, "Auto-selected: %s\n", ports[0])
		return ports[0], nil
	}
	for i, p := range ports {
		fmt.Fprintf(out, "  %d: %s\n", i, p)
	}
	fmt.Fprint(out, "Select index: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("capture: read selection: %w", err)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || idx < 0 || idx >= len(ports) {
		return "", fmt.Errorf("capture: invalid selection %q", strings.TrimSpace(line))
	}
	return ports[idx], nil
}

// RunCapture records the logger's telemetry port to
// <CAPTURE_DIR>/walk_data_<timestamp>.csv until ctx is cancelled.
func RunCapture(ctx context.Context) error {
	cfg := config.Get()
	layout, err := LayoutFromConfig(cfg)
	if err != nil {
		return err
	}

	dir, err := filepath.Abs(cfg.CaptureDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("capture: create %s: %w", dir, err)
	}

	portName := cfg.CapturePort
	if portName == "" {
		fmt.Println("Scanning ports...")
		if portName, err = selectPort(findSerialPorts(capturePortGlobs), os.Stdin, os.Stdout); err != nil {
			return err
		}
	}

	port, err := gps.OpenSerial(portName, cfg.CaptureBaud)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	log.Printf("capture: connected to %s @ %d", portName, cfg.CaptureBaud)

	started := time.Now()
	base := filepath.Join(dir, "walk_data_"+started.Format("20060102-150405"))
	f, err := os.Create(base + ".csv")
	if err != nil {
		port.Close()
		return fmt.Errorf("capture: %w", err)
	}
	defer f.Close()

	c, err := NewCapture(f, layout, os.Stdout)
	if err != nil {
		port.Close()
		return err
	}
	fmt.Printf("\nLogging to: %s\nPress Ctrl+C to stop.\n\n", f.Name())

	// Closing the port is what unblocks the read on Ctrl+C.
	go func() {
		<-ctx.Done()
		port.Close()
	}()
	readErr := c.Consume(port)
	if ctx.Err() == nil && readErr != nil {
		log.Printf("capture: read error: %v", readErr)
	}

	if err := c.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n\nStopped. Saved %s rows (%s rejected).\n", humanize.Comma(int64(c.Rows())), humanize.Comma(int64(c.Rejected())))
	if st, err := f.Stat(); err == nil {
		log.Printf("capture: %s written", humanize.Bytes(uint64(st.Size())))
	}

	return WriteManifest(base+".yaml", SessionManifest{
		Port:     portName,
		Baud:     cfg.CaptureBaud,
		Layout:   layout.Name,
		Columns:  layout.Columns(),
		CSV:      filepath.Base(f.Name()),
		Started:  started,
		Stopped:  time.Now(),
		Rows:     c.Rows(),
		Rejected: c.Rejected(),
		RateHz:   c.Rate(),
	})
}
