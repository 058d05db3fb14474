// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// ErrNoFix is returned when the stream ends before a valid RMC fix.
var ErrNoFix = errors.New("gps: no valid fix")

// Scanner turns an NMEA byte stream into fixes. Only RMC sentences are used;
// other sentence types and unparsable lines are skipped.
type Scanner struct {
	reader *bufio.Reader
	fix    Fix
}

// NewScanner wraps r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{reader: bufio.NewReader(r)}
}

// Next returns the fix carried by the next RMC sentence.
func (s *Scanner) Next() (Fix, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if line = strings.TrimSpace(line); strings.HasPrefix(line, "$") {
			if fix, ok := s.apply(line); ok {
				return fix, nil
			}
		}
		if err != nil {
			return Fix{}, err
		}
	}
}

func (s *Scanner) apply(line string) (Fix, bool) {
	sentence, err := nmea.Parse(line)
	if err != nil {
		// noisy GPS or partial sentences
		return Fix{}, false
	}
	if sentence.DataType() != nmea.TypeRMC {
		return Fix{}, false
	}
	m := sentence.(nmea.RMC)

	s.fix.Time = m.Time.String()
	s.fix.Date = m.Date.String()
	s.fix.Latitude = m.Latitude
	s.fix.Longitude = m.Longitude
	s.fix.SpeedKnots = m.Speed
	s.fix.CourseDeg = m.Course
	s.fix.Validity = string(m.Validity)
	return s.fix, true
}

// FirstValidFix reads r until a valid RMC fix arrives, ctx is done or
// the stream ends. Cancelling ctx does not interrupt a blocked read; the
// caller closes r for that.
func FirstValidFix(ctx context.Context, r io.Reader) (Fix, error) {
	sc := NewScanner(r)
	for {
		if err := ctx.Err(); err != nil {
			return Fix{}, err
		}
		fix, err := sc.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Fix{}, ErrNoFix
			}
			return Fix{}, fmt.Errorf("gps read: %w", err)
		}
		if fix.Valid() {
			return fix, nil
		}
	}
}

// OpenSerial opens an NMEA receiver on port at baud 8N1.
func OpenSerial(port string, baud int) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              port,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	p, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", port, err)
	}
	return p, nil
}
