// Package sizeparse parses the `--max-file-size` CLI flag's human-written
// byte-size strings ("500KB", "1.5MB", "1024") into plain int64 byte
// counts, adapted from the teacher's internal/utils.ParseFileSize.
package sizeparse

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	withUnit   = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*([KMGT])?B?$`)
	plainDigit = regexp.MustCompile(`^(\d+)$`)
)

const (
	_        = iota
	KB int64 = 1 << (10 * iota)
	MB
	GB
	TB
)

// Parse converts a byte-size string to an int64 byte count. Supported
// forms: a bare integer ("2048"), or a number followed by an optional K/M/G/T
// unit and an optional trailing B ("500KB", "1.5MB", "1GB", "512").
func Parse(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(sizeStr)
	if sizeStr == "" {
		return 0, errors.New("sizeparse: empty size string")
	}

	if m := plainDigit.FindStringSubmatch(sizeStr); len(m) == 2 {
		val, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("sizeparse: invalid byte size %q: %w", m[1], err)
		}
		return val, nil
	}

	m := withUnit.FindStringSubmatch(sizeStr)
	if len(m) != 3 {
		return 0, fmt.Errorf("sizeparse: invalid size format %q, expected e.g. %q, %q, %q", sizeStr, "1024", "500KB", "1.5MB")
	}

	valueStr, unit := m[1], strings.ToUpper(m[2])
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("sizeparse: invalid numeric value %q: %w", valueStr, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("sizeparse: size cannot be negative: %q", sizeStr)
	}

	if unit == "" {
		if value >= float64(math.MaxInt64)+0.5 {
			return 0, fmt.Errorf("sizeparse: size %q overflows int64", sizeStr)
		}
		return int64(value), nil
	}

	var multiplier int64
	switch unit {
	case "K":
		multiplier = KB
	case "M":
		multiplier = MB
	case "G":
		multiplier = GB
	case "T":
		multiplier = TB
	}

	if value > 0 && value > float64(math.MaxInt64)/float64(multiplier) {
		return 0, fmt.Errorf("sizeparse: size %q overflows int64", sizeStr)
	}
	bytes := value * float64(multiplier)
	if bytes >= float64(math.MaxInt64)+0.5 {
		return 0, fmt.Errorf("sizeparse: size %q overflows int64", sizeStr)
	}
	return int64(bytes), nil
}
