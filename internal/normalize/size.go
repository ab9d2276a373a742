// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// sizeUnits maps a unit spelling to its binary multiplier. The decimal
// spellings are treated as binary because that is how the sources use them.
var sizeUnits = map[string]float64{
	"b":   1,
	"kb":  1 << 10,
	"kib": 1 << 10,
	"mb":  1 << 20,
	"mib": 1 << 20,
	"gb":  1 << 30,
	"gib": 1 << 30,
	"tb":  1 << 40,
	"tib": 1 << 40,
}

var sizePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*([kmgt]i?b|b)\b`)

// ParseSize converts a size string such as "1.5 GB" or "700 MiB" to bytes.
// A bare integer is read as a byte count. Anything else yields 0.
func ParseSize(s string) int64 {
	s = strings.ReplaceAll(CleanText(s), ",", "")
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}

	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	mult, ok := sizeUnits[strings.ToLower(m[2])]
	if !ok {
		return 0
	}
	b := math.Round(v * mult)
	if b >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(b)
}
