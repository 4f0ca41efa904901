package pipeline

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// RangeMode selects how the two endpoints of a quantity range are combined.
type RangeMode int

const (
	RangeAverage RangeMode = iota
	RangeFirst
	RangeLast
)

// QuantityOptions configures quantity parsing.
type QuantityOptions struct {
	RangeMode     RangeMode
	ClampNegative bool
}

// QuantityOption configures ParseQuantity.
type QuantityOption func(*QuantityOptions)

// WithRangeMode selects how range endpoints are combined.
func WithRangeMode(m RangeMode) QuantityOption {
	return func(o *QuantityOptions) { o.RangeMode = m }
}

// WithClampNegative floors negative results to zero.
func WithClampNegative() QuantityOption {
	return func(o *QuantityOptions) { o.ClampNegative = true }
}

// Unicode vulgar fraction glyphs normalized to ASCII "n/d" before parsing.
var vulgarFractions = map[rune]string{
	'¼': "1/4", '½': "1/2", '¾': "3/4",
	'⅓': "1/3", '⅔': "2/3",
	'⅕': "1/5", '⅖': "2/5", '⅗': "3/5", '⅘': "4/5",
	'⅙': "1/6", '⅚': "5/6",
	'⅐': "1/7", '⅑': "1/9", '⅒': "1/10",
	'⅛': "1/8", '⅜': "3/8", '⅝': "5/8", '⅞': "7/8",
}

var (
	decimalCommaRe = regexp.MustCompile(`(\d),(\d)`)
	rangeSplitRe   = regexp.MustCompile(`^(.*?\d.*?)\s*(?:-|–|—|\bto\b)\s*(.*\d.*)$`)
	wholeFracRe    = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)$`)
	wholeMixedRe   = regexp.MustCompile(`^(\d+)\s+(\d+)\s*/\s*(\d+)$`)
	scanMixedRe    = regexp.MustCompile(`(\d+)\s+(\d+)\s*/\s*(\d+)`)
	scanFracRe     = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
	scanDecimalRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
)

// ParseQuantity parses a free-form quantity string ("1/2", "1 1/2", "½",
// "1,5", "1-3", "1 to 3", "2.25") into a decimal value. The second return is
// false when nothing numeric could be extracted; callers treat that as "no
// usable quantity", not an error.
func ParseQuantity(input string, opts ...QuantityOption) (float64, bool) {
	options := QuantityOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return parseQuantity(input, options)
}

// ParseQuantityValue parses an already-typed value as it appears in JSON-LD:
// numbers pass through (NaN is rejected), strings go through ParseQuantity.
func ParseQuantityValue(v interface{}, opts ...QuantityOption) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case string:
		return ParseQuantity(n, opts...)
	default:
		return 0, false
	}
}

func parseQuantity(input string, options QuantityOptions) (float64, bool) {
	s := normalizeQuantityText(input)
	if s == "" {
		return 0, false
	}

	if m := rangeSplitRe.FindStringSubmatch(s); m != nil {
		left, leftOK := parseSingleQuantity(m[1])
		right, rightOK := parseSingleQuantity(m[2])
		if leftOK && rightOK {
			var v float64
			switch options.RangeMode {
			case RangeFirst:
				v = left
			case RangeLast:
				v = right
			default:
				v = (left + right) / 2
			}
			return finishQuantity(v, options)
		}
		// Only one side parsed: treat the whole string as a single value.
	}

	if v, ok := parseSingleQuantity(s); ok {
		return finishQuantity(v, options)
	}
	return 0, false
}

func normalizeQuantityText(input string) string {
	var b strings.Builder
	for _, r := range input {
		if frac, ok := vulgarFractions[r]; ok {
			b.WriteByte(' ')
			b.WriteString(frac)
			continue
		}
		b.WriteRune(r)
	}
	s := strings.TrimSpace(b.String())
	s = decimalCommaRe.ReplaceAllString(s, "$1.$2")
	return strings.Join(strings.Fields(s), " ")
}

// parseSingleQuantity parses one token: pure fraction, mixed number,
// decimal/integer, then a free-text scan for the first numeric-looking
// substring in mixed > fraction > decimal priority.
func parseSingleQuantity(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if m := wholeMixedRe.FindStringSubmatch(s); m != nil {
		return mixedValue(m[1], m[2], m[3])
	}
	if m := wholeFracRe.FindStringSubmatch(s); m != nil {
		return fractionValue(m[1], m[2])
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) {
		return v, true
	}

	if m := scanMixedRe.FindStringSubmatch(s); m != nil {
		return mixedValue(m[1], m[2], m[3])
	}
	if m := scanFracRe.FindStringSubmatch(s); m != nil {
		return fractionValue(m[1], m[2])
	}
	if m := scanDecimalRe.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func fractionValue(num, den string) (float64, bool) {
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0, false
	}
	return n / d, true
}

func mixedValue(whole, num, den string) (float64, bool) {
	w, err := strconv.ParseFloat(whole, 64)
	if err != nil {
		return 0, false
	}
	f, ok := fractionValue(num, den)
	if !ok {
		return 0, false
	}
	return w + f, true
}

func finishQuantity(v float64, options QuantityOptions) (float64, bool) {
	if options.ClampNegative && v < 0 {
		v = 0
	}
	return v, true
}
