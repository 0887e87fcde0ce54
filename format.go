package datagrid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Formatter renders a cell value as text.
type Formatter = func(row Row, col *Column, value any) string

// ----------------------------------------------------------------------------
// canned formatter presets; non-numeric values fall back to fmt.Sprint
// ----------------------------------------------------------------------------

// Number formats numeric values with comma separators.
func Number(decimals int) Formatter {
	return func(_ Row, _ *Column, v any) string {
		f, ok := toNumber(v)
		if !ok {
			return plain(v)
		}
		return FormatNumber(f, decimals)
	}
}

// Currency prefixes a comma separated number with symbol.
func Currency(symbol string, decimals int) Formatter {
	return func(_ Row, _ *Column, v any) string {
		f, ok := toNumber(v)
		if !ok {
			return plain(v)
		}
		if f < 0 {
			return "-" + symbol + FormatNumber(-f, decimals)
		}
		return symbol + FormatNumber(f, decimals)
	}
}

// Percent formats numeric values as percentages.
func Percent(decimals int) Formatter {
	return func(_ Row, _ *Column, v any) string {
		f, ok := toNumber(v)
		if !ok {
			return plain(v)
		}
		return strconv.FormatFloat(f, 'f', decimals, 64) + "%"
	}
}

// Bytes formats numeric values as human-readable byte sizes.
func Bytes() Formatter {
	return func(_ Row, _ *Column, v any) string {
		f, ok := toNumber(v)
		if !ok {
			return plain(v)
		}
		return formatBytes(f)
	}
}

// Bool renders booleans with custom labels.
func Bool(yes, no string) Formatter {
	return func(_ Row, _ *Column, v any) string {
		if b, ok := v.(bool); ok && b {
			return yes
		}
		return no
	}
}

func plain(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// FormatNumber formats f with decimals places and thousand separators.
// A negative decimals uses the shortest exact representation.
func FormatNumber(f float64, decimals int) string {
	return insertCommas(strconv.FormatFloat(f, 'f', decimals, 64))
}

func insertCommas(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	integer, decimal, hasDecimal := strings.Cut(s, ".")

	if n := len(integer); n > 3 {
		var b strings.Builder
		b.Grow(n + n/3)
		start := n % 3
		if start == 0 {
			start = 3
		}
		b.WriteString(integer[:start])
		for i := start; i < n; i += 3 {
			b.WriteByte(',')
			b.WriteString(integer[i : i+3])
		}
		integer = b.String()
	}

	if hasDecimal {
		integer += "." + decimal
	}
	if neg {
		return "-" + integer
	}
	return integer
}

func formatBytes(b float64) string {
	if b < 0 {
		return "-" + formatBytes(-b)
	}
	if b < 1 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	exp := min(int(math.Log(b)/math.Log(1024)), len(units)-1)
	v := b / math.Pow(1024, float64(exp))
	if exp == 0 {
		return strconv.FormatFloat(v, 'f', 0, 64) + " B"
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + " " + units[exp]
}
