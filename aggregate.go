package datagrid

import (
	"math"
	"strconv"
	"strings"
)

// AggregateKind is the footer reduction of a column.
type AggregateKind uint8

const (
	AggregateNone AggregateKind = iota
	AggregateSum
	AggregateCount
	AggregateAverage
	AggregateMin
	AggregateMax
)

func (k AggregateKind) String() string {
	switch k {
	case AggregateSum:
		return "sum"
	case AggregateCount:
		return "count"
	case AggregateAverage:
		return "average"
	case AggregateMin:
		return "min"
	case AggregateMax:
		return "max"
	}
	return "none"
}

// ParseAggregateKind is case-insensitive; "" is AggregateNone.
func ParseAggregateKind(s string) (AggregateKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return AggregateNone, true
	case "sum":
		return AggregateSum, true
	case "count":
		return AggregateCount, true
	case "average", "avg":
		return AggregateAverage, true
	case "min":
		return AggregateMin, true
	case "max":
		return AggregateMax, true
	}
	return AggregateNone, false
}

// AggregateLabels are the footer captions per kind. A column's own
// AggregateLabel overrides them.
type AggregateLabels struct {
	Sum     string `toml:"sum"`
	Count   string `toml:"count"`
	Average string `toml:"average"`
	Min     string `toml:"min"`
	Max     string `toml:"max"`
}

// DefaultAggregateLabels returns the English captions.
func DefaultAggregateLabels() AggregateLabels {
	return AggregateLabels{Sum: "Sum", Count: "Count", Average: "Average", Min: "Min", Max: "Max"}
}

func (l AggregateLabels) label(k AggregateKind) string {
	switch k {
	case AggregateSum:
		return l.Sum
	case AggregateCount:
		return l.Count
	case AggregateAverage:
		return l.Average
	case AggregateMin:
		return l.Min
	case AggregateMax:
		return l.Max
	}
	return ""
}

// AggregateResult is one footer cell. Columns without an aggregate get a
// zero result with an empty Label.
type AggregateResult struct {
	Column    *Column
	Kind      AggregateKind
	Count     int // rows scanned
	Samples   int // rows that contributed a numeric value
	Precision int // max fractional digits seen in the input
	Min       float64
	Max       float64
	Sum       float64
	Average   float64
	Label     string
}

// Value returns the reduced value for the result's kind. ok is false when
// there was nothing to reduce.
func (r AggregateResult) Value() (float64, bool) {
	switch r.Kind {
	case AggregateCount:
		return float64(r.Count), r.Count > 0
	case AggregateSum:
		return r.Sum, r.Samples > 0
	case AggregateAverage:
		return r.Average, r.Samples > 0
	case AggregateMin:
		return r.Min, r.Samples > 0
	case AggregateMax:
		return r.Max, r.Samples > 0
	}
	return 0, false
}

// computeAggregates reduces data for every column carrying an aggregate.
// Values are coerced to numbers; non-numeric cells are skipped. Sum and
// average are rounded to the largest number of fractional digits seen so
// float noise never reaches the label.
func computeAggregates(columns []*Column, data []Row, labels AggregateLabels) []AggregateResult {
	out := make([]AggregateResult, len(columns))
	for i, col := range columns {
		out[i] = AggregateResult{Column: col, Kind: col.Aggregate}
		if col.Aggregate == AggregateNone {
			continue
		}
		r := &out[i]
		r.Count = len(data)
		for _, row := range data {
			v, ok := Value(row, col.Property)
			if !ok {
				continue
			}
			f, ok := toNumber(v)
			if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
				continue
			}
			if p := fractionDigits(f); p > r.Precision {
				r.Precision = p
			}
			if r.Samples == 0 || f > r.Max {
				r.Max = f
			}
			if r.Samples == 0 || f < r.Min {
				r.Min = f
			}
			r.Sum += f
			r.Samples++
		}
		if r.Samples > 0 {
			r.Average = roundTo(r.Sum/float64(r.Samples), r.Precision)
			r.Sum = roundTo(r.Sum, r.Precision)
		}

		caption := labels.label(col.Aggregate)
		if col.AggregateLabel != nil {
			caption = *col.AggregateLabel
		}
		r.Label = caption
		if v, ok := r.Value(); ok {
			text := strconv.FormatFloat(v, 'f', -1, 64)
			if caption == "" {
				r.Label = text
			} else {
				r.Label = caption + ": " + text
			}
		}
	}
	return out
}

// fractionDigits counts the digits after the decimal point in the shortest
// representation of f.
func fractionDigits(f float64) int {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if _, frac, ok := strings.Cut(s, "."); ok {
		return len(frac)
	}
	return 0
}

func roundTo(f float64, precision int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', precision, 64), 64)
	if err != nil {
		return f
	}
	return r
}
