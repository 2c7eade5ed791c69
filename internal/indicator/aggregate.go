package indicator

import (
	"encoding/json"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/xela07ax/statindicator/internal/domain"
)

// NumericValues собирает числовые значения поля. nil, строки, bool и NaN в агрегацию не попадают.
func NumericValues(records []domain.Record, field string) []float64 {
	values := make([]float64, 0, len(records))
	for _, rec := range records {
		if v, ok := toFloat(rec[field]); ok {
			values = append(values, v)
		}
	}
	return values
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Aggregate считает агрегат над V. nil означает "нет значения":
// пустой набор для SUM/AVG/MIN/MAX. COUNT пустого набора = 0.
func Aggregate(kind domain.StatisticType, values []float64) *float64 {
	if kind == domain.StatisticCount {
		n := float64(len(values))
		return &n
	}
	if len(values) == 0 {
		return nil
	}

	var (
		res float64
		err error
	)
	data := stats.Float64Data(values)
	switch kind {
	case domain.StatisticAvg:
		res, err = stats.Mean(data)
	case domain.StatisticMin:
		res, err = stats.Min(data)
	case domain.StatisticMax:
		res, err = stats.Max(data)
	default:
		// SUM и все, что не распознали
		res, err = stats.Sum(data)
	}
	if err != nil {
		return nil
	}
	return &res
}

// PositiveShare — процент записей, у которых поле > 0. Знаменатель — все записи, включая NULL.
func PositiveShare(records []domain.Record, field string) float64 {
	if len(records) == 0 {
		return 0
	}
	positive := 0
	for _, rec := range records {
		if v, ok := toFloat(rec[field]); ok && v > 0 {
			positive++
		}
	}
	return 100 * float64(positive) / float64(len(records))
}
