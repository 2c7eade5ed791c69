package datasource

import (
	"fmt"
	"regexp"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteIdent пропускает только простые идентификаторы и экранирует их двойными кавычками.
// Поле приходит из настроек виджета, поэтому в SQL оно попадает только после проверки.
func quoteIdent(name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", fmt.Errorf("datasource: invalid identifier %q", name)
	}
	return `"` + name + `"`, nil
}

func copyFilter(f map[string]any) map[string]any {
	if len(f) == 0 {
		return nil
	}
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// matchFilter — семантика ambient filter: конъюнкция равенств column = value.
// Числа сравниваются как float64, чтобы 5 из JSON совпадало с int 5 из записи.
func matchFilter(rec map[string]any, filter map[string]any) bool {
	for col, want := range filter {
		got, ok := rec[col]
		if !ok {
			return false
		}
		if !looseEqual(got, want) {
			return false
		}
	}
	return true
}

func looseEqual(a, b any) bool {
	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
