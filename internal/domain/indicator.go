package domain

import (
	"math"
	"strings"
)

// StatisticType вид агрегации над числовым полем
type StatisticType string

const (
	StatisticSum   StatisticType = "SUM"
	StatisticAvg   StatisticType = "AVG"
	StatisticCount StatisticType = "COUNT"
	StatisticMin   StatisticType = "MIN"
	StatisticMax   StatisticType = "MAX"
)

// ParseStatisticType нормализует регистр. Неизвестный вид трактуется как SUM.
func ParseStatisticType(s string) StatisticType {
	switch t := StatisticType(strings.ToUpper(strings.TrimSpace(s))); t {
	case StatisticSum, StatisticAvg, StatisticCount, StatisticMin, StatisticMax:
		return t
	default:
		return StatisticSum
	}
}

// SecondaryMode определяет, как считается вторичное значение.
type SecondaryMode string

const (
	// SecondaryDenominator — процент от заданного знаменателя: raw / denominator * 100
	SecondaryDenominator SecondaryMode = "DENOMINATOR"
	// SecondaryPositiveShare — доля записей с положительным значением поля (legacy-режим виджета)
	SecondaryPositiveShare SecondaryMode = "POSITIVE_SHARE"
)

const (
	DefaultDivisor                = 1.0
	DefaultDecimalPlaces          = 1
	DefaultSecondaryDecimalPlaces = 2
	MaxDecimalPlaces              = 10
)

// RawConfig — конфигурация виджета в том виде, в каком её хранит ConfigStore.
// Любое поле может отсутствовать, дефолты применяет только ApplyDefaults.
type RawConfig struct {
	StatisticField            *string  `json:"statisticField,omitempty"`
	StatisticType             *string  `json:"statisticType,omitempty"`
	Divisor                   *float64 `json:"divisor,omitempty"`
	DecimalPlaces             *int     `json:"decimalPlaces,omitempty"`
	Prefix                    *string  `json:"prefix,omitempty"`
	Suffix                    *string  `json:"suffix,omitempty"`
	ShowSecondaryValue        *bool    `json:"showSecondaryValue,omitempty"`
	SecondaryMode             *string  `json:"secondaryMode,omitempty"`
	SecondaryPrefix           *string  `json:"secondaryPrefix,omitempty"`
	SecondarySuffix           *string  `json:"secondarySuffix,omitempty"`
	SecondaryValueDenominator *float64 `json:"secondaryValueDenominator,omitempty"`
	SecondaryDecimalPlaces    *int     `json:"secondaryDecimalPlaces,omitempty"`
}

// Config — конфигурация после применения дефолтов. Ядро работает только с ней.
type Config struct {
	StatisticField            string        `json:"statisticField"`
	StatisticType             StatisticType `json:"statisticType"`
	Divisor                   float64       `json:"divisor"`
	DecimalPlaces             int           `json:"decimalPlaces"`
	Prefix                    string        `json:"prefix"`
	Suffix                    string        `json:"suffix"`
	ShowSecondaryValue        bool          `json:"showSecondaryValue"`
	SecondaryMode             SecondaryMode `json:"secondaryMode"`
	SecondaryPrefix           string        `json:"secondaryPrefix"`
	SecondarySuffix           string        `json:"secondarySuffix"`
	SecondaryValueDenominator *float64      `json:"secondaryValueDenominator,omitempty"`
	SecondaryDecimalPlaces    int           `json:"secondaryDecimalPlaces"`
}

// Active — виджет что-то считает только при выбранном поле.
func (c Config) Active() bool {
	return c.StatisticField != ""
}

// ApplyDefaults — единственное место, где RawConfig превращается в Config.
func ApplyDefaults(raw RawConfig) Config {
	cfg := Config{
		StatisticField:         strings.TrimSpace(deref(raw.StatisticField, "")),
		StatisticType:          StatisticSum,
		Divisor:                NormalizeDivisor(raw.Divisor),
		DecimalPlaces:          clampPlaces(raw.DecimalPlaces, DefaultDecimalPlaces),
		Prefix:                 deref(raw.Prefix, ""),
		Suffix:                 deref(raw.Suffix, ""),
		ShowSecondaryValue:     deref(raw.ShowSecondaryValue, false),
		SecondaryPrefix:        deref(raw.SecondaryPrefix, ""),
		SecondarySuffix:        deref(raw.SecondarySuffix, ""),
		SecondaryDecimalPlaces: clampPlaces(raw.SecondaryDecimalPlaces, DefaultSecondaryDecimalPlaces),
	}
	if raw.StatisticType != nil {
		cfg.StatisticType = ParseStatisticType(*raw.StatisticType)
	}
	if d := raw.SecondaryValueDenominator; d != nil && *d != 0 && !math.IsNaN(*d) {
		v := *d
		cfg.SecondaryValueDenominator = &v
	}

	// Режим задается явно. Если его нет — решаем один раз здесь, а не в ядре.
	switch mode := SecondaryMode(strings.ToUpper(deref(raw.SecondaryMode, ""))); mode {
	case SecondaryDenominator, SecondaryPositiveShare:
		cfg.SecondaryMode = mode
	default:
		if cfg.SecondaryValueDenominator != nil {
			cfg.SecondaryMode = SecondaryDenominator
		} else {
			cfg.SecondaryMode = SecondaryPositiveShare
		}
	}
	return cfg
}

// NormalizeDivisor: отсутствующий, нулевой, отрицательный или NaN делитель становится 1.
func NormalizeDivisor(d *float64) float64 {
	if d == nil || *d <= 0 || math.IsNaN(*d) || math.IsInf(*d, 0) {
		return DefaultDivisor
	}
	return *d
}

func clampPlaces(p *int, def int) int {
	if p == nil || *p < 0 {
		return def
	}
	if *p > MaxDecimalPlaces {
		return MaxDecimalPlaces
	}
	return *p
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
