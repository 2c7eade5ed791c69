package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/statindicator/internal/datasource"
	"github.com/xela07ax/statindicator/internal/domain"
	"github.com/xela07ax/statindicator/internal/indicator"
)

const computeSourceID = "records"

func newComputeCmd() *cobra.Command {
	var (
		recordsPath  string
		settingsPath string
		locale       string
		filter       map[string]string

		field, statType, prefix, suffix           string
		secondaryMode, secondaryPrefix, secSuffix string
		divisor, denominator                      float64
		places, secondaryPlaces                   int
		secondary                                 bool
	)

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a widget display state once from a JSON records file",
		Long: `Compute a widget display state once from a JSON array of records and print it as JSON.

Example: indicator compute --records parcels.json --field area --type SUM --divisor 1000 --suffix " km²"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(recordsPath)
			if err != nil {
				return err
			}

			var raw domain.RawConfig
			if settingsPath != "" {
				data, err := os.ReadFile(settingsPath)
				if err != nil {
					return fmt.Errorf("read settings: %w", err)
				}
				if err := json.Unmarshal(data, &raw); err != nil {
					return fmt.Errorf("decode settings: %w", err)
				}
			}

			// Флаги перекрывают файл настроек, только если заданы явно
			flags := cmd.Flags()
			setIf(flags.Changed("field"), &raw.StatisticField, field)
			setIf(flags.Changed("type"), &raw.StatisticType, statType)
			setIf(flags.Changed("divisor"), &raw.Divisor, divisor)
			setIf(flags.Changed("decimal-places"), &raw.DecimalPlaces, places)
			setIf(flags.Changed("prefix"), &raw.Prefix, prefix)
			setIf(flags.Changed("suffix"), &raw.Suffix, suffix)
			setIf(flags.Changed("secondary"), &raw.ShowSecondaryValue, secondary)
			setIf(flags.Changed("secondary-mode"), &raw.SecondaryMode, secondaryMode)
			setIf(flags.Changed("secondary-prefix"), &raw.SecondaryPrefix, secondaryPrefix)
			setIf(flags.Changed("secondary-suffix"), &raw.SecondarySuffix, secSuffix)
			setIf(flags.Changed("denominator"), &raw.SecondaryValueDenominator, denominator)
			setIf(flags.Changed("secondary-decimal-places"), &raw.SecondaryDecimalPlaces, secondaryPlaces)

			src := datasource.NewMemorySource(computeSourceID, records)
			if len(filter) > 0 {
				f := make(map[string]any, len(filter))
				for k, v := range filter {
					f[k] = v
				}
				src.SetFilter(f)
			}

			logger := zap.NewNop()
			registry := datasource.NewRegistry(logger)
			if err := registry.Register(src, src); err != nil {
				return err
			}

			core := indicator.NewIndicator(registry, indicator.NewFormatter(locale), indicator.NewMetrics(nil), logger)
			state := core.Compute(cmd.Context(), domain.DataSourceRef{DataSourceID: computeSourceID}, domain.ApplyDefaults(raw))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		},
	}

	f := cmd.Flags()
	f.StringVar(&recordsPath, "records", "", "Path to a JSON array of records")
	f.StringVar(&settingsPath, "settings", "", "Path to a JSON widget config (flags override it)")
	f.StringVar(&locale, "locale", "en", "Locale for digit grouping")
	f.StringToStringVar(&filter, "filter", nil, "Ambient equality filter, column=value")
	f.StringVar(&field, "field", "", "Statistic field")
	f.StringVar(&statType, "type", "SUM", "Statistic type: SUM, AVG, COUNT, MIN, MAX")
	f.Float64Var(&divisor, "divisor", 1, "Divisor applied to the primary value")
	f.IntVar(&places, "decimal-places", domain.DefaultDecimalPlaces, "Primary value decimal places")
	f.StringVar(&prefix, "prefix", "", "Primary value prefix")
	f.StringVar(&suffix, "suffix", "", "Primary value suffix")
	f.BoolVar(&secondary, "secondary", false, "Show the secondary value")
	f.StringVar(&secondaryMode, "secondary-mode", "", "DENOMINATOR or POSITIVE_SHARE")
	f.StringVar(&secondaryPrefix, "secondary-prefix", "", "Secondary value prefix")
	f.StringVar(&secSuffix, "secondary-suffix", "", "Secondary value suffix")
	f.Float64Var(&denominator, "denominator", 0, "Secondary value denominator")
	f.IntVar(&secondaryPlaces, "secondary-decimal-places", domain.DefaultSecondaryDecimalPlaces, "Secondary value decimal places")
	_ = cmd.MarkFlagRequired("records")

	return cmd
}

func setIf[T any](changed bool, dst **T, v T) {
	if changed {
		*dst = &v
	}
}

func readRecords(path string) ([]domain.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	var records []domain.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}
