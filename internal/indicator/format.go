package indicator

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter печатает числа с фиксированным количеством знаков после запятой
// и группировкой разрядов по локали ("12,345.7" для en, "12 345,7" для ru).
type Formatter struct {
	printer *message.Printer
}

func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = language.English
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

func (f *Formatter) Format(v float64, places int) string {
	if places < 0 {
		places = 0
	}
	return f.printer.Sprintf("%v", number.Decimal(v, number.Scale(places)))
}
