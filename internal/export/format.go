package export

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Number groups thousands, e.g. 1234567 -> "1,234,567".
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// Clock renders seconds as mm:ss, or h:mm:ss past an hour.
func Clock(sec float64) string {
	if !(sec > 0) || math.IsInf(sec, 0) {
		return "00:00"
	}
	s := int64(sec)
	h, m := s/3600, (s%3600)/60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s%60)
	}
	return fmt.Sprintf("%02d:%02d", m, s%60)
}
