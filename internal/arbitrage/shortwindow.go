package arbitrage

import (
	"regexp"
	"strings"
	"time"

	"github.com/mselser95/predmarket-arb/pkg/types"
)

var upDownKeywords = []string{
	"up", "down", "above", "below", "higher", "lower", "price",
	"btc", "eth", "sol", "xrp", "doge", "bnb",
}

var nnMinPattern = regexp.MustCompile(`(?i)\b\d{1,3}\s?min\b`)
var timeOfDayPattern = regexp.MustCompile(`\b\d{1,2}(:\d{2})?\s?(am|pm)\b`)

// IsShortWindowMarket classifies a market per §4.3: its end_time must fall
// within windowMinutes of now, and its question or slug must match the
// up/down lexical pattern. Returns the minutes remaining when classified
// as short-window.
func IsShortWindowMarket(m types.Market, now time.Time, windowMinutes float64) (isShortWindow bool, minutesToExpiry float64) {
	if m.EndDate.IsZero() {
		return false, 0
	}

	remaining := m.EndDate.Sub(now).Minutes()
	if remaining < 0 || remaining > windowMinutes {
		return false, 0
	}

	haystack := strings.ToLower(m.Question + " " + m.Slug)
	lexical := nnMinPattern.MatchString(haystack) || timeOfDayPattern.MatchString(haystack)
	if !lexical {
		for _, kw := range upDownKeywords {
			if strings.Contains(haystack, kw) {
				lexical = true
				break
			}
		}
	}
	if !lexical {
		return false, 0
	}

	return true, remaining
}
