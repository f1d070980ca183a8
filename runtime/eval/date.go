package eval

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are the accepted input shapes, tried in order
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// dateTokens are matched longest first at every position
var dateTokens = []string{"YYYY", "MMMM", "MMM", "YY", "MM", "Do", "DD", "M", "D"}

func parseDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", text)
}

// formatDate substitutes pattern tokens with calendar fields of date,
// read in UTC so the local timezone never shifts the day
func formatDate(date, pattern string) (string, error) {
	t, err := parseDate(date)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 0; i < len(pattern); {
		token := ""
		for _, candidate := range dateTokens {
			if strings.HasPrefix(pattern[i:], candidate) {
				token = candidate
				break
			}
		}
		if token == "" {
			b.WriteByte(pattern[i])
			i++
			continue
		}

		switch token {
		case "YYYY":
			fmt.Fprintf(&b, "%04d", t.Year())
		case "YY":
			fmt.Fprintf(&b, "%02d", t.Year()%100)
		case "MMMM":
			b.WriteString(t.Month().String())
		case "MMM":
			b.WriteString(t.Month().String()[:3])
		case "MM":
			fmt.Fprintf(&b, "%02d", int(t.Month()))
		case "M":
			b.WriteString(strconv.Itoa(int(t.Month())))
		case "Do":
			b.WriteString(ordinal(t.Day()))
		case "DD":
			fmt.Fprintf(&b, "%02d", t.Day())
		case "D":
			b.WriteString(strconv.Itoa(t.Day()))
		}
		i += len(token)
	}
	return b.String(), nil
}

// ordinal renders 1 as 1st, 12 as 12th, 22 as 22nd
func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
