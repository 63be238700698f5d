package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	shekelAmount   = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(?:₪|ש"ח|שקלים)`)
	shekelPrefixed = regexp.MustCompile(`₪\s*([\d,]+(?:\.\d+)?)`)
	dollarAmount   = regexp.MustCompile(`\$\s*(\d[\d,]*(?:\.\d+)?)|(\d[\d,]*(?:\.\d+)?)\s*(?:\$|דולר)`)
)

// ExtractAmounts collects every currency amount mentioned in the text,
// in order of appearance. PDF extraction sometimes reverses digit runs
// in RTL text ("000,052" for 250,000), which parseAmount undoes.
func ExtractAmounts(text string) []float64 {
	var amounts []float64

	for _, m := range shekelAmount.FindAllStringSubmatch(text, -1) {
		if v, ok := parseAmount(m[1]); ok {
			amounts = append(amounts, v)
		}
	}
	for _, m := range shekelPrefixed.FindAllStringSubmatch(text, -1) {
		if v, ok := parseAmount(m[1]); ok {
			amounts = append(amounts, v)
		}
	}
	for _, m := range dollarAmount.FindAllStringSubmatch(text, -1) {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if v, ok := parseAmount(raw); ok {
			amounts = append(amounts, v)
		}
	}
	return amounts
}

// MaxAmount returns the largest currency amount in the text.
func MaxAmount(text string) (float64, bool) {
	amounts := ExtractAmounts(text)
	if len(amounts) == 0 {
		return 0, false
	}
	max := amounts[0]
	for _, v := range amounts[1:] {
		if v > max {
			max = v
		}
	}
	return max, true
}

// FinancialImpact pulls the first shekel amount out of a difference
// description, zero when none is mentioned.
func FinancialImpact(difference string) float64 {
	if m := shekelAmount.FindStringSubmatch(difference); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			return v
		}
	}
	if m := shekelPrefixed.FindStringSubmatch(difference); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			return v
		}
	}
	return 0
}

func parseAmount(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	// A leading zero group means the digit run came out reversed.
	if strings.HasPrefix(raw, "0") && strings.Contains(raw, ",") {
		raw = reverseString(raw)
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
