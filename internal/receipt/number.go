package receipt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var uidPadRe = regexp.MustCompile(`\{UID(\d+)\}`)

const DefaultNumberTemplate = "RCPT-{YYYY}{MM}{DD}-{UID8}"

// FormatNumber builds a human-readable receipt number from a template, the
// payment time and the invoice uid. {UIDn} takes the first n hex digits of
// the uid, upper-cased.
func FormatNumber(template string, paidAt time.Time, uid string) (string, error) {
	if template == "" {
		return "", fmt.Errorf("receipt number template is empty")
	}
	compact := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(uid), "-", ""))
	if compact == "" {
		return "", fmt.Errorf("invoice uid is empty")
	}

	out := template
	out = strings.ReplaceAll(out, "{YYYY}", paidAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", paidAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", paidAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", paidAt.Format("02"))
	out = strings.ReplaceAll(out, "{UID}", compact)

	out = uidPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := uidPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}
		if width > len(compact) {
			width = len(compact)
		}
		return compact[:width]
	})

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in receipt format: %s", out)
	}
	return out, nil
}

// zeroDecimal lists currencies whose amounts carry no minor unit.
var zeroDecimal = map[string]bool{
	"KRW": true,
	"JPY": true,
	"VND": true,
	"IDR": true,
	"CLP": true,
}

// FormatAmount renders an amount in minor units with thousands separators.
func FormatAmount(amount int64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	if zeroDecimal[currency] {
		return fmt.Sprintf("%s%s %s", sign, groupThousands(amount), currency)
	}
	return fmt.Sprintf("%s%s.%02d %s", sign, groupThousands(amount/100), amount%100, currency)
}

func groupThousands(n int64) string {
	digits := strconv.FormatInt(n, 10)
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
