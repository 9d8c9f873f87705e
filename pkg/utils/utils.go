package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func TruncateString(str string, num int) string {
	if len(str) <= num {
		return str
	}
	if num <= 3 {
		return str[:num]
	}
	return str[0:num-3] + "..."
}

// TruncateMiddle keeps both ends of long identifiers such as ibc/ denoms.
func TruncateMiddle(str string, num int) string {
	if len(str) <= num || num <= 5 {
		return TruncateString(str, num)
	}
	keep := num - 3
	head := (keep + 1) / 2
	tail := keep - head
	return str[:head] + "..." + str[len(str)-tail:]
}

// AddCommas groups the integer digits of a plain decimal string by thousands.
func AddCommas(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign, intPart = "-", intPart[1:]
	}
	if len(intPart) <= 3 {
		return s
	}

	var b strings.Builder
	b.WriteString(sign)
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(intPart[i])
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

func FormatFloat(f float64, decimals int) string {
	return AddCommas(fmt.Sprintf("%.*f", decimals, f))
}

func FormatDecimal(d decimal.Decimal, decimals int) string {
	return AddCommas(d.StringFixed(int32(decimals)))
}
