package id

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	clierr "github.com/tradetok/copytrade/internal/errors"
)

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// NormalizeAmount accepts either a minor-unit integer string or a
// human-entered decimal string and returns both representations. All
// comparisons and upstream calls use the minor-unit form; the decimal form
// is display only.
func NormalizeAmount(minorUnits, decimal string, decimals int) (string, string, error) {
	if minorUnits != "" && decimal != "" {
		return "", "", clierr.New(clierr.CodeUsage, "use either --amount or --amount-decimal, not both")
	}
	if minorUnits == "" && decimal == "" {
		return "", "", clierr.New(clierr.CodeUsage, "amount is required")
	}
	if decimals < 0 {
		return "", "", clierr.New(clierr.CodeUsage, "decimals must be >= 0")
	}

	if minorUnits != "" {
		if strings.HasPrefix(minorUnits, "-") {
			return "", "", clierr.New(clierr.CodeUsage, "--amount must be non-negative")
		}
		if _, ok := new(big.Int).SetString(minorUnits, 10); !ok {
			return "", "", clierr.New(clierr.CodeUsage, "--amount must be a positive integer string")
		}
		return minorUnits, FormatDecimal(minorUnits, decimals), nil
	}

	if !decimalPattern.MatchString(decimal) {
		return "", "", clierr.New(clierr.CodeUsage, "--amount-decimal must be in decimal form like 1.23")
	}
	minor, err := MinorUnits(decimal, decimals)
	if err != nil {
		return "", "", err
	}
	return minor, normalizeDecimal(decimal), nil
}

// MinorUnits converts a decimal amount string into the asset's smallest
// denomination using its fixed decimal scale.
func MinorUnits(decimal string, decimals int) (string, error) {
	parts := strings.SplitN(decimal, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if len(fracPart) > decimals {
		return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("decimal precision exceeds token decimals (%d)", decimals))
	}

	fracPart = fracPart + strings.Repeat("0", decimals-len(fracPart))
	combined := strings.TrimLeft(intPart+fracPart, "0")
	if combined == "" {
		return "0", nil
	}
	if _, ok := new(big.Int).SetString(combined, 10); !ok {
		return "", clierr.New(clierr.CodeUsage, "invalid decimal amount")
	}
	return combined, nil
}

// FormatDecimal converts a minor-unit integer string into a decimal string.
func FormatDecimal(minorUnits string, decimals int) string {
	n := new(big.Int)
	n.SetString(minorUnits, 10)
	if decimals == 0 {
		return n.String()
	}

	s := n.String()
	if len(s) <= decimals {
		pad := strings.Repeat("0", decimals-len(s)+1)
		s = pad + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}

// ParseMinorUnits parses a minor-unit integer string into a big.Int,
// rejecting negatives.
func ParseMinorUnits(raw string) (*big.Int, error) {
	clean := strings.TrimSpace(raw)
	v, ok := new(big.Int).SetString(clean, 10)
	if !ok {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid minor-unit amount %q", raw))
	}
	if v.Sign() < 0 {
		return nil, clierr.New(clierr.CodeUsage, "amount must be non-negative")
	}
	return v, nil
}

func normalizeDecimal(v string) string {
	if !strings.Contains(v, ".") {
		out := strings.TrimLeft(v, "0")
		if out == "" {
			return "0"
		}
		return out
	}
	parts := strings.SplitN(v, ".", 2)
	intPart := strings.TrimLeft(parts[0], "0")
	if intPart == "" {
		intPart = "0"
	}
	fracPart := strings.TrimRight(parts[1], "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}
