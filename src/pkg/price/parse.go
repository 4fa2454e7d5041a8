package price

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tuumbleweed/xerr"
)

// ErrInvalidPrice is wrapped by every error returned from Parse.
var ErrInvalidPrice = errors.New("invalid price notation")

// priceRegexp matches a mantissa ("12", "1.5", ".5", "3.") and an optional magnitude suffix.
var priceRegexp = regexp.MustCompile(`^(\d+(?:\.\d*)?|\.\d+)([kmb])?$`)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// Parsed is the result of Evaluate. It is never stored, only recomputed from the raw text.
type Parsed struct {
	Amount int64
	Valid  bool
}

/*
Multiplier returns the factor for a magnitude suffix: "" -> 1, "k" -> 1e3,
"m" -> 1e6, "b" -> 1e9. Any other suffix returns ok == false.
*/
func Multiplier(suffix string) (multiplier int64, ok bool) {
	switch strings.ToLower(suffix) {
	case "":
		return 1, true
	case "k":
		return 1_000, true
	case "m":
		return 1_000_000, true
	case "b":
		return 1_000_000_000, true
	}
	return 0, false
}

/*
Parse converts free-text price notation into an integer amount.

Steps:
  - lower-case, trim, drop thousands separators (",")
  - drop trailing sign markers ("10k+", "5m-")
  - for ranges and alternatives ("5/10m", "600m-1b") keep the first value
  - match mantissa plus at most one of k/m/b and multiply

The fractional part left after multiplying is truncated, so "1.5k" is 1500 and
"1.2345k" is 1234. Unparseable text returns a *xerr.Error wrapping
ErrInvalidPrice, never zero.
*/
func Parse(text string) (amount int64, e *xerr.Error) {
	normalized := normalize(text)

	match := priceRegexp.FindStringSubmatch(normalized)
	if match == nil {
		e = xerr.NewError(fmt.Errorf("%w: '%s'", ErrInvalidPrice, text), "parse price", text)
		return 0, e
	}

	mantissa, decimalErr := decimal.NewFromString(strings.TrimSuffix(match[1], "."))
	if decimalErr != nil {
		e = xerr.NewError(fmt.Errorf("%w: %s", ErrInvalidPrice, decimalErr), "parse price mantissa", match[1])
		return 0, e
	}

	multiplier, _ := Multiplier(match[2])
	value := mantissa.Mul(decimal.NewFromInt(multiplier))
	if value.GreaterThan(maxAmount) {
		e = xerr.NewError(fmt.Errorf("%w: '%s' is out of range", ErrInvalidPrice, text), "parse price", text)
		return 0, e
	}

	return value.IntPart(), e
}

// Evaluate is Parse for callers that only need to know whether the price is comparable.
func Evaluate(text string) Parsed {
	amount, e := Parse(text)
	if e != nil {
		return Parsed{}
	}
	return Parsed{Amount: amount, Valid: true}
}

func normalize(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.ReplaceAll(normalized, ",", "")
	normalized = strings.TrimRight(normalized, "+-")

	// whatever is left of "-" is a range separator, not a sign
	separatorIndex := strings.IndexAny(normalized, "/-")
	if separatorIndex >= 0 {
		normalized = strings.TrimRight(normalized[:separatorIndex], "+ ")
	}

	return strings.TrimSpace(normalized)
}
