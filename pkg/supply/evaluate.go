package supply

import (
	"math/big"
	"strconv"
	"strings"
)

// OrderThreshold is the remaining percentage below which a supply should be reordered.
const OrderThreshold = 20

// Percent is the remaining amount of a supply: either Numeric or Unreadable.
type Percent interface {
	String() string
	isPercent()
}

// Numeric is a computed remaining percentage. Negative values are device
// sentinels for "unknown" or an error state.
type Numeric int

// Unreadable carries the raw level when it could not be interpreted as a number.
type Unreadable string

func (Numeric) isPercent()    {}
func (Unreadable) isPercent() {}

func (n Numeric) String() string    { return strconv.Itoa(int(n)) + "%" }
func (u Unreadable) String() string { return string(u) }

// Evaluation is the judgment for one supply reading.
type Evaluation struct {
	Percent    Percent
	NeedsOrder bool
}

// Evaluate turns a raw level/capacity pair into a remaining percentage and a
// reorder decision. Non-numeric input passes the raw level through and never
// asks for an order.
func Evaluate(rawLevel, rawCapacity string) Evaluation {
	level, okL := new(big.Int).SetString(strings.TrimSpace(rawLevel), 10)
	capacity, okC := new(big.Int).SetString(strings.TrimSpace(rawCapacity), 10)
	if !okL || !okC {
		return Evaluation{Percent: Unreadable(rawLevel)}
	}

	var pct Percent = Numeric(0)
	if capacity.Sign() > 0 {
		// Counter64 agents can report levels where 100*level overflows int64.
		// Euclidean division with a positive divisor is floor division.
		q := new(big.Int).Mul(level, big.NewInt(100))
		q.Div(q, capacity)
		if !q.IsInt64() || q.Int64() != int64(int(q.Int64())) {
			return Evaluation{Percent: Unreadable(rawLevel)}
		}
		pct = Numeric(q.Int64())
	}
	return Evaluation{Percent: pct, NeedsOrder: NeedsOrder(pct)}
}

// NeedsOrder reports whether a percentage calls for a reorder: negative
// sentinels, or strictly between 0 and OrderThreshold. Exactly 0 does not.
func NeedsOrder(p Percent) bool {
	switch v := p.(type) {
	case Numeric:
		return v < 0 || (v > 0 && v < OrderThreshold)
	default:
		return false
	}
}
