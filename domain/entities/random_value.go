package entities

import (
	"fmt"
	"math/big"
)

// RandomValue is an unsigned random word delivered by the randomness oracle
type RandomValue struct {
	value *big.Int
}

// NewRandomValue wraps a big integer. Nil and negative values are rejected.
func NewRandomValue(v *big.Int) (RandomValue, error) {
	if v == nil {
		return RandomValue{}, fmt.Errorf("random value is required")
	}
	if v.Sign() < 0 {
		return RandomValue{}, fmt.Errorf("random value must not be negative")
	}
	return RandomValue{value: new(big.Int).Set(v)}, nil
}

// RandomValueFromUint64 is a convenience constructor for small values
func RandomValueFromUint64(v uint64) RandomValue {
	return RandomValue{value: new(big.Int).SetUint64(v)}
}

// ParseRandomValue parses a base-10 string
func ParseRandomValue(s string) (RandomValue, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return RandomValue{}, fmt.Errorf("invalid random value %q", s)
	}
	return NewRandomValue(v)
}

// IsSet reports whether the value was built by one of the constructors
func (r RandomValue) IsSet() bool {
	return r.value != nil
}

// Mod returns the value modulo n as an int in [0, n)
func (r RandomValue) Mod(n int) int {
	if n <= 0 {
		panic("random value modulo non-positive size")
	}
	m := new(big.Int).Mod(r.BigInt(), big.NewInt(int64(n)))
	return int(m.Int64())
}

// BigInt returns a copy of the underlying integer
func (r RandomValue) BigInt() *big.Int {
	if r.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(r.value)
}

// String returns the base-10 representation
func (r RandomValue) String() string {
	return r.BigInt().String()
}
