package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

var jsonNull = []byte("null")

// NullFloat is a float64 measurement that may be absent.
// A valid NullFloat never holds NaN or an infinity.
type NullFloat struct {
	Value float64
	Valid bool
}

// Float returns a valid NullFloat for finite v and a null one otherwise.
func Float(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Value: v, Valid: true}
}

// OrZero resolves null to 0 at the API boundary.
func (n NullFloat) OrZero() float64 {
	if !n.Valid {
		return 0
	}
	return n.Value
}

// MarshalJSON encodes null for an absent value.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return jsonNull, nil
	}
	return strconv.AppendFloat(nil, n.Value, 'g', -1, 64), nil
}

// UnmarshalJSON accepts a JSON number or null.
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Float(v)
	return nil
}

// NullInt is an integer flag that may be absent.
type NullInt struct {
	Value int64
	Valid bool
}

// Int returns a valid NullInt.
func Int(v int64) NullInt {
	return NullInt{Value: v, Valid: true}
}

// Is reports whether the flag is present and equal to v.
func (n NullInt) Is(v int64) bool {
	return n.Valid && n.Value == v
}

// MarshalJSON encodes null for an absent value.
func (n NullInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return jsonNull, nil
	}
	return strconv.AppendInt(nil, n.Value, 10), nil
}

// UnmarshalJSON accepts a JSON integer or null.
func (n *NullInt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*n = NullInt{}
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Int(v)
	return nil
}
