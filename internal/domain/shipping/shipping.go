package shipping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedMethod  = errors.New("unsupported shipping method")
	ErrNegativeFee        = errors.New("shipping fee must not be negative")
	ErrInvalidDeliveryDay = errors.New("delivery time bounds are invalid")
)

// Method is how a seller charges shipping for a line item.
type Method string

const (
	MethodPerItem   Method = "ITEM"
	MethodPerWeight Method = "WEIGHT"
	MethodFixed     Method = "FIXED"
)

// Valid reports whether m is one of the known methods.
func (m Method) Valid() bool {
	switch m {
	case MethodPerItem, MethodPerWeight, MethodFixed:
		return true
	}
	return false
}

// ParseMethod accepts the canonical names as well as the lowercase aliases
// sellers use in their shipping settings.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "item", "per_item", "per-item":
		return MethodPerItem, nil
	case "weight", "per_weight", "per-weight":
		return MethodPerWeight, nil
	case "fixed":
		return MethodFixed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
}

// FeeSchedule holds the fee parameters of one shipping rate. Which fields
// apply depends on the method.
type FeeSchedule struct {
	BaseFee  decimal.Decimal `json:"base_fee"`
	ExtraFee decimal.Decimal `json:"extra_fee"`
	PerKgFee decimal.Decimal `json:"per_kg_fee"`
}

// Result is the shipping contribution of a single line item.
// Under the per-weight and fixed methods only TotalFee is meaningful.
type Result struct {
	Method     Method          `json:"method"`
	InitialFee decimal.Decimal `json:"initial_fee"`
	ExtraFee   decimal.Decimal `json:"extra_fee"`
	TotalFee   decimal.Decimal `json:"total_fee"`
}

// Calculate derives the shipping fee for quantity units of an item weighing
// weight kilograms. A quantity below one ships nothing and yields a zero result.
func Calculate(method Method, fees FeeSchedule, weight decimal.Decimal, quantity int) (Result, error) {
	if !method.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	res := Result{Method: method}
	if quantity < 1 {
		return res, nil
	}

	switch method {
	case MethodPerItem:
		res.InitialFee = fees.BaseFee
		if quantity > 1 {
			res.ExtraFee = fees.ExtraFee.Mul(decimal.NewFromInt(int64(quantity - 1)))
		}
		res.TotalFee = res.InitialFee.Add(res.ExtraFee)
	case MethodPerWeight:
		res.TotalFee = fees.PerKgFee.Mul(weight).Mul(decimal.NewFromInt(int64(quantity)))
	case MethodFixed:
		res.TotalFee = fees.BaseFee
	}

	return res, nil
}

// Option is the shipping offer attached to a line item for the shopper's
// current country.
type Option struct {
	Method  Method      `json:"method"`
	Fees    FeeSchedule `json:"fees"`
	Service string      `json:"service"`
	MinDays int         `json:"min_delivery_days"`
	MaxDays int         `json:"max_delivery_days"`
}

// Quote calculates the fee of this option for the given weight and quantity.
func (o Option) Quote(weight decimal.Decimal, quantity int) (Result, error) {
	return Calculate(o.Method, o.Fees, weight, quantity)
}

// Validate checks the option against the catalog data contract: a known
// method, non-negative fees and 0 <= MinDays <= MaxDays.
func (o Option) Validate() error {
	if !o.Method.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, o.Method)
	}
	if o.Fees.BaseFee.IsNegative() || o.Fees.ExtraFee.IsNegative() || o.Fees.PerKgFee.IsNegative() {
		return ErrNegativeFee
	}
	if o.MinDays < 0 || o.MinDays > o.MaxDays {
		return ErrInvalidDeliveryDay
	}
	return nil
}
