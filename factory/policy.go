/*
Package factory provides JSON to Go policy conversion.

PURPOSE:
  Converts JSON policy definitions into payroll.PayPolicy and a tax
  policy for invoicing. This enables policy configuration without code
  changes - the office manager can adjust the default rate or tax rate
  in a JSON file, and the factory creates the proper Go structs.

JSON SCHEMA:
  {
    "pay": {
      "default_daily_rate": 500,
      "standard_day_hours": 8,
      "overtime_multiplier": 1.5
    },
    "tax": {
      "default_rate": 0.18
    }
  }

KEY FEATURES:
  - Validates JSON structure through the policy's own Validate
  - Omitted fields keep the shipped defaults (500 / 8 / 1.5, tax 0)
  - Round-trips: ToJSON reproduces a parseable document

USAGE:
  factory := NewPolicyFactory()
  policies, err := factory.ParsePolicies(jsonString)
  calc := payroll.NewCalculator(policies.Pay)

SEE ALSO:
  - payroll/policy.go: PayPolicy definition and defaults
  - receivables/invoices.go: where the tax rate applies
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/brickworks/ledger-engine/ledger"
	"github.com/brickworks/ledger-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PoliciesJSON is the JSON representation of the business policies.
type PoliciesJSON struct {
	Pay *PayPolicyJSON `json:"pay,omitempty"`
	Tax *TaxPolicyJSON `json:"tax,omitempty"`
}

// PayPolicyJSON represents wage configuration. Pointer fields distinguish
// "absent, keep the default" from an explicit zero (which fails
// validation rather than silently zeroing wages).
type PayPolicyJSON struct {
	DefaultDailyRate   *float64 `json:"default_daily_rate,omitempty"`
	StandardDayHours   *int64   `json:"standard_day_hours,omitempty"`
	OvertimeMultiplier *float64 `json:"overtime_multiplier,omitempty"`
}

// TaxPolicyJSON represents invoice tax configuration.
type TaxPolicyJSON struct {
	DefaultRate *float64 `json:"default_rate,omitempty"`
}

// Policies is the parsed result.
type Policies struct {
	Pay payroll.PayPolicy

	// DefaultTaxRate applies to invoices created without an explicit rate.
	DefaultTaxRate decimal.Decimal
}

// DefaultPolicies are the shipped defaults: 500/day, 8-hour day,
// time-and-a-half overtime, no tax.
func DefaultPolicies() Policies {
	return Policies{
		Pay:            payroll.DefaultPayPolicy(),
		DefaultTaxRate: decimal.Zero,
	}
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to Go structs.
type PolicyFactory struct{}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicies parses a JSON string into Policies.
func (f *PolicyFactory) ParsePolicies(jsonStr string) (Policies, error) {
	var pj PoliciesJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return Policies{}, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// LoadPolicies reads and parses a policy file. A missing path returns the
// defaults rather than an error so the server starts unconfigured.
func (f *PolicyFactory) LoadPolicies(path string) (Policies, error) {
	if path == "" {
		return DefaultPolicies(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPolicies(), nil
		}
		return Policies{}, fmt.Errorf("read policy file: %w", err)
	}
	return f.ParsePolicies(string(data))
}

// FromJSON converts PoliciesJSON to Policies, layering explicit fields
// over the defaults and validating the result.
func (f *PolicyFactory) FromJSON(pj PoliciesJSON) (Policies, error) {
	out := DefaultPolicies()

	if pj.Pay != nil {
		if pj.Pay.DefaultDailyRate != nil {
			out.Pay.DefaultDailyRate = ledger.NewAmount(*pj.Pay.DefaultDailyRate)
		}
		if pj.Pay.StandardDayHours != nil {
			out.Pay.StandardDayHours = *pj.Pay.StandardDayHours
		}
		if pj.Pay.OvertimeMultiplier != nil {
			out.Pay.OvertimeMultiplier = *pj.Pay.OvertimeMultiplier
		}
	}
	if err := out.Pay.Validate(); err != nil {
		return Policies{}, err
	}

	if pj.Tax != nil && pj.Tax.DefaultRate != nil {
		rate := decimal.NewFromFloat(*pj.Tax.DefaultRate)
		if rate.IsNegative() {
			return Policies{}, ledger.NewValidationError("factory.from_json", "tax rate must not be negative")
		}
		out.DefaultTaxRate = rate
	}

	return out, nil
}

// ToJSON converts Policies back to their JSON representation.
func (f *PolicyFactory) ToJSON(p Policies) PoliciesJSON {
	rate := p.Pay.DefaultDailyRate.Float64()
	hours := p.Pay.StandardDayHours
	mult := p.Pay.OvertimeMultiplier
	tax, _ := p.DefaultTaxRate.Float64()

	return PoliciesJSON{
		Pay: &PayPolicyJSON{
			DefaultDailyRate:   &rate,
			StandardDayHours:   &hours,
			OvertimeMultiplier: &mult,
		},
		Tax: &TaxPolicyJSON{DefaultRate: &tax},
	}
}
