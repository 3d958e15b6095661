package factory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickworks/ledger-engine/ledger"
)

func TestParsePoliciesDefaults(t *testing.T) {
	f := NewPolicyFactory()

	// An empty document keeps every shipped default.
	p, err := f.ParsePolicies(`{}`)
	require.NoError(t, err)

	assert.Equal(t, "500", p.Pay.DefaultDailyRate.String())
	assert.Equal(t, int64(8), p.Pay.StandardDayHours)
	assert.Equal(t, 1.5, p.Pay.OvertimeMultiplier)
	assert.True(t, p.DefaultTaxRate.IsZero())
}

func TestParsePoliciesPartialOverride(t *testing.T) {
	f := NewPolicyFactory()

	// Only the named fields change; the rest layer over the defaults.
	p, err := f.ParsePolicies(`{"pay": {"default_daily_rate": 650}, "tax": {"default_rate": 0.18}}`)
	require.NoError(t, err)

	assert.Equal(t, "650", p.Pay.DefaultDailyRate.String())
	assert.Equal(t, int64(8), p.Pay.StandardDayHours)
	assert.Equal(t, 1.5, p.Pay.OvertimeMultiplier)
	assert.Equal(t, "0.18", p.DefaultTaxRate.String())
}

func TestParsePoliciesRejectsInvalid(t *testing.T) {
	f := NewPolicyFactory()

	// An explicit zero is a configuration mistake, not a wage policy.
	_, err := f.ParsePolicies(`{"pay": {"default_daily_rate": 0}}`)
	assert.True(t, ledger.IsValidation(err))

	_, err = f.ParsePolicies(`{"pay": {"standard_day_hours": -8}}`)
	assert.True(t, ledger.IsValidation(err))

	_, err = f.ParsePolicies(`{"tax": {"default_rate": -0.1}}`)
	assert.True(t, ledger.IsValidation(err))

	_, err = f.ParsePolicies(`not json`)
	assert.Error(t, err)
}

func TestLoadPolicies(t *testing.T) {
	f := NewPolicyFactory()

	// Missing file: the server starts unconfigured on defaults.
	p, err := f.LoadPolicies(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "500", p.Pay.DefaultDailyRate.String())

	p, err = f.LoadPolicies("")
	require.NoError(t, err)
	assert.Equal(t, "500", p.Pay.DefaultDailyRate.String())

	path := filepath.Join(t.TempDir(), "policies.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pay": {"default_daily_rate": 700}}`), 0o644))
	p, err = f.LoadPolicies(path)
	require.NoError(t, err)
	assert.Equal(t, "700", p.Pay.DefaultDailyRate.String())
}

func TestPoliciesRoundTrip(t *testing.T) {
	f := NewPolicyFactory()

	original, err := f.ParsePolicies(`{"pay": {"default_daily_rate": 650, "overtime_multiplier": 2}, "tax": {"default_rate": 0.18}}`)
	require.NoError(t, err)

	back, err := f.FromJSON(f.ToJSON(original))
	require.NoError(t, err)

	assert.Equal(t, original.Pay.DefaultDailyRate.String(), back.Pay.DefaultDailyRate.String())
	assert.Equal(t, original.Pay.OvertimeMultiplier, back.Pay.OvertimeMultiplier)
	assert.True(t, original.DefaultTaxRate.Equal(back.DefaultTaxRate))
}
