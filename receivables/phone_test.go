package receivables

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brickworks/ledger-engine/ledger"
)

func TestNormalizePhone(t *testing.T) {
	// Every spelling of the same local number folds to one key.
	spellings := []string{
		"+91 98765-43210",
		"98765 43210",
		"9876543210",
		"0091-98765-43210",
		"(98765) 43210",
	}
	for _, s := range spellings {
		assert.Equal(t, ledger.EntityID("9876543210"), NormalizePhone(s), "spelling %q", s)
	}
}

func TestNormalizePhoneShortInput(t *testing.T) {
	// Fewer than ten digits pass through as-is; validity is a separate check.
	assert.Equal(t, ledger.EntityID("12345"), NormalizePhone("1-23-45"))
	assert.Equal(t, ledger.EntityID(""), NormalizePhone("no digits here"))
}

func TestValidPhoneKey(t *testing.T) {
	assert.True(t, ValidPhoneKey(NormalizePhone("+91 98765 43210")))
	assert.False(t, ValidPhoneKey(NormalizePhone("98765")))
	assert.False(t, ValidPhoneKey(""))
}
