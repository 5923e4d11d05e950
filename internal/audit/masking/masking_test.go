package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("123"))
	assert.Equal(t, "****4567", MaskSecret("1234567"))
}

func TestMaskFields(t *testing.T) {
	out := MaskFields(map[string]any{
		"account_number": "7654321",
		"bank_name":      "みずほ銀行",
		"count":          3,
		"":               "dropped",
	}, "account_number")

	assert.Equal(t, "****4321", out["account_number"])
	assert.Equal(t, "みずほ銀行", out["bank_name"])
	assert.Equal(t, 3, out["count"])
	assert.NotContains(t, out, "")
	assert.Nil(t, MaskFields(nil, "x"))
}
