package widget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultMode(t *testing.T) {
	tests := []struct {
		name         string
		enabled      bool
		subscription bool
		want         string
	}{
		{"vault disabled", false, false, VaultOff},
		{"vault disabled for subscription", false, true, VaultOff},
		{"enabled for subscription", true, true, VaultOn},
		{"enabled for one-off order", true, false, VaultCollect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VaultMode(tt.enabled, tt.subscription))
		})
	}
}

func TestRender_PaymentForm(t *testing.T) {
	out, err := Render(Params{
		BaseURL:        "https://api-staging.value.io",
		Account:        "acme",
		WriteOnlyToken: "wo_token",
		Amount:         "49.99",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Vault:          VaultCollect,
		Resource:       ResourcePayments,
		Title:          "ValueIO Payment",
		Description:    "ValueIO Secure Payment",
		PaymentID:      "pay_123",
		CheckoutURL:    "https://shop.example/checkout",
	})
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, `<script src="https://api-staging.value.io/assets/value.js"></script>`)
	assert.Contains(t, html, `window.valueio_account = "acme";`)
	assert.Contains(t, html, `window.valueio_amount = "49.99";`)
	assert.Contains(t, html, `window.valueio_vault = "collect";`)
	assert.Contains(t, html, `window.valueio_resource = "payments";`)
	assert.Contains(t, html, `window.valueio_payment_id = "pay_123";`)
	assert.Contains(t, html, "valueio_on_success")
}

func TestRender_CardUpdateFormHasNoPaymentCallback(t *testing.T) {
	out, err := Render(Params{
		BaseURL:      "https://api.value.io",
		Amount:       "0.00",
		Vault:        VaultOn,
		Resource:     ResourceCreditCards,
		FormSelector: "#order_review",
	})
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, `window.valueio_resource = "credit_cards";`)
	assert.Contains(t, html, `window.valueio_form_selector = "#order_review";`)
	assert.False(t, strings.Contains(html, "valueio_on_success"))
}

func TestRender_EscapesShopperInput(t *testing.T) {
	out, err := Render(Params{FirstName: `</script><script>alert(1)</script>`, LastName: `O'Brien`})
	require.NoError(t, err)

	html := string(out)
	assert.NotContains(t, html, "<script>alert(1)")
	assert.NotContains(t, html, `'O'Brien'`)
	assert.Contains(t, html, `window.valueio_vault = "false";`)
}
