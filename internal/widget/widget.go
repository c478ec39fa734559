// Package widget renders the ValueIO hosted payment form configuration.
package widget

import (
	"bytes"
	"fmt"
	"html/template"
)

// Resource selects what the hosted form creates
type Resource string

const (
	ResourcePayments    Resource = "payments"
	ResourceCreditCards Resource = "credit_cards"
)

// Vault modes understood by the hosted form
const (
	VaultOff     = "false"
	VaultOn      = "true"
	VaultCollect = "collect"
)

// Params configures one rendering of the hosted form
type Params struct {
	BaseURL        string
	Account        string
	WriteOnlyToken string
	Amount         string
	FirstName      string
	LastName       string
	Vault          string
	Resource       Resource
	Title          string
	Description    string
	PaymentID      string
	CheckoutURL    string
	FormSelector   string
}

// VaultMode picks the vault mode for a payment form: cards are always kept
// for subscriptions and offered to everyone else when vaulting is enabled.
func VaultMode(vaultEnabled, subscription bool) string {
	switch {
	case !vaultEnabled:
		return VaultOff
	case subscription:
		return VaultOn
	default:
		return VaultCollect
	}
}

// html/template escapes every value for the JS context it lands in.
var scriptTemplate = template.Must(template.New("valueio").Parse(`<link rel="stylesheet" href="{{.BaseURL}}/assets/value.css">
<script src="{{.BaseURL}}/assets/value.js"></script>
<script>
  window.valueio_account = {{.Account}};
  window.valueio_write_only_token = {{.WriteOnlyToken}};
  window.valueio_amount = {{.Amount}};
  window.valueio_first_name = {{.FirstName}};
  window.valueio_last_name = {{.LastName}};
  window.valueio_vault = {{.Vault}};
  window.valueio_resource = {{.Resource}};
  window.valueio_secure_form_title_1 = {{.Title}};
  window.valueio_secure_form_title_2 = {{.Description}};
{{- if .FormSelector}}
  window.valueio_form_selector = {{.FormSelector}};
{{- end}}
{{- if .PaymentID}}
  window.valueio_payment_id = {{.PaymentID}};
  window.valueio_on_success = function () {
    if (typeof window.valueio_payment_id !== 'undefined') {
      var sep = window.location.search ? '&' : '?';
      window.location.search = window.location.search + sep + 'payment_id=' + encodeURIComponent(window.valueio_payment_id);
    } else {
      alert('Payment ID not found.  You will now be redirected back to the checkout page.');
      window.location = {{.CheckoutURL}};
    }
  };
{{- end}}
  window.valueio_on_cancel = function (reason) {
    if (reason !== undefined) {
      alert(reason + ' You will now be redirected back to the checkout page.');
    }
    window.location = {{.CheckoutURL}};
  };
  (function show() {
    if (window.valueio_iframe === undefined) {
      setTimeout(show, 200);
    } else {
      window.valueio_iframe.show_iframe();
    }
  })();
</script>
`))

// Render produces the script block that boots the hosted form
func Render(p Params) (template.HTML, error) {
	if p.Resource == "" {
		p.Resource = ResourcePayments
	}
	if p.Vault == "" {
		p.Vault = VaultOff
	}

	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render valueio widget: %w", err)
	}
	return template.HTML(buf.String()), nil
}
