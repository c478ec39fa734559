package checkout

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/services/payment"
	"github.com/kevin07696/valueio-gateway/internal/widget"
)

type pageData struct {
	Title       string
	Notice      string
	Widget      template.HTML
	RedirectURL string

	// PaymentMethod is posted with the card-update form
	PaymentMethod string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>{{.Title}}</title>
{{- if and .RedirectURL (not .Notice)}}
	<meta http-equiv="refresh" content="0; url={{.RedirectURL}}">
{{- end}}
	<style>
		body {
			font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
			margin: 2rem auto;
			max-width: 40rem;
		}
		.notice {
			padding: 1rem;
			border-left: 4px solid #b81c23;
			background: #fdf2f2;
		}
	</style>
</head>
<body>
	<h2>{{.Title}}</h2>
{{- if .Notice}}
	<div class="notice">{{.Notice}}</div>
{{- end}}
{{- if .Widget}}
	<form id="order_review" method="post">
	{{- if .PaymentMethod}}
		<input type="hidden" name="payment_method" value="{{.PaymentMethod}}">
	{{- end}}
	</form>
	{{.Widget}}
{{- end}}
{{- if .RedirectURL}}
	<p><a href="{{.RedirectURL}}">Click here if not redirected automatically</a></p>
	<script>
		setTimeout(function() {
			window.location.href = {{.RedirectURL}};
		}, {{if .Notice}}3000{{else}}100{{end}});
	</script>
{{- end}}
</body>
</html>`))

// renderOutcome writes the HTML page for an outcome: the hosted form when
// the shopper still has to enter a card, a redirect otherwise
func renderOutcome(w http.ResponseWriter, logger *zap.Logger, title string, outcome *payment.Outcome) {
	data := pageData{
		Title:  title,
		Notice: outcome.Notice,
	}

	if outcome.Widget != nil {
		script, err := widget.Render(*outcome.Widget)
		if err != nil {
			logger.Error("Failed to render payment widget", zap.Error(err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		data.Widget = script
		if outcome.Widget.Resource == widget.ResourceCreditCards {
			data.PaymentMethod = payment.GatewayID
		}
	} else {
		data.RedirectURL = outcome.RedirectURL
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := pageTemplate.Execute(w, data); err != nil {
		logger.Error("Failed to render page template", zap.Error(err))
	}
}
