package payment

import (
	"html/template"

	"github.com/angelmondragon/storefront-backend/pkg/payfast"
)

type formData struct {
	Action string
	Fields []payfast.Field
}

var formTemplate = template.Must(template.New("payfast").Parse(`<form id="payfast-form" action="{{.Action}}" method="post">
{{- range .Fields}}
<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{- end}}
</form>
<script>document.getElementById("payfast-form").submit();</script>
`))
