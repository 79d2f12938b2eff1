// Package templates renders the outbound emails.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// CodeEmail is the data for the one-time-code message.
type CodeEmail struct {
	Code     string
	ValidFor time.Duration
}

func (d CodeEmail) minutes() int {
	m := int(d.ValidFor.Round(time.Minute) / time.Minute)
	return max(m, 1)
}

// CodeHTML renders the HTML body of the one-time-code message.
func CodeHTML(d CodeEmail) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`+
			`<h2 style="color: #333;">Código de Acceso</h2>`+
			`<p>Hola,</p>`+
			`<p>Tu código de acceso es:</p>`+
			`<div style="background-color: #f4f4f4; padding: 20px; text-align: center; margin: 20px 0;">`+
			`<h1 style="color: #007bff; font-size: 32px; margin: 0; letter-spacing: 5px;">%s</h1>`+
			`</div>`+
			`<p>Este código expira en %d minutos.</p>`+
			`<p>Si no solicitaste este código, puedes ignorar este email.</p>`+
			`<br><p>Saludos,<br>Equipo Criss Vargas</p>`+
			`</div>`,
			templ.EscapeString(d.Code), d.minutes())
		return err
	})
}

// CodeText renders the plain-text body of the one-time-code message.
func CodeText(d CodeEmail) string {
	var b strings.Builder
	b.WriteString("Hola,\n\n")
	fmt.Fprintf(&b, "Tu código de acceso es: %s\n\n", d.Code)
	fmt.Fprintf(&b, "Este código expira en %d minutos.\n", d.minutes())
	b.WriteString("Si no solicitaste este código, puedes ignorar este email.\n\n")
	b.WriteString("Saludos,\nEquipo Criss Vargas\n")
	return b.String()
}

// Render renders a component to a string.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
