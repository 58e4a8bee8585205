package advisor

import (
	"context"
	"strings"

	"goldpayments/internal/core/ports"
)

// Offline implements ports.TextGenerator without a model. It is used when no
// API key is configured and returns the same text for the same prompt.
type Offline struct{}

// NewOffline creates an offline generator.
func NewOffline() *Offline {
	return &Offline{}
}

// Generate echoes the client profile from the prompt inside fixed advice.
func (o *Offline) Generate(ctx context.Context, prompt string, _ ports.GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var profile []string
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- Saldo Actual:") || strings.HasPrefix(line, "- Nivel de Membresía:") {
			profile = append(profile, line)
		}
	}

	var b strings.Builder
	b.WriteString("Bienvenido a su consultoría privada GoldPayments.\n")
	for _, line := range profile {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\nInsights de Oro:\n")
	b.WriteString("1. Mantenga una reserva de liquidez equivalente a seis meses de gastos.\n")
	b.WriteString("2. Revise sus cargos recurrentes de membresía frente a los beneficios obtenidos.\n")
	b.WriteString("3. Concentre las cuentas vinculadas en una sola bóveda para simplificar su conciliación.\n")
	b.WriteString("\nRecomendación: diversifique en instrumentos de renta fija de alta calificación.")
	return b.String(), nil
}

// Name returns the provider name.
func (o *Offline) Name() string {
	return "offline"
}
