package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     string
	}{
		{name: "empty", markdown: "  ", want: ""},
		{name: "plain", markdown: "Hola", want: "Hola"},
		{name: "double asterisk bold", markdown: "**Respuesta directa**", want: "*Respuesta directa*"},
		{name: "single asterisk stays bold", markdown: "*Negrita* directa", want: "*Negrita* directa"},
		{name: "underscore italic", markdown: "Texto _importante_", want: "Texto _importante_"},
		{name: "heading", markdown: "# Título\nTexto", want: "*Título*\n\nTexto"},
		{name: "bullets", markdown: "**Clave**\n\n- uno\n- dos", want: "*Clave*\n\n• uno\n• dos"},
		{name: "ordered", markdown: "1. uno\n2. dos", want: "1. uno\n2. dos"},
		{name: "code and strike", markdown: "Usa `cemento` y ~~arena~~", want: "Usa `cemento` y ~arena~"},
		{name: "link", markdown: "[RNE](https://rne.pe)", want: "RNE (https://rne.pe)"},
		{name: "paragraphs", markdown: "uno\n\n\n\ndos", want: "uno\n\ndos"},
		{name: "soft break", markdown: "línea uno\nlínea dos", want: "línea uno\nlínea dos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMarkdown(tt.markdown))
		})
	}
}
