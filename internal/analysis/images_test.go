package analysis

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodePlaceholder(t *testing.T, url string) string {
	t.Helper()
	payload, ok := strings.CutPrefix(url, "data:image/svg+xml;base64,")
	require.True(t, ok, "not a placeholder: %s", url)
	svg, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	return string(svg)
}

func TestImageForCurated(t *testing.T) {
	c := DefaultImageCatalog()

	tests := []struct {
		part string
		want string
	}{
		{"ATMEGA328P", "https://cdn.sparkfun.com/assets/parts/7/3/7/00339-03-L.jpg"},
		{"atmega328p", "https://cdn.sparkfun.com/assets/parts/7/3/7/00339-03-L.jpg"},
		{"ESP32_WROOM_32D", "https://cdn.sparkfun.com/assets/parts/1/1/5/2/0/13907-01.jpg"},
		{"HC05", "https://cdn.sparkfun.com/assets/parts/1/0/0/1/2/12576-01.jpg"},
		{"AMS1117-3.3", "https://cdn.sparkfun.com/assets/parts/2/0/1/7/00526-02-L.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.part, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ImageFor(tt.part))
		})
	}
}

func TestPlaceholderStyles(t *testing.T) {
	c := DefaultImageCatalog()

	tests := []struct {
		part  string
		color string
		label string
	}{
		{"STM32G031K8", "#e74c3c", "STM32 MCU"},
		{"LM317T", "#f39c12", "Linear IC"},
		{"LM7812", "#f39c12", "Linear IC"},
		{"W25Q128JV", "#3498db", "Flash"},
		{"10K-RES-0603", "#95a5a6", "Resistor"},
		{"GRM-CAP-100NF", "#3498db", "Capacitor"},
		{"XTAL-16MHZ", "#8e44ad", "Crystal"},
		{"QX-9000", "#6c5ce7", "Component"},
	}

	for _, tt := range tests {
		t.Run(tt.part, func(t *testing.T) {
			url := c.ImageFor(tt.part)
			svg := decodePlaceholder(t, url)
			assert.Contains(t, svg, `fill="`+tt.color+`"`)
			assert.Contains(t, svg, ">"+tt.label+"<")
			assert.Contains(t, svg, ">"+tt.part+"<")
		})
	}
}

func TestPlaceholderEscapesPartNumber(t *testing.T) {
	svg := decodePlaceholder(t, DefaultImageCatalog().Placeholder(`<b>&"x"`))

	assert.Contains(t, svg, "&lt;b&gt;&amp;&#34;x&#34;")
	assert.NotContains(t, svg, "<b>")
	assert.True(t, strings.HasPrefix(svg, `<svg width="200" height="150"`))
}
