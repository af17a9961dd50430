package analysis

import (
	_ "embed"
	"encoding/base64"
	"fmt"
	"html"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed images.yaml
var embeddedImages []byte

// CuratedImage is a known product photo for a part number.
type CuratedImage struct {
	Part string `yaml:"part"`
	URL  string `yaml:"url"`
}

// PlaceholderStyle colors and labels the generated placeholder for a family of parts.
type PlaceholderStyle struct {
	Match []string `yaml:"match"`
	Color string   `yaml:"color"`
	Label string   `yaml:"label"`
}

// ImageCatalog resolves a part number to an image URL. It never returns an empty URL.
type ImageCatalog struct {
	Curated  []CuratedImage     `yaml:"curated"`
	Prefixes []PlaceholderStyle `yaml:"prefixes"`
	Keywords []PlaceholderStyle `yaml:"keywords"`
	Fallback PlaceholderStyle   `yaml:"fallback"`
}

// DefaultImageCatalog returns the embedded catalog.
func DefaultImageCatalog() *ImageCatalog {
	var c ImageCatalog
	if err := yaml.Unmarshal(embeddedImages, &c); err != nil {
		panic(fmt.Sprintf("analysis: embedded image catalog is invalid: %v", err))
	}
	return &c
}

// ImageFor returns the curated photo for part or an SVG placeholder data URL
func (c *ImageCatalog) ImageFor(part string) string {
	if url, ok := c.curated(part); ok {
		return url
	}
	return c.Placeholder(part)
}

func (c *ImageCatalog) curated(part string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(part))
	if upper == "" {
		return "", false
	}
	for _, img := range c.Curated {
		if img.Part == upper {
			return img.URL, true
		}
	}

	base := basePart(upper)
	for _, img := range c.Curated {
		key := basePart(img.Part)
		if strings.HasPrefix(base, key) || strings.HasPrefix(key, base) {
			return img.URL, true
		}
	}
	return "", false
}

func basePart(s string) string {
	return strings.NewReplacer("-", "", "_", "").Replace(s)
}

// Placeholder renders a colored SVG card for part as a base64 data URL
func (c *ImageCatalog) Placeholder(part string) string {
	style := c.styleFor(strings.ToUpper(part))
	svg := fmt.Sprintf(`<svg width="200" height="150" xmlns="http://www.w3.org/2000/svg">`+
		`<rect width="200" height="150" fill="%s"/>`+
		`<rect x="10" y="10" width="180" height="130" fill="none" stroke="#fff" stroke-width="2" stroke-dasharray="5,5"/>`+
		`<text x="100" y="75" text-anchor="middle" fill="white" font-family="Arial, sans-serif" font-size="14" font-weight="bold">%s</text>`+
		`<text x="100" y="95" text-anchor="middle" fill="white" font-family="Arial, sans-serif" font-size="10">%s</text>`+
		`</svg>`, style.Color, html.EscapeString(style.Label), html.EscapeString(part))
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

func (c *ImageCatalog) styleFor(upper string) PlaceholderStyle {
	for _, p := range c.Prefixes {
		for _, m := range p.Match {
			if strings.HasPrefix(upper, m) {
				return p
			}
		}
	}
	for _, k := range c.Keywords {
		for _, m := range k.Match {
			if strings.Contains(upper, m) {
				return k
			}
		}
	}
	return c.Fallback
}
