package agent

import "strings"

// Caption is the structured record extracted from a captioner's prose
// description of a product image.
type Caption struct {
	ProductType string
	Category    string
	Colors      []string
	Audience    string
}

// ParseCaption extracts the labeled fields from caption prose. The captioner
// emits lines like "Product Type: shirt" or "- Category: clothing"; labels
// are matched case-insensitively and unknown lines are ignored. Missing
// fields stay empty.
func ParseCaption(text string) Caption {
	var c Caption
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-"))
		label, value, ok := splitLabel(line)
		if !ok {
			continue
		}
		switch label {
		case "product type":
			c.ProductType = value
		case "category":
			c.Category = value
		case "main colors", "colors":
			c.Colors = splitList(value)
		case "target audience":
			c.Audience = value
		}
	}
	return c
}

func splitLabel(line string) (label, value string, ok bool) {
	i := strings.Index(line, ":")
	if i < 0 {
		return "", "", false
	}
	label = strings.ToLower(strings.TrimSpace(line[:i]))
	value = strings.TrimSpace(line[i+1:])
	if label == "" || value == "" {
		return "", "", false
	}
	return label, value, true
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// maxImageQueryWords caps the generated query length; longer queries reduce
// recall against short catalog view texts.
const maxImageQueryWords = 4

var brandWords = []string{"nike", "adidas", "just so", "apple", "samsung", "sony"}

var colorWords = []string{
	"black", "white", "red", "blue", "pink", "coral", "peach",
	"gray", "grey", "green", "yellow", "purple",
}

// BuildImageQuery turns a parsed caption into a short search query:
// simplified audience + cleaned product type + a broad category hint.
// Brands and colors are stripped because they rarely match catalog text.
func BuildImageQuery(c Caption) string {
	var parts []string

	if a := simplifyAudience(c.Audience); a != "" {
		parts = append(parts, a)
	}

	productType := stripWords(strings.ToLower(c.ProductType), brandWords)
	productType = stripWords(productType, colorWords)
	if productType == "" {
		productType = "product"
	}
	parts = append(parts, productType)

	if cat := categoryHint(c.Category); cat != "" && !strings.Contains(strings.Join(parts, " "), cat) {
		parts = append(parts, cat)
	}

	words := strings.Fields(strings.Join(parts, " "))
	if len(words) > maxImageQueryWords {
		words = words[:maxImageQueryWords]
	}
	if len(words) == 0 {
		return "product"
	}
	return strings.Join(words, " ")
}

// simplifyAudience maps free-form audience text onto the catalog's phrasing.
// Unisex and general audiences add nothing to the query.
func simplifyAudience(audience string) string {
	a := strings.ToLower(audience)
	switch {
	case strings.Contains(a, "women") || strings.Contains(a, "female"):
		return "women's"
	case strings.Contains(a, "men") || strings.Contains(a, "male"):
		return "men's"
	case strings.Contains(a, "kid") || strings.Contains(a, "child"):
		return "kids"
	}
	return ""
}

func categoryHint(category string) string {
	switch strings.ToLower(category) {
	case "clothing", "electronics", "shoes":
		return strings.ToLower(category)
	case "footwear":
		return "shoes"
	}
	return ""
}

func stripWords(s string, words []string) string {
	for _, w := range words {
		s = strings.ReplaceAll(s, w, "")
	}
	return strings.Join(strings.Fields(s), " ")
}
