// Package render composites certificate PDFs from a background image and
// absolutely positioned text blocks. This is the coordinate-based rendering
// backend; block coordinates come from the visual template editor, in pixels
// or as percentages of the background size.
package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// TextBlock is one positioned text element of a layout. Pixel coordinates
// take precedence; percentage coordinates are resolved against the background
// dimensions.
type TextBlock struct {
	Text       string   `json:"text"`
	XPx        *float64 `json:"x_px,omitempty"`
	YPx        *float64 `json:"y_px,omitempty"`
	WidthPx    *float64 `json:"width_px,omitempty"`
	XPct       *float64 `json:"x_pct,omitempty"`
	YPct       *float64 `json:"y_pct,omitempty"`
	WidthPct   *float64 `json:"width_pct,omitempty"`
	FontSize   float64  `json:"font_size"`
	Bold       bool     `json:"bold"`
	Italic     bool     `json:"italic"`
	Color      string   `json:"color"` // #rrggbb
	Align      string   `json:"align"` // left|center|right
	NameFormat string   `json:"name_format"`
}

// LayoutConfig describes a full certificate layout.
type LayoutConfig struct {
	Background []byte      `json:"-"`
	Blocks     []TextBlock `json:"blocks"`
}

// studentNameKey is the token that honors per-block name formatting.
const studentNameKey = "NOMBRE DEL ESTUDIANTE"

// FormatName renders a full name in one of the editor's display modes:
// full, first_last, f_last, first_l, fl.
func FormatName(fullName, mode string) string {
	fullName = strings.TrimSpace(fullName)
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return ""
	}
	first := parts[0]
	last := ""
	if len(parts) > 1 {
		last = parts[len(parts)-1]
	}
	switch mode {
	case "first_last":
		return strings.TrimSpace(first + " " + last)
	case "f_last":
		return strings.TrimSpace(first[:1] + ". " + last)
	case "first_l":
		if last == "" {
			return first
		}
		return first + " " + last[:1] + "."
	case "fl":
		if last == "" {
			return first[:1] + "."
		}
		return first[:1] + ". " + last[:1] + "."
	default:
		return fullName
	}
}

// resolveTokens replaces {KEY} and [KEY] tokens in a block's text, applying
// the block's name format to the student name token.
func resolveTokens(block TextBlock, vars map[string]string) string {
	text := block.Text
	if name, ok := vars[studentNameKey]; ok {
		formatted := FormatName(strings.ToUpper(name), block.NameFormat)
		text = strings.ReplaceAll(text, "{"+studentNameKey+"}", formatted)
		text = strings.ReplaceAll(text, "["+studentNameKey+"]", formatted)
	}
	for key, value := range vars {
		if key == studentNameKey {
			continue
		}
		text = strings.ReplaceAll(text, "{"+key+"}", value)
		text = strings.ReplaceAll(text, "["+key+"]", value)
	}
	return strings.TrimSpace(text)
}

func parseColor(hex string) (r, g, b int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	_, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b)
	if err != nil {
		return 0, 0, 0
	}
	return r, g, b
}

func alignString(align string) string {
	switch align {
	case "center":
		return "C"
	case "right":
		return "R"
	default:
		return "L"
	}
}

// Compose renders the layout into a single-page PDF sized to the background
// image (one pixel = one point).
func Compose(cfg LayoutConfig, vars map[string]string) ([]byte, error) {
	if len(cfg.Background) == 0 {
		return nil, fmt.Errorf("layout has no background image")
	}
	imgCfg, format, err := image.DecodeConfig(bytes.NewReader(cfg.Background))
	if err != nil {
		return nil, fmt.Errorf("decode background image: %w", err)
	}
	imgW := float64(imgCfg.Width)
	imgH := float64(imgCfg.Height)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: imgW, Ht: imgH},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	imageType := strings.ToUpper(format)
	if imageType == "JPEG" {
		imageType = "JPG"
	}
	opts := gofpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader("background", opts, bytes.NewReader(cfg.Background))
	pdf.ImageOptions("background", 0, 0, imgW, imgH, false, opts, 0, "")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, block := range cfg.Blocks {
		text := resolveTokens(block, vars)
		if text == "" {
			continue
		}

		x, y, width := blockGeometry(block, imgW, imgH)
		size := block.FontSize
		if size <= 0 {
			size = 16
		}
		style := ""
		if block.Bold {
			style += "B"
		}
		if block.Italic {
			style += "I"
		}
		pdf.SetFont("Helvetica", style, size)
		r, g, b := parseColor(block.Color)
		pdf.SetTextColor(r, g, b)
		pdf.SetXY(x, y)
		pdf.MultiCell(width, size*1.3, tr(text), "", alignString(block.Align), false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func blockGeometry(block TextBlock, imgW, imgH float64) (x, y, width float64) {
	width = 300
	switch {
	case block.XPx != nil && block.YPx != nil:
		x, y = *block.XPx, *block.YPx
		if block.WidthPx != nil {
			width = *block.WidthPx
		}
	case block.XPct != nil && block.YPct != nil:
		x = *block.XPct / 100 * imgW
		y = *block.YPct / 100 * imgH
		if block.WidthPct != nil {
			width = *block.WidthPct / 100 * imgW
		}
	}
	return x, y, width
}
