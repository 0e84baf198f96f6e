package render

import (
	"fmt"
	"strings"
)

// Text renders v for a terminal.
func Text(v View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "API URL:  %s\n", v.BaseURL)
	fmt.Fprintf(&b, "Person:   %s\n", orDash(v.Person))
	fmt.Fprintf(&b, "Garment:  %s\n", orDash(v.Garment))
	fmt.Fprintf(&b, "Model:    %s\n", v.Model)
	fmt.Fprintf(&b, "Actions:  [%s]%s  [%s]%s\n",
		v.TryOnLabel, disabledMark(v.TryOnEnabled), v.AnalyzeLabel, disabledMark(v.AnalyzeEnabled))

	if v.Notice != "" {
		fmt.Fprintf(&b, "! %s\n", v.Notice)
	}
	if v.Inconclusive != "" {
		fmt.Fprintf(&b, "? %s\n", v.Inconclusive)
	}

	b.WriteString("Result:\n")
	switch v.Panel {
	case PanelBusy:
		b.WriteString("  ... working\n")
	case PanelSingleImage:
		fmt.Fprintf(&b, "  %s\n", v.Image)
		if v.MaskImage != "" {
			fmt.Fprintf(&b, "  mask: %s\n", v.MaskImage)
		}
	case PanelAnalysis:
		writeList(&b, v.BodyParts)
		writeList(&b, v.ClothingItems)
	default:
		fmt.Fprintf(&b, "  %s\n", v.Placeholder)
	}

	if len(v.Archived) > 0 {
		b.WriteString("Archived:\n")
		for _, a := range v.Archived {
			fmt.Fprintf(&b, "  %s  %s\n", a.Label, a.URL)
		}
	}
	return b.String()
}

func writeList(b *strings.Builder, l *List) {
	if l == nil {
		return
	}
	fmt.Fprintf(b, "  %s:\n", l.Title)
	if l.Empty {
		fmt.Fprintf(b, "    %s\n", l.EmptyText)
		return
	}
	for _, it := range l.Items {
		fmt.Fprintf(b, "    %-16s %s\n", it.Label, it.URL)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func disabledMark(enabled bool) string {
	if enabled {
		return ""
	}
	return " (disabled)"
}
