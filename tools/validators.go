package tools

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
)

var pdfMagic = []byte("%PDF-")

// IsPDF checks the magic header. Some producers prepend a few junk bytes, so
// the marker may appear within the first kilobyte.
func IsPDF(head []byte) bool {
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, pdfMagic)
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SafeFileName keeps the base name of an upload using a conservative charset.
func SafeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "article.pdf"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// TitleFromFileName derives a display title from an uploaded file name.
func TitleFromFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.TrimSpace(CollapseSpaces(base))
}
