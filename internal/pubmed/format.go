// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Format names a supported PubMed export encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatMEDLINE Format = "medline"
	FormatXML     Format = "xml"
	FormatJSON    Format = "json"
)

var medlinePMIDLine = regexp.MustCompile(`(?m)^PMID-\s*\d+`)

// DetectFormat guesses the export format of the file at path, by extension
// first and by content sniffing for .txt and unknown extensions. Unknown
// text defaults to MEDLINE, the format PubMed itself exports as .txt.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xml":
		return FormatXML
	case ".json":
		return FormatJSON
	case ".txt":
		return sniffText(path)
	}
	return sniffContent(path)
}

// sniffText distinguishes MEDLINE from CSV inside a .txt file.
func sniffText(path string) Format {
	head, err := readHead(path, 1000)
	if err != nil {
		return FormatMEDLINE
	}
	if medlinePMIDLine.MatchString(head) {
		return FormatMEDLINE
	}
	if firstLine, _, _ := strings.Cut(head, "\n"); strings.Contains(firstLine, ",") {
		return FormatCSV
	}
	return FormatMEDLINE
}

// sniffContent guesses a format for files with no recognized extension.
func sniffContent(path string) Format {
	head, err := readHead(path, 500)
	if err != nil {
		return FormatMEDLINE
	}
	trimmed := strings.TrimSpace(head)
	switch {
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		return FormatJSON
	case strings.HasPrefix(trimmed, "<"):
		return FormatXML
	case strings.Contains(head, "PMID-") || strings.Contains(head, "TI  -"):
		return FormatMEDLINE
	case strings.Contains(head, ","):
		return FormatCSV
	}
	return FormatMEDLINE
}

func readHead(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := f.Read(buf)
	if read == 0 && err != nil {
		return "", err
	}
	return string(buf[:read]), nil
}
