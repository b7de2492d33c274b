// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/review-assistant/pkg/types"
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// BibTeX renders the included articles as a bibliography. Citation keys are
// author-year (smith2024); collisions get a numeric suffix (smith2024_02).
func BibTeX(articles []types.Article) string {
	var b strings.Builder
	b.WriteString("% Generated bibliography. One @article entry per included study.\n\n")

	seen := map[string]int{}
	for _, a := range articles {
		key := citationKey(a)
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s_%02d", key, n)
		}

		fmt.Fprintf(&b, "@article{%s,\n", key)
		writeField(&b, "title", escapeLaTeX(a.Title))
		writeField(&b, "author", bibAuthors(a.Authors))
		writeField(&b, "journal", escapeLaTeX(a.Journal))
		writeField(&b, "year", articleYear(a))
		// Identifiers are copied verbatim; escaping would corrupt them.
		writeField(&b, "doi", a.DOI)
		writeField(&b, "pmid", a.PMID)
		if a.PMID != "" {
			writeField(&b, "url", "https://pubmed.ncbi.nlm.nih.gov/"+a.PMID+"/")
		}
		b.WriteString("}\n\n")
	}
	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  %s = {%s},\n", name, value)
}

// citationKey derives the author-year key: first author's surname,
// lowercased and stripped to letters, plus the publication year.
func citationKey(a types.Article) string {
	surname := "anon"
	if first := strings.TrimSpace(strings.SplitN(a.Authors, ",", 2)[0]); first != "" {
		raw := strings.ToLower(surnameOf(first))
		var clean strings.Builder
		for _, r := range raw {
			if r >= 'a' && r <= 'z' {
				clean.WriteRune(r)
			}
		}
		if clean.Len() > 0 {
			surname = clean.String()
		}
	}

	year := articleYear(a)
	if year == "" {
		year = "nd"
	}
	return surname + year
}

// surnameOf picks the family name out of one author string. MEDLINE
// records arrive as "Smith JB" (surname first, initials last) while XML
// gives "John Smith", so the last token wins unless it looks like
// initials.
func surnameOf(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 1 {
		return parts[0]
	}
	last := parts[len(parts)-1]
	if len(last) <= 3 && last == strings.ToUpper(last) {
		return parts[0]
	}
	return last
}

func articleYear(a types.Article) string {
	return yearPattern.FindString(a.PubDate)
}

// bibAuthors converts the parser's comma-separated author list into
// BibTeX's " and "-separated form.
func bibAuthors(authors string) string {
	parts := strings.Split(authors, ",")
	var names []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, escapeLaTeX(p))
		}
	}
	return strings.Join(names, " and ")
}

var latexEscaper = strings.NewReplacer(
	"&", `\&`,
	"$", `\$`,
	"%", `\%`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
)

func escapeLaTeX(s string) string { return latexEscaper.Replace(s) }
