// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed reads PubMed article exports in the formats the site and
// the E-utilities API produce (CSV, MEDLINE text, XML, JSON) and downloads
// fresh exports by query.
package pubmed

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/review-assistant/pkg/types"
)

// maxExportSize caps how large an export file we are willing to parse.
const maxExportSize = 50 << 20

// Parse reads the export at path into normalized articles. An empty hint
// triggers format detection. Records without a PMID are dropped: every
// downstream stage keys its cache on that identifier.
func Parse(path string, hint Format) ([]types.Article, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("checking export file: %w", err)
	}
	if info.Size() > maxExportSize {
		return nil, fmt.Errorf("export file is %d bytes, limit is %d", info.Size(), maxExportSize)
	}

	format := hint
	if format == "" {
		format = DetectFormat(path)
	}

	switch format {
	case FormatCSV:
		return parseCSV(path)
	case FormatMEDLINE:
		return parseMEDLINE(path)
	case FormatXML:
		return parseXML(path)
	case FormatJSON:
		return parseJSON(path)
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// parseCSV reads the "Send to > File > CSV" export from the PubMed site.
func parseCSV(path string) ([]types.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv export: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	// The site exports UTF-8 with a BOM.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var articles []types.Article
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		a := types.Article{
			PMID:     field(row, "PMID"),
			Title:    field(row, "Title"),
			Abstract: field(row, "Abstract"),
			Authors:  field(row, "Authors"),
			Journal:  field(row, "Journal"),
			PubDate:  field(row, "Publication Date"),
			DOI:      field(row, "DOI"),
		}
		if a.PMID != "" {
			articles = append(articles, a)
		}
	}
	return articles, nil
}

var medlineFieldLine = regexp.MustCompile(`^([A-Z]+)\s*-\s*(.*)`)

// parseMEDLINE reads the tagged text format. A field line is "TAG - value";
// indented lines continue the previous field; a PMID line starts a new
// record.
func parseMEDLINE(path string) ([]types.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening medline export: %w", err)
	}

	var (
		articles []types.Article
		fields   = map[string][]string{}
		tag      string
		value    []string
	)

	flushField := func() {
		if tag != "" {
			fields[tag] = append(fields[tag], strings.TrimSpace(strings.Join(value, " ")))
		}
		tag, value = "", nil
	}
	flushRecord := func() {
		if len(fields) > 0 {
			if a := medlineArticle(fields); a.PMID != "" {
				articles = append(articles, a)
			}
		}
		fields = map[string][]string{}
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if m := medlineFieldLine.FindStringSubmatch(line); m != nil {
			flushField()
			if m[1] == "PMID" {
				flushRecord()
			}
			tag, value = m[1], []string{m[2]}
			continue
		}
		if tag != "" && strings.HasPrefix(line, " ") {
			value = append(value, strings.TrimSpace(line))
		}
	}
	flushField()
	flushRecord()

	return articles, nil
}

// medlineArticle maps MEDLINE field codes onto the normalized record. TA is
// the journal abbreviation, DP the print publication date; AID carries the
// DOI with a marker suffix.
func medlineArticle(fields map[string][]string) types.Article {
	first := func(tag string) string {
		if v := fields[tag]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	doi := ""
	for _, aid := range fields["AID"] {
		if strings.HasSuffix(aid, "[doi]") {
			doi = strings.TrimSpace(strings.TrimSuffix(aid, "[doi]"))
			break
		}
	}
	if doi == "" {
		doi = first("LID")
		doi = strings.TrimSpace(strings.TrimSuffix(doi, "[doi]"))
		if strings.Contains(doi, "[") {
			doi = ""
		}
	}

	journal := first("TA")
	if journal == "" {
		journal = first("JT")
	}

	return types.Article{
		PMID:     first("PMID"),
		Title:    first("TI"),
		Abstract: first("AB"),
		Authors:  strings.Join(fields["AU"], ", "),
		Journal:  journal,
		PubDate:  first("DP"),
		DOI:      doi,
	}
}

// pubmedArticleSet mirrors the subset of the Entrez XML schema we read.
type pubmedArticleSet struct {
	Articles []struct {
		Citation struct {
			PMID    string `xml:"PMID"`
			Article struct {
				Title    string `xml:"ArticleTitle"`
				Abstract struct {
					Sections []string `xml:"AbstractText"`
				} `xml:"Abstract"`
				Authors []struct {
					LastName string `xml:"LastName"`
					ForeName string `xml:"ForeName"`
				} `xml:"AuthorList>Author"`
				Journal struct {
					Title string `xml:"Title"`
					Issue struct {
						Year string `xml:"PubDate>Year"`
					} `xml:"JournalIssue"`
				} `xml:"Journal"`
			} `xml:"Article"`
		} `xml:"MedlineCitation"`
		Data struct {
			IDs []struct {
				Type  string `xml:"IdType,attr"`
				Value string `xml:",chardata"`
			} `xml:"ArticleIdList>ArticleId"`
		} `xml:"PubmedData"`
	} `xml:"PubmedArticle"`
}

// parseXML reads the Entrez efetch XML format.
func parseXML(path string) ([]types.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening xml export: %w", err)
	}

	var set pubmedArticleSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parsing xml export: %w", err)
	}

	var articles []types.Article
	for _, elem := range set.Articles {
		var authors []string
		for _, au := range elem.Citation.Article.Authors {
			name := au.LastName
			if name == "" {
				continue
			}
			if au.ForeName != "" {
				name = au.ForeName + " " + name
			}
			authors = append(authors, name)
		}

		doi := ""
		for _, id := range elem.Data.IDs {
			if id.Type == "doi" {
				doi = strings.TrimSpace(id.Value)
				break
			}
		}

		a := types.Article{
			PMID:     strings.TrimSpace(elem.Citation.PMID),
			Title:    strings.TrimSpace(elem.Citation.Article.Title),
			Abstract: strings.TrimSpace(strings.Join(elem.Citation.Article.Abstract.Sections, " ")),
			Authors:  strings.Join(authors, ", "),
			Journal:  strings.TrimSpace(elem.Citation.Article.Journal.Title),
			PubDate:  strings.TrimSpace(elem.Citation.Article.Journal.Issue.Year),
			DOI:      doi,
		}
		if a.PMID != "" {
			articles = append(articles, a)
		}
	}
	return articles, nil
}

// parseJSON reads JSON exports: an esummary-style {"result": {...}}
// envelope, an {"articles": [...]} wrapper, a bare list, or a single
// object. Field names vary between sources, so each record is normalized
// through loose lookups.
func parseJSON(path string) ([]types.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening json export: %w", err)
	}

	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing json export: %w", err)
	}

	var items []any
	switch v := root.(type) {
	case []any:
		items = v
	case map[string]any:
		switch {
		case v["result"] != nil:
			if result, ok := v["result"].(map[string]any); ok {
				for key, entry := range result {
					if key == "uids" {
						continue
					}
					items = append(items, entry)
				}
			}
		case v["articles"] != nil:
			items, _ = v["articles"].([]any)
		default:
			items = []any{v}
		}
	}

	var articles []types.Article
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if a := jsonArticle(obj); a.PMID != "" {
			articles = append(articles, a)
		}
	}
	return articles, nil
}

func jsonArticle(obj map[string]any) types.Article {
	pick := func(keys ...string) string {
		for _, k := range keys {
			switch v := obj[k].(type) {
			case string:
				if v != "" {
					return v
				}
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			case []any:
				var parts []string
				for _, p := range v {
					parts = append(parts, fmt.Sprintf("%v", p))
				}
				if len(parts) > 0 {
					return strings.Join(parts, " ")
				}
			case map[string]any:
				if year, ok := v["year"].(string); ok {
					return year
				}
			}
		}
		return ""
	}

	authors := ""
	if list, ok := obj["authors"].([]any); ok {
		var names []string
		for _, a := range list {
			switch v := a.(type) {
			case string:
				names = append(names, v)
			case map[string]any:
				if name, ok := v["name"].(string); ok {
					names = append(names, name)
				}
			}
		}
		authors = strings.Join(names, ", ")
	} else {
		authors = pick("authors")
	}

	return types.Article{
		PMID:     strings.TrimSpace(pick("pmid", "PMID", "id", "uid")),
		Title:    strings.TrimSpace(pick("title", "Title", "ArticleTitle")),
		Abstract: strings.TrimSpace(pick("abstract", "Abstract", "AbstractText")),
		Authors:  authors,
		Journal:  strings.TrimSpace(pick("journal", "Journal", "source", "fulljournalname")),
		PubDate:  strings.TrimSpace(pick("pub_date", "PubDate", "published_date", "pubdate")),
		DOI:      strings.TrimSpace(pick("doi", "DOI", "elocationid")),
	}
}
