// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMEDLINE = `PMID- 38012345
TI  - Telemedicine interventions for hypertension management: a randomized
      controlled trial.
AB  - BACKGROUND: Hypertension control remains poor. METHODS: We randomized
      420 adults to telemedicine or usual care.
AU  - Chen L
AU  - Okafor N
TA  - J Hypertens
JT  - Journal of Hypertension
DP  - 2024 Mar
AID - 10.1097/HJH.0000000000003456 [doi]

PMID- 38099999
TI  - Second article title.
AB  - Second abstract.
AU  - Alvarez M
DP  - 2023
`

const sampleCSV = "\ufeff" + `PMID,Title,Authors,Journal,Publication Date,Abstract,DOI
38012345,"Telemedicine interventions for hypertension","Chen L, Okafor N",J Hypertens,2024 Mar,"Background text here",10.1097/HJH.003456
,"Row without a PMID","Nobody",Nowhere,2020,"Dropped",
38099999,"Second article","Alvarez M",BMJ,2023,"Second abstract",
`

const sampleXML = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>38012345</PMID>
      <Article>
        <Journal>
          <Title>Journal of Hypertension</Title>
          <JournalIssue><PubDate><Year>2024</Year></PubDate></JournalIssue>
        </Journal>
        <ArticleTitle>Telemedicine interventions for hypertension</ArticleTitle>
        <Abstract>
          <AbstractText>Part one.</AbstractText>
          <AbstractText>Part two.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author><LastName>Chen</LastName><ForeName>Li</ForeName></Author>
          <Author><LastName>Okafor</LastName></Author>
        </AuthorList>
      </Article>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">38012345</ArticleId>
        <ArticleId IdType="doi">10.1097/HJH.003456</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
</PubmedArticleSet>
`

const sampleJSON = `{
  "result": {
    "uids": ["38012345"],
    "38012345": {
      "uid": "38012345",
      "title": "Telemedicine interventions for hypertension",
      "fulljournalname": "Journal of Hypertension",
      "pubdate": "2024 Mar",
      "authors": [{"name": "Chen L"}, {"name": "Okafor N"}]
    }
  }
}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseMEDLINE(t *testing.T) {
	path := writeTemp(t, "export.txt", sampleMEDLINE)
	articles, err := Parse(path, "")
	require.NoError(t, err)
	require.Len(t, articles, 2)

	a := articles[0]
	assert.Equal(t, "38012345", a.PMID)
	assert.Equal(t, "Telemedicine interventions for hypertension management: a randomized controlled trial.", a.Title)
	assert.Contains(t, a.Abstract, "We randomized 420 adults")
	assert.Equal(t, "Chen L, Okafor N", a.Authors)
	assert.Equal(t, "J Hypertens", a.Journal)
	assert.Equal(t, "2024 Mar", a.PubDate)
	assert.Equal(t, "10.1097/HJH.0000000000003456", a.DOI)

	assert.Equal(t, "38099999", articles[1].PMID)
	assert.Empty(t, articles[1].DOI)
}

func TestParseCSV(t *testing.T) {
	path := writeTemp(t, "export.csv", sampleCSV)
	articles, err := Parse(path, "")
	require.NoError(t, err)
	require.Len(t, articles, 2, "the PMID-less row is dropped")

	a := articles[0]
	assert.Equal(t, "38012345", a.PMID, "BOM must not break the PMID column")
	assert.Equal(t, "Chen L, Okafor N", a.Authors)
	assert.Equal(t, "2024 Mar", a.PubDate)
}

func TestParseXML(t *testing.T) {
	path := writeTemp(t, "export.xml", sampleXML)
	articles, err := Parse(path, "")
	require.NoError(t, err)
	require.Len(t, articles, 1)

	a := articles[0]
	assert.Equal(t, "38012345", a.PMID)
	assert.Equal(t, "Part one. Part two.", a.Abstract)
	assert.Equal(t, "Li Chen, Okafor", a.Authors)
	assert.Equal(t, "Journal of Hypertension", a.Journal)
	assert.Equal(t, "2024", a.PubDate)
	assert.Equal(t, "10.1097/HJH.003456", a.DOI)
}

func TestParseJSONSummaryEnvelope(t *testing.T) {
	path := writeTemp(t, "export.json", sampleJSON)
	articles, err := Parse(path, "")
	require.NoError(t, err)
	require.Len(t, articles, 1)

	a := articles[0]
	assert.Equal(t, "38012345", a.PMID)
	assert.Equal(t, "Chen L, Okafor N", a.Authors)
	assert.Equal(t, "Journal of Hypertension", a.Journal)
}

func TestParseJSONBareList(t *testing.T) {
	path := writeTemp(t, "list.json",
		`[{"pmid": "111", "title": "A"}, {"title": "no id"}, {"pmid": "222", "title": "B"}]`)
	articles, err := Parse(path, "")
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "111", articles[0].PMID)
	assert.Equal(t, "222", articles[1].PMID)
}

func TestParseExplicitHintWins(t *testing.T) {
	// MEDLINE content in a .dat file parses fine with a hint.
	path := writeTemp(t, "export.dat", sampleMEDLINE)
	articles, err := Parse(path, FormatMEDLINE)
	require.NoError(t, err)
	assert.Len(t, articles, 2)
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "absent.csv"), "")
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    Format
	}{
		{"csv extension", "a.csv", "PMID,Title\n", FormatCSV},
		{"xml extension", "a.xml", "<PubmedArticleSet/>", FormatXML},
		{"json extension", "a.json", "{}", FormatJSON},
		{"medline txt", "a.txt", sampleMEDLINE, FormatMEDLINE},
		{"csv inside txt", "a.txt", "PMID,Title,Abstract\n1,t,a\n", FormatCSV},
		{"json by content", "a.dat", `{"result": {}}`, FormatJSON},
		{"xml by content", "a.dat", "<PubmedArticleSet>", FormatXML},
		{"medline by content", "a.dat", "PMID- 123\nTI  - t\n", FormatMEDLINE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, tt.file, tt.content)
			assert.Equal(t, tt.want, DetectFormat(path))
		})
	}
}
