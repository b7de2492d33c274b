// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the records shared across pipeline stages.
package types

// Article is one bibliographic record from a PubMed export. Produced once
// by the parser and immutable afterward; identity is the PMID.
type Article struct {
	PMID     string `json:"pmid" yaml:"pmid"`
	Title    string `json:"title" yaml:"title"`
	Abstract string `json:"abstract" yaml:"abstract"`
	Authors  string `json:"authors" yaml:"authors"`
	Journal  string `json:"journal" yaml:"journal"`
	PubDate  string `json:"pub_date" yaml:"pub_date"`
	DOI      string `json:"doi" yaml:"doi"`
}

// ID returns the article's stable identifier.
func (a Article) ID() string { return a.PMID }
