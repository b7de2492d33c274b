// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"strings"
)

// prismaBox is one node of the flow diagram, shared by all renderers.
type prismaBox struct {
	Phase string
	Title string
	Count int
	Note  string
}

func prismaBoxes(n Numbers) []prismaBox {
	return []prismaBox{
		{Phase: "Identification", Title: "Records identified from databases", Count: n.Identified},
		{Phase: "Screening", Title: "Records screened", Count: n.Screened},
		{Phase: "Screening", Title: "Records excluded", Count: n.ScreenExcluded,
			Note: "includes UNCERTAIN routed to full-text review"},
		{Phase: "Eligibility", Title: "Reports sought for retrieval", Count: n.FullTextSought},
		{Phase: "Eligibility", Title: "Reports excluded after full-text review", Count: n.FullTextExcluded},
		{Phase: "Included", Title: "Studies included in qualitative synthesis", Count: n.Included},
	}
}

// RenderSVG draws the flow diagram as a standalone SVG document. The main
// flow runs down the left column; exclusion boxes sit to the right of the
// step that produced them.
func RenderSVG(n Numbers) string {
	const (
		boxW, boxH = 280, 70
		mainX      = 40
		sideX      = 380
		top        = 60
		gapY       = 120
	)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="720" height="620" viewBox="0 0 720 620">` + "\n")
	b.WriteString(`  <style>
    .box { fill: #eef4fb; stroke: #2c5f8a; stroke-width: 1.5; }
    .side { fill: #fbf3ee; stroke: #8a552c; stroke-width: 1.5; }
    .title { font: bold 13px sans-serif; }
    .count { font: 12px sans-serif; }
    .arrow { stroke: #333; stroke-width: 1.5; marker-end: url(#head); }
  </style>
  <defs>
    <marker id="head" markerWidth="8" markerHeight="8" refX="6" refY="3" orient="auto">
      <path d="M0,0 L6,3 L0,6 z" fill="#333"/>
    </marker>
  </defs>
`)

	box := func(x, y int, class, title string, count int) {
		fmt.Fprintf(&b, `  <rect class=%q x="%d" y="%d" width="%d" height="%d" rx="4"/>`+"\n",
			class, x, y, boxW, boxH)
		fmt.Fprintf(&b, `  <text class="title" x="%d" y="%d">%s</text>`+"\n",
			x+12, y+28, escapeXML(title))
		fmt.Fprintf(&b, `  <text class="count" x="%d" y="%d">n = %d</text>`+"\n",
			x+12, y+50, count)
	}
	arrow := func(x1, y1, x2, y2 int) {
		fmt.Fprintf(&b, `  <line class="arrow" x1="%d" y1="%d" x2="%d" y2="%d"/>`+"\n", x1, y1, x2, y2)
	}

	// Main column: identified, screened, sought, included.
	box(mainX, top, "box", "Records identified from databases", n.Identified)
	box(mainX, top+gapY, "box", "Records screened", n.Screened)
	box(mainX, top+2*gapY, "box", "Reports sought for retrieval", n.FullTextSought)
	box(mainX, top+3*gapY, "box", "Studies included in synthesis", n.Included)

	// Side column: exclusions.
	box(sideX, top+gapY, "side", "Records excluded", n.ScreenExcluded)
	box(sideX, top+2*gapY, "side", "Reports excluded (full text)", n.FullTextExcluded)

	midX := mainX + boxW/2
	arrow(midX, top+boxH, midX, top+gapY)
	arrow(midX, top+gapY+boxH, midX, top+2*gapY)
	arrow(midX, top+2*gapY+boxH, midX, top+3*gapY)
	arrow(mainX+boxW, top+gapY+boxH/2, sideX, top+gapY+boxH/2)
	arrow(mainX+boxW, top+2*gapY+boxH/2, sideX, top+2*gapY+boxH/2)

	b.WriteString("</svg>\n")
	return b.String()
}

// RenderTikZ emits the diagram as a standalone LaTeX picture for direct
// \input into the manuscript.
func RenderTikZ(n Numbers) string {
	var b strings.Builder
	b.WriteString(`% PRISMA 2020 flow diagram
\begin{tikzpicture}[
  box/.style={rectangle, draw, text width=5.5cm, align=center, minimum height=1.2cm},
  side/.style={rectangle, draw, dashed, text width=4.5cm, align=center, minimum height=1.2cm},
  arrow/.style={->, thick}
]
`)
	fmt.Fprintf(&b, "\\node[box] (identified) {Records identified from databases\\\\(n = %d)};\n", n.Identified)
	fmt.Fprintf(&b, "\\node[box, below=1.2cm of identified] (screened) {Records screened\\\\(n = %d)};\n", n.Screened)
	fmt.Fprintf(&b, "\\node[side, right=1.5cm of screened] (excluded) {Records excluded\\\\(n = %d)};\n", n.ScreenExcluded)
	fmt.Fprintf(&b, "\\node[box, below=1.2cm of screened] (sought) {Reports sought for retrieval\\\\(n = %d)};\n", n.FullTextSought)
	fmt.Fprintf(&b, "\\node[side, right=1.5cm of sought] (ftexcluded) {Reports excluded after full-text review\\\\(n = %d)};\n", n.FullTextExcluded)
	fmt.Fprintf(&b, "\\node[box, below=1.2cm of sought] (included) {Studies included in qualitative synthesis\\\\(n = %d)};\n", n.Included)
	b.WriteString(`\draw[arrow] (identified) -- (screened);
\draw[arrow] (screened) -- (sought);
\draw[arrow] (sought) -- (included);
\draw[arrow] (screened) -- (excluded);
\draw[arrow] (sought) -- (ftexcluded);
\end{tikzpicture}
`)
	return b.String()
}

// RenderHTML emits a self-contained HTML page with the flow laid out as
// stacked cards, for quick inspection in a browser.
func RenderHTML(n Numbers, title string) string {
	if title == "" {
		title = "PRISMA 2020 Flow Diagram"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
  body { font-family: sans-serif; margin: 2rem; }
  .phase { color: #555; font-size: .8rem; text-transform: uppercase; margin-top: 1.4rem; }
  .card { border: 1.5px solid #2c5f8a; background: #eef4fb; border-radius: 6px;
          padding: .7rem 1rem; margin: .4rem 0; max-width: 30rem; }
  .card.side { border-color: #8a552c; background: #fbf3ee; }
  .count { font-weight: bold; }
  .note { color: #777; font-size: .8rem; }
</style>
</head>
<body>
<h1>%s</h1>
`, escapeXML(title), escapeXML(title))

	phase := ""
	for _, box := range prismaBoxes(n) {
		if box.Phase != phase {
			phase = box.Phase
			fmt.Fprintf(&b, `<div class="phase">%s</div>`+"\n", escapeXML(phase))
		}
		class := "card"
		if strings.Contains(box.Title, "excluded") {
			class = "card side"
		}
		fmt.Fprintf(&b, `<div class=%q>%s <span class="count">(n = %d)</span>`,
			class, escapeXML(box.Title), box.Count)
		if box.Note != "" {
			fmt.Fprintf(&b, `<div class="note">%s</div>`, escapeXML(box.Note))
		}
		b.WriteString("</div>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
