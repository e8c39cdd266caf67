package triage

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EmptyAnalysisText is the body of a report produced from zero items.
const EmptyAnalysisText = "No items to analyze."

// Summary holds the derived counts and best-effort metadata of a report.
type Summary struct {
	TotalItems    int      `json:"total_items" yaml:"total_items"`
	RelevantItems int      `json:"relevant_items" yaml:"relevant_items"`
	GeneralItems  int      `json:"general_items" yaml:"general_items"`
	Categories    []string `json:"categories" yaml:"categories"`
	KeyInsights   []string `json:"key_insights" yaml:"key_insights"`
}

// Metadata records which provider/model produced the analysis.
type Metadata struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Report is the consolidated, categorized output of one run.
// TotalItems always equals RelevantItems + GeneralItems: every item that
// survived dedup filtering is represented, not just the relevant ones.
type Report struct {
	Timestamp    string   `json:"timestamp" yaml:"timestamp"`
	Summary      Summary  `json:"summary" yaml:"summary"`
	AnalysisText string   `json:"analysis_text" yaml:"analysis_text"`
	Metadata     Metadata `json:"metadata" yaml:"metadata"`
}

var (
	bulletLinePattern = regexp.MustCompile(`(?m)^[ \t]*[-*][ \t]+\S`)
	headerLinePattern = regexp.MustCompile(`(?m)^#{1,4}[ \t]+(.+)$`)
)

// Assembler derives summary metadata from the consolidated text. This is
// best-effort extraction from unstructured model output, not a strict parse:
// it never fails, and absent markers yield empty summary fields.
type Assembler struct {
	titleCaser cases.Caser
}

// NewAssembler creates a report assembler.
func NewAssembler() *Assembler {
	return &Assembler{titleCaser: cases.Title(language.AmericanEnglish)}
}

// Assemble produces the final report. Zero input items yield an explicit
// empty report; no generation call is ever made for it.
func (a *Assembler) Assemble(results []Result, analysisText string, meta Metadata) *Report {
	report := &Report{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Metadata:  meta,
	}

	if len(results) == 0 {
		report.AnalysisText = EmptyAnalysisText
		report.Summary.Categories = []string{}
		report.Summary.KeyInsights = []string{"No relevant feedback found"}
		return report
	}

	relevant := 0
	for _, r := range results {
		if r.IsRelevant {
			relevant++
		}
	}

	report.AnalysisText = analysisText
	report.Summary = Summary{
		TotalItems:    len(results),
		RelevantItems: relevant,
		GeneralItems:  len(results) - relevant,
		Categories:    a.scanCategories(analysisText),
		KeyInsights:   a.scanInsights(analysisText, relevant, len(results)),
	}

	return report
}

// scanCategories returns the taxonomy categories whose names appear in the
// analysis text, normalized to their canonical casing.
func (a *Assembler) scanCategories(text string) []string {
	lower := strings.ToLower(text)
	found := []string{}
	for _, cat := range Taxonomy {
		if strings.Contains(lower, strings.ToLower(cat)) {
			found = append(found, cat)
		}
	}

	// Also pick up headers the model invented outside the taxonomy.
	known := make(map[string]struct{}, len(found))
	for _, cat := range found {
		known[strings.ToLower(cat)] = struct{}{}
	}
	for _, m := range headerLinePattern.FindAllStringSubmatch(text, -1) {
		header := a.titleCaser.String(strings.TrimSpace(m[1]))
		if _, ok := known[strings.ToLower(header)]; ok {
			continue
		}
		if len(header) > 60 {
			continue
		}
		known[strings.ToLower(header)] = struct{}{}
		found = append(found, header)
	}

	return found
}

// scanInsights derives key insights heuristically: item counts plus theme
// presence proxied by category keywords. Fragile by nature and treated as
// best-effort metadata only.
func (a *Assembler) scanInsights(text string, relevant, total int) []string {
	insights := []string{}

	if relevant > 0 {
		insights = append(insights, pluralCount(relevant, "relevant communication")+" across "+pluralCount(total, "item"))
	}

	if n := len(bulletLinePattern.FindAllString(text, -1)); n > 0 {
		insights = append(insights, pluralCount(n, "discussion point")+" highlighted")
	}

	lower := strings.ToLower(text)
	themes := []struct {
		keyword string
		insight string
	}{
		{"technical", "Technical issues were reported"},
		{"feature", "Feature requests were raised"},
		{"billing", "Service or billing changes were requested"},
		{"meeting", "Meetings or scheduling were requested"},
	}
	for _, theme := range themes {
		if strings.Contains(lower, theme.keyword) {
			insights = append(insights, theme.insight)
		}
	}

	return insights
}

func pluralCount(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
