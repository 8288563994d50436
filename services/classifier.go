package services

import (
	"strings"

	"graph-investigator/models"
)

// indicatorGroup is one curated set of lexical markers that route a
// question to the deep fidelity.
type indicatorGroup struct {
	name  string
	terms []string
}

// ComplexityClassifier derives a routing label from question text alone.
// Pure and synchronous: identical input always yields the identical label,
// and the label only selects schema fidelity and statistics, never
// correctness. Ambiguous questions default to simple, the cheaper route.
type ComplexityClassifier struct {
	groups []indicatorGroup
}

// NewComplexityClassifier builds the classifier with its curated indicator
// groups.
func NewComplexityClassifier() *ComplexityClassifier {
	return &ComplexityClassifier{
		groups: []indicatorGroup{
			{
				name: "network",
				terms: []string{
					"network", "connected", "connection", "linked", "link between",
					"related to", "relationship", "ring", "associates", "ties",
				},
			},
			{
				name: "comparison",
				terms: []string{
					"most", "highest", "largest", "biggest", "average", "above-average",
					"compare", "more than", "top ", "versus", "peer",
				},
			},
			{
				name: "quantifier",
				terms: []string{
					"all ", "every", "multiple", "several", "how many", "each of",
				},
			},
			{
				name: "temporal",
				terms: []string{
					"when ", "date", "recent", "before", "after", "within",
					"days of", "timeline", "close to",
				},
			},
			{
				name: "continuation",
				terms: []string{
					"also", "what about", "expand", "drill", "dig deeper",
					"follow up", "go further", "and then",
				},
			},
			{
				name: "coreference",
				terms: []string{
					"their ", "them ", "they ", "those ", "these ", "that one",
				},
			},
			{
				name: "quantitative",
				terms: []string{
					"sum", "total", "amount", "exposure", "dollar", "$",
					"percentage", "ratio", "count of",
				},
			},
			{
				name: "infrastructure",
				terms: []string{
					"sharing", "share ", "shared", "same fax", "same address",
					"same phone", "same device", "same number", "in common",
				},
			},
			{
				name: "historical",
				terms: []string{
					"history", "historical", "past ", "previous", "previously",
					"prior", "ever ", "used to",
				},
			},
		},
	}
}

// Classify returns the routing label for a question. Any single indicator
// match routes deep; absence of all matches routes simple.
func (c *ComplexityClassifier) Classify(question string) models.ComplexityLabel {
	normalized := strings.ToLower(strings.TrimSpace(question)) + " "

	for _, group := range c.groups {
		for _, term := range group.terms {
			if strings.Contains(normalized, term) {
				return models.ComplexityDeep
			}
		}
	}
	return models.ComplexitySimple
}

// MatchedGroups reports which indicator groups fired, for diagnostics.
func (c *ComplexityClassifier) MatchedGroups(question string) []string {
	normalized := strings.ToLower(strings.TrimSpace(question)) + " "

	var matched []string
	for _, group := range c.groups {
		for _, term := range group.terms {
			if strings.Contains(normalized, term) {
				matched = append(matched, group.name)
				break
			}
		}
	}
	return matched
}
