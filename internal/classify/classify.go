package classify

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// topicKeywords maps each topic tag to the keywords that trigger it. A bill
// is tagged with every topic for which at least one keyword appears as a
// substring of the lowercased title+summary text. The table is static
// configuration; it is not mutable at runtime.
var topicKeywords = map[string][]string{
	"Education":        {"education", "school", "university", "college", "student", "teacher", "learning", "academic", "campus", "scholarship", "degree", "curriculum", "classroom", "textbook", "tuition", "enrollment"},
	"Student Loans":    {"student loan", "student debt", "federal student aid", "pell grant", "financial aid", "tuition", "borrower", "repayment", "forgiveness", "default", "interest rate"},
	"Mental Health":    {"mental health", "mental illness", "psychiatric", "therapy", "counseling", "depression", "anxiety", "suicide prevention", "behavioral", "psychological", "wellness", "crisis", "treatment"},
	"Youth Voting":     {"youth voting", "voting age", "student voting", "campus voting", "voter registration", "election access", "democracy", "civic", "participation", "franchise"},
	"Environment":      {"environment", "climate", "green energy", "renewable", "carbon", "emissions", "pollution", "conservation", "sustainability", "clean air", "water", "wildlife", "ecosystem", "renewable energy", "solar", "wind"},
	"Healthcare":       {"health", "healthcare", "medical", "hospital", "doctor", "nurse", "insurance", "medicare", "medicaid", "pharmaceutical", "drug", "prescription", "treatment", "patient"},
	"Economy":          {"economy", "economic", "business", "job", "employment", "unemployment", "wage", "salary", "income", "tax", "budget", "deficit", "inflation", "recession"},
	"Technology":       {"technology", "tech", "digital", "internet", "cyber", "data", "privacy", "artificial intelligence", "ai", "computer", "software", "hardware", "innovation"},
	"Immigration":      {"immigration", "immigrant", "border", "visa", "citizenship", "asylum", "refugee", "deportation", "naturalization"},
	"Criminal Justice": {"criminal", "justice", "police", "law enforcement", "prison", "jail", "incarceration", "rehabilitation", "reform", "sentencing"},
}

// topicOrder fixes the output order so classification is deterministic.
var topicOrder = []string{
	"Education",
	"Student Loans",
	"Mental Health",
	"Youth Voting",
	"Environment",
	"Healthcare",
	"Economy",
	"Technology",
	"Immigration",
	"Criminal Justice",
}

// minTextLen guards against tagging bills with no meaningful text.
const minTextLen = 10

var (
	matcher       *ahocorasick.Matcher
	patternTopics [][]string
)

// init builds the matcher over the deduplicated keyword set. Keywords shared
// by several topics ("tuition", "treatment") get one pattern slot mapping to
// all of them, since the matcher reports each unique pattern once.
func init() {
	var patterns []string
	index := make(map[string]int)
	for _, topic := range topicOrder {
		for _, kw := range topicKeywords[topic] {
			i, seen := index[kw]
			if !seen {
				i = len(patterns)
				index[kw] = i
				patterns = append(patterns, kw)
				patternTopics = append(patternTopics, nil)
			}
			patternTopics[i] = append(patternTopics[i], topic)
		}
	}
	matcher = ahocorasick.NewStringMatcher(patterns)
}

// AllTopics returns the topic tags in canonical order.
func AllTopics() []string {
	out := make([]string, len(topicOrder))
	copy(out, topicOrder)
	return out
}

// Topics assigns topic tags to a bill from its title and summary text.
// It is a deterministic pure function: the combined text is lowercased and
// every topic with at least one matching keyword substring is tagged once.
// A bill matching nothing gets an empty (non-nil) set.
func Topics(title, summary string) []string {
	text := strings.ToLower(strings.TrimSpace(title + " " + summary))
	if len(text) < minTextLen {
		return []string{}
	}

	hit := make(map[string]bool, len(topicOrder))
	for _, idx := range matcher.Match([]byte(text)) {
		for _, topic := range patternTopics[idx] {
			hit[topic] = true
		}
	}

	topics := make([]string, 0, len(hit))
	for _, topic := range topicOrder {
		if hit[topic] {
			topics = append(topics, topic)
		}
	}
	return topics
}
