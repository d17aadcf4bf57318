package naming

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

var wordRe = regexp.MustCompile(`\b[a-z]{3,}\b`)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {},
	"all": {}, "can": {}, "her": {}, "was": {}, "one": {}, "our": {}, "out": {},
	"day": {}, "get": {}, "has": {}, "him": {}, "his": {}, "how": {}, "man": {},
	"new": {}, "now": {}, "old": {}, "see": {}, "two": {}, "way": {}, "who": {},
	"boy": {}, "did": {}, "its": {}, "let": {}, "put": {}, "say": {}, "she": {},
	"too": {}, "use": {}, "with": {}, "this": {}, "that": {}, "from": {}, "have": {},
	"they": {}, "will": {}, "what": {}, "been": {}, "more": {}, "when": {}, "your": {},
	"than": {}, "into": {}, "very": {}, "some": {}, "time": {}, "about": {}, "after": {},
	"could": {}, "their": {}, "would": {}, "there": {}, "these": {}, "which": {},
	"other": {}, "being": {}, "where": {}, "through": {},
}

// themeKeywords maps a theme label to keywords that indicate it. A theme wins
// when at least three of its keywords appear in the combined sample text.
var themeKeywords = map[string][]string{
	"Technology": {"code", "software", "programming", "computer", "algorithm",
		"function", "data", "system", "development", "api"},
	"Science": {"research", "study", "experiment", "theory", "scientific",
		"hypothesis", "analysis", "discovery", "physics", "chemistry"},
	"Space": {"space", "planet", "star", "galaxy", "universe", "cosmic",
		"astronomy", "orbit", "solar", "mars", "moon"},
	"Cooking": {"recipe", "cook", "food", "ingredient", "dish", "meal",
		"kitchen", "flavor", "taste", "cuisine"},
	"History": {"history", "historical", "ancient", "century", "war",
		"civilization", "empire", "dynasty", "era", "period"},
	"Finance": {"money", "financial", "investment", "market", "stock",
		"economy", "trading", "profit", "business", "revenue"},
	"Sports": {"sport", "game", "team", "player", "match", "score",
		"championship", "athlete", "competition", "tournament"},
	"Health": {"health", "medical", "disease", "treatment", "patient",
		"doctor", "medicine", "therapy", "diagnosis", "clinical"},
}

const themeThreshold = 3

// FallbackNamer derives a deterministic folder name from the most frequent
// non-trivial terms in the sample texts. It never fails, so it is safe as the
// last resort when LLM naming is unavailable.
type FallbackNamer struct{}

// NewFallbackNamer returns the deterministic keyword-based namer.
func NewFallbackNamer() *FallbackNamer {
	return &FallbackNamer{}
}

// Name returns a keyword-derived label for the given sample texts.
func (n *FallbackNamer) Name(ctx context.Context, sampleTexts []string) (string, error) {
	if len(sampleTexts) == 0 {
		return "Uncategorized", nil
	}
	combined := strings.ToLower(strings.Join(sampleTexts, " "))

	counts := make(map[string]int)
	for _, w := range wordRe.FindAllString(combined, -1) {
		if _, skip := stopWords[w]; skip {
			continue
		}
		counts[w]++
	}
	if len(counts) == 0 {
		return "Documents", nil
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	// Highest frequency first; ties broken alphabetically so output is stable.
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	var name string
	if len(words) >= 2 {
		name = capitalize(words[0]) + " " + capitalize(words[1])
	} else {
		name = capitalize(words[0])
	}
	if theme := detectTheme(combined); theme != "" {
		name = theme
	}
	return name, nil
}

// detectTheme returns the dominant theme label, or "" when no theme reaches
// the keyword threshold. Ties are broken alphabetically for determinism.
func detectTheme(text string) string {
	best, bestScore := "", 0
	themes := make([]string, 0, len(themeKeywords))
	for t := range themeKeywords {
		themes = append(themes, t)
	}
	sort.Strings(themes)
	for _, theme := range themes {
		score := 0
		for _, kw := range themeKeywords[theme] {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score >= themeThreshold && score > bestScore {
			best, bestScore = theme, score
		}
	}
	return best
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
