package handoff

import "strings"

// Contribution weights for KeywordOverlapScore. Primary task phrases count
// full weight, secondary phrases half, expertise keywords least.
const (
	primaryOverlapWeight   = 0.4
	primaryPhraseWeight    = 0.3
	primaryWordWeight      = 0.2
	secondaryOverlapWeight = 0.2
	secondaryPhraseWeight  = 0.15
	secondaryWordWeight    = 0.1
	expertiseOverlapWeight = 0.1
	expertisePhraseWeight  = 0.1
	expertiseWordWeight    = 0.05
)

// KeywordOverlapScore estimates how well a free-text task description matches
// an agent's declared capabilities, returning a value in [0, 1]. It is a word
// overlap and substring heuristic, nothing more.
//
// Each primary task phrase contributes for word-set overlap, for appearing
// verbatim inside the description, and once per description word contained in
// the phrase; secondary phrases contribute the same checks at half weight and
// expertise keywords at the lowest weight. Contributions are summed without
// normalizing by phrase count, so agents declaring many overlapping phrases
// score structurally higher, and the sum is clipped to 1.0.
func KeywordOverlapScore(taskDescription string, cap AgentCapability) float64 {
	desc := strings.ToLower(strings.TrimSpace(taskDescription))
	if desc == "" {
		return 0
	}
	words := splitWords(desc)

	score := phraseContribution(desc, words, cap.PrimaryTasks,
		primaryOverlapWeight, primaryPhraseWeight, primaryWordWeight)
	score += phraseContribution(desc, words, cap.SecondaryTasks,
		secondaryOverlapWeight, secondaryPhraseWeight, secondaryWordWeight)
	score += phraseContribution(desc, words, cap.Expertise,
		expertiseOverlapWeight, expertisePhraseWeight, expertiseWordWeight)

	if score > 1.0 {
		return 1.0
	}
	return score
}

// phraseContribution scores one capability field against the description.
// overlapW applies when the phrase and description share a word, phraseW when
// the whole phrase appears inside the description, and wordW once per
// description word that appears inside the phrase.
func phraseContribution(desc string, words []string, phrases []string, overlapW, phraseW, wordW float64) float64 {
	var score float64
	for _, phrase := range phrases {
		p := strings.ToLower(strings.TrimSpace(phrase))
		if p == "" {
			continue
		}
		if wordsIntersect(words, splitWords(p)) {
			score += overlapW
		}
		if strings.Contains(desc, p) {
			score += phraseW
		}
		for _, w := range words {
			if strings.Contains(p, w) {
				score += wordW
			}
		}
	}
	return score
}

// splitWords returns the unique whitespace-delimited words of s in first-seen
// order. s is assumed to be lowercased already.
func splitWords(s string) []string {
	fields := strings.Fields(s)
	seen := make(map[string]struct{}, len(fields))
	words := fields[:0]
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		words = append(words, f)
	}
	return words
}

func wordsIntersect(a, b []string) bool {
	set := make(map[string]struct{}, len(b))
	for _, w := range b {
		set[w] = struct{}{}
	}
	for _, w := range a {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}
