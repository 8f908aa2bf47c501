package usecase

import (
	"regexp"
	"sort"
	"strings"
)

var (
	urlExpr    = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagExpr    = regexp.MustCompile(`<[^>]*>`)
	spaceExpr  = regexp.MustCompile(`\s+`)
	tokenExpr  = regexp.MustCompile(`[\p{L}\p{N}]+`)
	breakExpr  = regexp.MustCompile(`[.!?]\s+|\n+`)
	ptStopList = []string{
		"a", "o", "e", "de", "da", "do", "das", "dos", "em", "um", "uma",
		"para", "com", "por", "que", "não", "nao", "na", "no", "nas", "nos",
		"se", "ao", "aos", "as", "os", "mais", "como", "mas", "foi", "ele",
		"ela", "seu", "sua", "ou", "ser", "quando", "muito", "há", "já",
		"está", "também", "só", "pelo", "pela", "até", "isso", "entre",
		"era", "depois", "sem", "mesmo", "ter", "é", "são", "tem", "à",
	}
)

var ptStopwords = func() map[string]struct{} {
	set := make(map[string]struct{}, len(ptStopList))
	for _, w := range ptStopList {
		set[w] = struct{}{}
	}
	return set
}()

// cleanText strips URLs, HTML tags, and extra whitespace while keeping
// punctuation readable for downstream prompting.
func cleanText(text string) string {
	if text == "" {
		return ""
	}
	text = urlExpr.ReplaceAllString(text, "")
	text = tagExpr.ReplaceAllString(text, "")
	return strings.TrimSpace(spaceExpr.ReplaceAllString(text, " "))
}

// tokenize lowercases and splits text into word tokens.
func tokenize(text string) []string {
	return tokenExpr.FindAllString(strings.ToLower(text), -1)
}

// contentTokens returns the deduplicated token set with stopwords and very
// short tokens removed.
func contentTokens(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range tokenize(text) {
		if len([]rune(tok)) < 3 {
			continue
		}
		if _, stop := ptStopwords[tok]; stop {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// jaccard computes token-set similarity in [0, 1].
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// topKeywords extracts up to max keywords ordered by descending frequency,
// ties broken alphabetically for determinism.
func topKeywords(text string, max int) []string {
	counts := map[string]int{}
	for _, tok := range tokenize(text) {
		if len([]rune(tok)) < 4 {
			continue
		}
		if _, stop := ptStopwords[tok]; stop {
			continue
		}
		counts[tok]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > max {
		words = words[:max]
	}
	return words
}

// splitSentences breaks text into trimmed sentence fragments.
func splitSentences(text string) []string {
	parts := breakExpr.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// keyFacts keeps sentences that mention any of the keywords, skipping very
// short fragments, up to max entries.
func keyFacts(text string, keywords []string, max int) []string {
	if len(keywords) == 0 || max <= 0 {
		return nil
	}

	seen := map[string]struct{}{}
	var facts []string
	for _, sentence := range splitSentences(text) {
		if len(strings.Fields(sentence)) <= 5 {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				if _, dup := seen[lower]; !dup {
					seen[lower] = struct{}{}
					facts = append(facts, sentence)
				}
				break
			}
		}
		if len(facts) >= max {
			break
		}
	}
	return facts
}

// wordCount counts whitespace-separated words.
func wordCount(text string) int {
	return len(strings.Fields(text))
}
