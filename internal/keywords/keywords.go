// Package keywords provides a lightweight frequency-based keyword summary,
// used as the note of a highlight when the scorer supplied no phrase.
package keywords

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var tokenRe = regexp.MustCompile(`[A-Za-z0-9']+`)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true,
	"from": true, "are": true, "was": true, "were": true, "will": true, "shall": true,
	"into": true, "your": true, "have": true, "has": true, "had": true, "but": true,
	"not": true, "can": true, "could": true, "would": true, "should": true, "a": true,
	"an": true, "of": true, "on": true, "in": true, "to": true, "as": true, "by": true,
	"it": true, "its": true, "at": true, "or": true, "be": true, "is": true, "we": true,
	"our": true, "you": true, "their": true, "there": true, "about": true, "over": true,
	"any": true, "all": true, "more": true, "most": true, "such": true, "other": true,
	"than": true, "may": true, "if": true, "also": true,
}

// Extract returns up to max keywords ranked by frequency, ties broken by
// first occurrence. When every token is filtered out it falls back to the
// first max raw tokens. Keywords are capitalized.
func Extract(text string, max int) []string {
	if text == "" || max <= 0 {
		return nil
	}
	tokens := tokenRe.FindAllString(text, -1)

	type entry struct {
		word  string
		count int
		first int
	}
	index := make(map[string]int)
	var entries []entry
	for i, raw := range tokens {
		t := strings.Trim(strings.ToLower(raw), "'_")
		if t == "" || stopwords[t] || len(t) < 3 || isDigits(t) {
			continue
		}
		if j, ok := index[t]; ok {
			entries[j].count++
			continue
		}
		index[t] = len(entries)
		entries = append(entries, entry{word: t, count: 1, first: i})
	}

	if len(entries) == 0 {
		n := min(max, len(tokens))
		out := make([]string, 0, n)
		for _, tok := range tokens[:n] {
			out = append(out, capitalize(tok))
		}
		return out
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].first < entries[j].first
	})
	n := min(max, len(entries))
	out := make([]string, 0, n)
	for _, e := range entries[:n] {
		out = append(out, capitalize(e.word))
	}
	return out
}

// Summary joins the top keywords with spaces.
func Summary(text string, max int) string {
	return strings.Join(Extract(text, max), " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
