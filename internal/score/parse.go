package score

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseScores turns a model reply into ScoredChunks.
//
// The text between the first '[' and the last ']' is parsed as a JSON array.
// If that fails (typically a reply cut off at the token limit) every complete
// top-level object after the first '[' is parsed on its own and the rest is
// discarded. Objects with a missing or mistyped id or relevance are skipped.
// The first score seen for an id wins. ErrNoScores is returned only when
// recovery finds nothing.
func ParseScores(raw string) ([]ScoredChunk, error) {
	candidate := raw
	first := strings.Index(raw, "[")
	last := strings.LastIndex(raw, "]")
	if first >= 0 && last > first {
		candidate = raw[first : last+1]
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &items); err != nil {
		items = recoverObjects(raw, first)
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: %v (raw: %s)", ErrNoScores, err, truncate(raw, 200))
		}
	}

	out := make([]ScoredChunk, 0, len(items))
	seen := make(map[int]bool, len(items))
	for _, item := range items {
		sc, ok := coerce(item)
		if !ok || seen[sc.ID] {
			continue
		}
		seen[sc.ID] = true
		out = append(out, sc)
	}
	return out, nil
}

// recoverObjects scans raw after the first '[' and returns each balanced
// top-level object that parses. A ']' outside any string or object ends the
// scan.
func recoverObjects(raw string, first int) []json.RawMessage {
	work := raw
	if first >= 0 {
		work = raw[first+1:]
	}

	var out []json.RawMessage
	inString, escape := false, false
	depth, start := 0, -1
	for i := 0; i < len(work); i++ {
		ch := work[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				obj := work[start : i+1]
				if json.Valid([]byte(obj)) {
					out = append(out, json.RawMessage(obj))
				}
				start = -1
			}
		case ']':
			if depth == 0 {
				return out
			}
		}
	}
	return out
}

func coerce(item json.RawMessage) (ScoredChunk, bool) {
	dec := json.NewDecoder(bytes.NewReader(item))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return ScoredChunk{}, false
	}

	id, ok := asInt(obj["id"])
	if !ok {
		return ScoredChunk{}, false
	}
	rel, ok := asFloat(obj["relevance"])
	if !ok {
		return ScoredChunk{}, false
	}

	sc := ScoredChunk{ID: id, Relevance: min(max(rel, 0), 1)}
	switch v := obj["rationale"].(type) {
	case nil:
	case string:
		sc.Rationale = v
	default:
		sc.Rationale = fmt.Sprint(v)
	}
	if p, ok := obj["phrase"].(string); ok {
		sc.Phrase = strings.TrimSpace(p)
	}
	return sc, true
}

func asInt(v any) (int, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func asFloat(v any) (float64, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
