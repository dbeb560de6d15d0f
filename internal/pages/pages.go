// Package pages parses 1-based page range expressions such as "3-6,9,12-13".
package pages

import (
	"fmt"
	"strconv"
	"strings"
)

// RangeError reports a malformed or out-of-bounds token.
type RangeError struct {
	Token  string
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid page range token %q: %s", e.Token, e.Reason)
}

// Parse converts spec into a set of 0-based page indexes. A blank spec
// returns nil, meaning no filter. Pages beyond pageCount are rejected, so a
// document with no pages accepts only a blank spec. Reversed ranges ("6-3")
// are accepted and swapped.
func Parse(spec string, pageCount int) (map[int]bool, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}

	set := make(map[int]bool)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.Contains(part, "-") {
			bounds := strings.Split(part, "-")
			if len(bounds) != 2 {
				return nil, &RangeError{Token: part, Reason: "expected start-end"}
			}
			start, err := pageNumber(part, bounds[0], pageCount)
			if err != nil {
				return nil, err
			}
			end, err := pageNumber(part, bounds[1], pageCount)
			if err != nil {
				return nil, err
			}
			if start > end {
				start, end = end, start
			}
			for p := start; p <= end; p++ {
				set[p-1] = true
			}
			continue
		}

		p, err := pageNumber(part, part, pageCount)
		if err != nil {
			return nil, err
		}
		set[p-1] = true
	}

	if len(set) == 0 {
		return nil, &RangeError{Token: spec, Reason: "no pages selected"}
	}
	return set, nil
}

func pageNumber(token, s string, pageCount int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &RangeError{Token: token, Reason: "missing page number"}
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, &RangeError{Token: token, Reason: "not a page number"}
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &RangeError{Token: token, Reason: "not a page number"}
	}
	if n < 1 {
		return 0, &RangeError{Token: token, Reason: "pages start at 1"}
	}
	if n > pageCount {
		return 0, &RangeError{Token: token, Reason: fmt.Sprintf("document has %d pages", pageCount)}
	}
	return n, nil
}
