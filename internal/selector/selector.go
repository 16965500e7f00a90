// Package selector implements the tag selector expression grammar: a
// comma-separated disjunction of "+"-separated conjunctions, where each
// conjunct is a tag name or "!name" for negation.
package selector

import "strings"

// term is a single conjunct: a tag name, optionally negated.
type term struct {
	name    string
	negated bool
}

// conjunction is a "+"-joined list of terms, all of which must hold.
type conjunction []term

// Selector is a parsed tag selector expression.
type Selector struct {
	disjuncts []conjunction
}

// Parse parses a selector expression. An empty expression matches nothing
// (callers should treat "no selector" as "select everything" before calling
// Parse, since the grammar itself has no explicit wildcard).
func Parse(expr string) Selector {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Selector{}
	}

	var disjuncts []conjunction
	for _, disjunctStr := range strings.Split(expr, ",") {
		disjunctStr = strings.TrimSpace(disjunctStr)
		if disjunctStr == "" {
			continue
		}

		var conj conjunction
		for _, termStr := range strings.Split(disjunctStr, "+") {
			termStr = strings.TrimSpace(termStr)
			if termStr == "" {
				continue
			}
			if strings.HasPrefix(termStr, "!") {
				conj = append(conj, term{name: termStr[1:], negated: true})
			} else {
				conj = append(conj, term{name: termStr})
			}
		}
		if len(conj) > 0 {
			disjuncts = append(disjuncts, conj)
		}
	}

	return Selector{disjuncts: disjuncts}
}

// Matches reports whether tags satisfies the selector: at least one
// disjunct matches, where a conjunction matches iff every positive term is
// present and no negated term is present.
func (s Selector) Matches(tags []string) bool {
	if len(s.disjuncts) == 0 {
		return false
	}

	tagSet := make(map[string]bool, len(tags))
	for _, t := range tags {
		tagSet[t] = true
	}

	for _, conj := range s.disjuncts {
		if conjunctionMatches(conj, tagSet) {
			return true
		}
	}
	return false
}

func conjunctionMatches(conj conjunction, tagSet map[string]bool) bool {
	for _, term := range conj {
		if term.negated {
			if tagSet[term.name] {
				return false
			}
			continue
		}
		if !tagSet[term.name] {
			return false
		}
	}
	return true
}
