package knowledge

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"knowledgescout/internal/domain"
)

const (
	phraseWeight  = 10
	minTermLength = 3
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "are": {}, "was": {}, "were": {}, "for": {}, "with": {},
	"what": {}, "which": {}, "who": {}, "whom": {}, "where": {}, "when": {}, "why": {},
	"how": {}, "does": {}, "did": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"from": {}, "into": {}, "about": {}, "have": {}, "has": {}, "had": {}, "you": {},
	"your": {}, "his": {}, "her": {}, "their": {}, "they": {}, "them": {}, "there": {},
	"can": {}, "could": {}, "would": {}, "should": {}, "will": {}, "any": {}, "all": {},
	"some": {}, "tell": {}, "list": {}, "show": {}, "give": {}, "please": {}, "not": {},
	"but": {}, "its": {}, "our": {}, "out": {}, "than": {}, "then": {}, "also": {},
}

// Match is one document that shares text with a question.
type Match struct {
	Document domain.Document
	Score    int
	Phrase   bool     // the whole question occurs in the content
	Terms    []string // distinct question terms found in the content
	Offset   int      // rune index of the earliest hit in Document.Content
}

// lower folds s to lower case. A Caser keeps state, so each call gets its own.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// words splits already-lowered text into letter/digit runs.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !isWordRune(r) })
}

// folded is text lower-cased rune by rune with every whitespace run
// collapsed to a single space. origin[i] is the rune index in the source
// text that produced byte i of text.
type folded struct {
	text   string
	origin []int
}

func fold(s string) folded {
	var (
		sb     strings.Builder
		origin []int
		caser  = cases.Lower(language.Und)
		space  bool
		idx    int
	)
	sb.Grow(len(s))
	origin = make([]int, 0, len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !space {
				sb.WriteByte(' ')
				origin = append(origin, idx)
				space = true
			}
		case r < utf8.RuneSelf:
			space = false
			sb.WriteRune(unicode.ToLower(r))
			origin = append(origin, idx)
		default:
			space = false
			l := caser.String(string(r))
			sb.WriteString(l)
			for range len(l) {
				origin = append(origin, idx)
			}
		}
		idx++
	}
	return folded{text: sb.String(), origin: origin}
}

// Terms returns the distinct searchable terms of question in first-seen order.
func Terms(question string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range words(fold(question).text) {
		if utf8.RuneCountInString(w) < minTermLength {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// normalizePhrase folds the question and drops trailing sentence punctuation.
func normalizePhrase(question string) string {
	q := strings.TrimSpace(fold(question).text)
	return strings.TrimRight(q, "?!. ")
}

// MatchDocuments scores docs against question and returns the documents with
// a positive score, best first. Equal scores keep the order of docs.
func MatchDocuments(question string, docs []domain.Document) []Match {
	phrase := normalizePhrase(question)
	terms := Terms(question)
	if phrase == "" && len(terms) == 0 {
		return nil
	}

	var matches []Match
	for _, doc := range docs {
		content := fold(doc.Content)
		m := Match{Document: doc}
		first := -1
		hit := func(pos int) {
			if pos >= 0 && (first < 0 || pos < first) {
				first = pos
			}
		}

		if phrase != "" {
			if pos := strings.Index(content.text, phrase); pos >= 0 {
				m.Phrase = true
				m.Score += phraseWeight
				hit(pos)
			}
		}
		for _, term := range terms {
			if pos := strings.Index(content.text, term); pos >= 0 {
				m.Terms = append(m.Terms, term)
				m.Score++
				hit(pos)
			}
		}

		if m.Score == 0 {
			continue
		}
		m.Offset = content.origin[first]
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
