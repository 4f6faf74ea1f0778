// Package search builds the full-text index of a book, in the elasticlunr.js format read by
// the search box of the website theme.
package search

import (
	"encoding/json"
	"math"
	"strings"
	"unicode"
)

const (
	// ElasticlunrVersion is the version of the serialized index format
	ElasticlunrVersion = "0.9.5"

	maxTokenLength = 80
)

// Fields are the indexed fields of a page document
var Fields = []string{"title", "body", "keywords"}

// Document is one indexed page
type Document struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Keywords string `json:"keywords"`
}

func (d Document) field(name string) string {
	switch name {
	case "title":
		return d.Title
	case "body":
		return d.Body
	case "keywords":
		return d.Keywords
	}
	return ""
}

type posting struct {
	TF float64 `json:"tf"`
}

// node is a character of the token trie; a token ends on the node holding its postings
type node struct {
	postings map[string]posting
	next     map[rune]*node
}

func newNode() *node {
	return &node{postings: map[string]posting{}, next: map[rune]*node{}}
}

func (n *node) walk(token string, create bool) *node {
	cur := n
	for _, r := range token {
		child, ok := cur.next[r]
		if !ok {
			if !create {
				return nil
			}
			child = newNode()
			cur.next[r] = child
		}
		cur = child
	}
	return cur
}

// MarshalJSON writes children next to "docs" and "df", as elasticlunr expects
func (n *node) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.next)+2)
	if len(n.postings) > 0 {
		out["docs"] = n.postings
		out["df"] = len(n.postings)
	}
	for r, child := range n.next {
		out[string(r)] = child
	}
	return json.Marshal(out)
}

// Index collects page documents and one token trie per field
type Index struct {
	docs    map[string]Document
	lengths map[string]map[string]int
	tries   map[string]*node
}

// NewIndex returns an empty index over Fields
func NewIndex() *Index {
	idx := &Index{
		docs:    map[string]Document{},
		lengths: map[string]map[string]int{},
		tries:   make(map[string]*node, len(Fields)),
	}
	for _, f := range Fields {
		idx.tries[f] = newNode()
	}
	return idx
}

// Add indexes doc under doc.ID, replacing an earlier document with the same id
func (idx *Index) Add(doc Document) {
	if old, ok := idx.docs[doc.ID]; ok {
		for _, f := range Fields {
			for _, token := range analyze(old.field(f)) {
				if n := idx.tries[f].walk(token, false); n != nil {
					delete(n.postings, old.ID)
				}
			}
		}
	}
	idx.docs[doc.ID] = doc
	idx.lengths[doc.ID] = make(map[string]int, len(Fields))

	for _, f := range Fields {
		counts := map[string]int{}
		for _, token := range analyze(doc.field(f)) {
			counts[token]++
		}
		idx.lengths[doc.ID][f] = len(counts)

		for token, n := range counts {
			idx.tries[f].walk(token, true).postings[doc.ID] = posting{TF: math.Sqrt(float64(n))}
		}
	}
}

// Len is the number of indexed documents
func (idx *Index) Len() int { return len(idx.docs) }

// DocFrequency is the number of documents holding the analyzed token in field
func (idx *Index) DocFrequency(field, token string) int {
	trie, ok := idx.tries[field]
	if !ok {
		return 0
	}
	if n := trie.walk(token, false); n != nil {
		return len(n.postings)
	}
	return 0
}

// Contains reports whether a document holds the analyzed token in field
func (idx *Index) Contains(field, token string) bool {
	return idx.DocFrequency(field, token) > 0
}

// MarshalJSON writes the serialized elasticlunr index
func (idx *Index) MarshalJSON() ([]byte, error) {
	index := make(map[string]any, len(idx.tries))
	for f, trie := range idx.tries {
		index[f] = map[string]any{"root": trie}
	}
	return json.Marshal(map[string]any{
		"version":  ElasticlunrVersion,
		"fields":   Fields,
		"ref":      "id",
		"lang":     "English",
		"pipeline": []string{"trimmer", "stopWordFilter", "stemmer"},
		"documentStore": map[string]any{
			"save":    true,
			"docs":    idx.docs,
			"docInfo": idx.lengths,
			"length":  len(idx.docs),
		},
		"index": index,
	})
}

// analyze runs the elasticlunr pipeline: trimmer, stop word filter, stemmer
func analyze(text string) []string {
	var out []string
	for _, token := range tokenize(text) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if token == "" || stopWords[token] {
			continue
		}
		if s := stem(token); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// tokenize lowercases text and splits it on white space and hyphens. Overlong tokens are dropped.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == '-' || unicode.IsSpace(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) <= maxTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// stopWords is the elasticlunr English stop word list
var stopWords = func() map[string]bool {
	const list = `a able about across after all almost also am among an and any are as at be because
		been but by can cannot could dear did do does either else ever every for from get got had has
		have he her hers him his how however i if in into is it its just least let like likely may me
		might most must my neither no nor not of off often on only or other our own rather said say
		says she should since so some than that the their them then there these they this tis to too
		twas us wants was we were what when where which while who whom why will with would yet you your`
	words := strings.Fields(list)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}()

type suffixRule struct {
	suffix string
	// keep is the shortest stem the rule may leave
	keep int
}

// stemPasses remove at most one suffix each, trying rules in order
var stemPasses = [][]suffixRule{
	{{"ies", 4}, {"es", 3}, {"s", 2}},
	{{"ed", 3}, {"ing", 3}},
	{
		{"tion", 3}, {"sion", 3}, {"ment", 3}, {"ness", 3}, {"ful", 3}, {"less", 3}, {"ity", 3},
		{"ous", 3}, {"ive", 3}, {"ent", 3}, {"ant", 3}, {"able", 3}, {"ible", 3}, {"ence", 3}, {"ance", 3},
	},
	{{"ly", 3}, {"er", 3}, {"est", 3}},
}

// stem strips common English suffixes, a lighter variant of the Porter stemmer
func stem(word string) string {
	if len(word) <= 2 {
		return word
	}
	word = strings.ToLower(word)
	for _, pass := range stemPasses {
		for _, rule := range pass {
			if s, ok := strings.CutSuffix(word, rule.suffix); ok && len(s) >= rule.keep {
				word = s
				break
			}
		}
	}
	return word
}
