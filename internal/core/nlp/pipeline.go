// Package nlp is a small deterministic language pipeline: tokenization,
// lexicon-driven part-of-speech tags, adjectival-modifier attachment and
// gazetteer entity spans. It is tuned for short lowercase English queries
// and document headers, not general prose.
package nlp

import (
	"regexp"
	"strings"
	"unicode"
)

type POS string

const (
	ADJ   POS = "ADJ"
	ADP   POS = "ADP"
	ADV   POS = "ADV"
	AUX   POS = "AUX"
	CCONJ POS = "CCONJ"
	DET   POS = "DET"
	NOUN  POS = "NOUN"
	NUM   POS = "NUM"
	PART  POS = "PART"
	PRON  POS = "PRON"
	PROPN POS = "PROPN"
	PUNCT POS = "PUNCT"
	X     POS = "X"
)

// DepAmod marks an adjective attached to the noun it modifies.
const DepAmod = "amod"

// LabelGPE labels geopolitical entity spans.
const LabelGPE = "GPE"

type Token struct {
	Text    string
	POS     POS
	IsStop  bool
	IsAlpha bool
	// Head is the index of the modified token when Dep is set, else -1.
	Head int
	Dep  string
}

// Span covers tokens [Start, End).
type Span struct {
	Start int
	End   int
	Label string
	Text  string
}

type Doc struct {
	Tokens   []Token
	Entities []Span
}

// Lexicon feeds the pipeline. All entries are lowercase and may contain
// spaces; multi-word entries are merged into single tokens.
type Lexicon struct {
	Adjectives  []string
	ProperNouns []string
	Places      []string
}

type Pipeline struct {
	adjectives  map[string]struct{}
	properNouns map[string]struct{}
	places      map[string]struct{}
	phrases     map[string]struct{}
	maxPhrase   int
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{M}]+|\p{N}+|[^\s\p{L}\p{M}\p{N}]`)

func New(lex Lexicon) *Pipeline {
	p := &Pipeline{
		adjectives:  make(map[string]struct{}),
		properNouns: make(map[string]struct{}),
		places:      make(map[string]struct{}),
		phrases:     make(map[string]struct{}),
		maxPhrase:   1,
	}
	add := func(dst map[string]struct{}, entries []string) {
		for _, e := range entries {
			e = strings.Join(strings.Fields(strings.ToLower(e)), " ")
			if e == "" {
				continue
			}
			dst[e] = struct{}{}
			if n := len(strings.Fields(e)); n > 1 {
				p.phrases[e] = struct{}{}
				if n > p.maxPhrase {
					p.maxPhrase = n
				}
			}
		}
	}
	add(p.adjectives, lex.Adjectives)
	add(p.properNouns, lex.ProperNouns)
	add(p.places, lex.Places)
	return p
}

// Process lowercases and annotates text.
func (p *Pipeline) Process(text string) *Doc {
	words := p.merge(wordPattern.FindAllString(strings.ToLower(text), -1))

	doc := &Doc{Tokens: make([]Token, len(words))}
	for i, w := range words {
		doc.Tokens[i] = Token{
			Text:    w,
			POS:     p.tag(w),
			IsStop:  isStopWord(w),
			IsAlpha: isAlpha(w),
			Head:    -1,
		}
	}
	attachModifiers(doc.Tokens)

	for i, tok := range doc.Tokens {
		if _, ok := p.places[tok.Text]; ok {
			doc.Entities = append(doc.Entities, Span{Start: i, End: i + 1, Label: LabelGPE, Text: tok.Text})
		}
	}
	return doc
}

// merge joins the longest run of words forming a lexicon phrase.
func (p *Pipeline) merge(words []string) []string {
	if p.maxPhrase < 2 {
		return words
	}
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		merged := false
		for n := min(p.maxPhrase, len(words)-i); n >= 2; n-- {
			candidate := strings.Join(words[i:i+n], " ")
			if _, ok := p.phrases[candidate]; ok {
				out = append(out, candidate)
				i += n
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, words[i])
			i++
		}
	}
	return out
}

func (p *Pipeline) tag(w string) POS {
	r := []rune(w)
	if len(r) == 1 && !unicode.IsLetter(r[0]) && !unicode.IsNumber(r[0]) {
		return PUNCT
	}
	if isNumeric(w) {
		return NUM
	}
	if pos, ok := closedClass[w]; ok {
		return pos
	}
	if _, ok := p.adjectives[w]; ok {
		return ADJ
	}
	if _, ok := p.places[w]; ok {
		return PROPN
	}
	if _, ok := p.properNouns[w]; ok {
		return PROPN
	}
	if !isAlpha(w) {
		return X
	}
	if strings.HasSuffix(w, "ly") && len(w) > 4 {
		return ADV
	}
	return NOUN
}

// attachModifiers links each adjective to the first noun after it,
// skipping stacked adjectives ("fast japanese car").
func attachModifiers(tokens []Token) {
	for i := range tokens {
		if tokens[i].POS != ADJ {
			continue
		}
		j := i + 1
		for j < len(tokens) && tokens[j].POS == ADJ {
			j++
		}
		if j < len(tokens) && (tokens[j].POS == NOUN || tokens[j].POS == PROPN) {
			tokens[i].Head = j
			tokens[i].Dep = DepAmod
		}
	}
}

func isNumeric(w string) bool {
	for _, r := range w {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return w != ""
}

func isAlpha(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if r == ' ' {
			continue
		}
		if !unicode.IsLetter(r) && !unicode.Is(unicode.M, r) {
			return false
		}
	}
	return true
}
