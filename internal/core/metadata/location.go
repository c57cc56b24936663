package metadata

import (
	"strings"

	"github.com/kirillkom/f1-penalty-rag/internal/core/nlp"
)

type locationCandidate struct {
	text   string
	tokens int
}

// ResolveLocation maps free text to one canonical location using the
// process-wide lexicon.
func ResolveLocation(text string) (string, bool) {
	return Lexicon().Resolve(text)
}

// Resolve runs the demonym pass first and falls back to "<name> grand prix"
// and "<name> gp" phrases only when the demonym pass finds nothing.
func (l *LocationLexicon) Resolve(text string) (string, bool) {
	doc := l.pipeline.Process(text)

	if candidates := l.demonymCandidates(doc); len(candidates) > 0 {
		if len(candidates) == 1 {
			return candidates[0], true
		}
		for _, c := range candidates {
			if l.IsLocationName(c) {
				return c, true
			}
		}
		return "", false
	}

	candidates := grandPrixCandidates(doc)
	switch len(candidates) {
	case 0:
		return "", false
	case 1:
		return l.canonical(candidates[0].text), true
	}
	for _, c := range candidates {
		if l.IsLocationName(c.text) {
			return c.text, true
		}
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.tokens < best.tokens {
			best = c
		}
	}
	return l.canonical(best.text), true
}

// DomainEntities returns the "<name> grand prix" / "<name> gp" phrases found
// in text, in discovery order.
func DomainEntities(text string) []string {
	candidates := grandPrixCandidates(Lexicon().pipeline.Process(text))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.text)
	}
	return out
}

func (l *LocationLexicon) canonical(phrase string) string {
	if mapped, ok := l.adjectives[phrase]; ok {
		return mapped
	}
	return phrase
}

func (l *LocationLexicon) demonymCandidates(doc *nlp.Doc) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, ent := range doc.Entities {
		if ent.Label == nlp.LabelGPE {
			add(l.canonical(ent.Text))
		}
	}
	for _, tok := range doc.Tokens {
		mapped, ok := l.adjectives[tok.Text]
		if !ok || tok.Dep != nlp.DepAmod {
			continue
		}
		if head := doc.Tokens[tok.Head]; head.POS == nlp.NOUN || head.POS == nlp.PROPN {
			add(mapped)
		}
	}
	for _, tok := range doc.Tokens {
		mapped, ok := l.adjectives[tok.Text]
		if !ok {
			continue
		}
		switch tok.POS {
		case nlp.NOUN, nlp.PROPN, nlp.X:
			add(mapped)
		}
	}
	return out
}

// grandPrixCandidates yields every run of non-stop alphabetic tokens that
// ends right before "grand prix" or "gp", ordered by start position.
func grandPrixCandidates(doc *nlp.Doc) []locationCandidate {
	tokens := doc.Tokens
	var out []locationCandidate
	for i := range tokens {
		if !isGrandPrixMarker(tokens, i) {
			continue
		}
		start := i
		for start > 0 && tokens[start-1].IsAlpha && !tokens[start-1].IsStop {
			start--
		}
		for s := start; s < i; s++ {
			words := make([]string, 0, i-s)
			for _, tok := range tokens[s:i] {
				words = append(words, tok.Text)
			}
			out = append(out, locationCandidate{
				text:   strings.Join(words, " "),
				tokens: len(strings.Fields(strings.Join(words, " "))),
			})
		}
	}
	return out
}

func isGrandPrixMarker(tokens []nlp.Token, i int) bool {
	if tokens[i].Text == "gp" {
		return true
	}
	return tokens[i].Text == "grand" && i+1 < len(tokens) && tokens[i+1].Text == "prix"
}
