package metadata

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/f1-penalty-rag/internal/core/nlp"
)

//go:embed locations.yaml
var locationsYAML []byte

type locationFile struct {
	Countries []struct {
		Name     string   `yaml:"name"`
		Demonyms []string `yaml:"demonyms"`
	} `yaml:"countries"`
	Places    []string          `yaml:"places"`
	Overrides map[string]string `yaml:"overrides"`
	Aliases   map[string]string `yaml:"aliases"`
}

// LocationLexicon holds the demonym/alias map, the canonical name set and
// the language pipeline built from them. It is immutable once built.
type LocationLexicon struct {
	adjectives map[string]string
	names      map[string]struct{}
	pipeline   *nlp.Pipeline
}

var (
	lexiconOnce sync.Once
	lexicon     *LocationLexicon
)

// Lexicon returns the process-wide lexicon, building it on first use.
func Lexicon() *LocationLexicon {
	lexiconOnce.Do(func() {
		lex, err := NewLocationLexicon(locationsYAML)
		if err != nil {
			panic(fmt.Sprintf("metadata: embedded location data: %v", err))
		}
		lexicon = lex
	})
	return lexicon
}

// NewLocationLexicon builds a lexicon from YAML location data.
func NewLocationLexicon(data []byte) (*LocationLexicon, error) {
	var file locationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse location data: %w", err)
	}

	lex := &LocationLexicon{
		adjectives: make(map[string]string),
		names:      make(map[string]struct{}),
	}
	var adjectiveKeys, aliasKeys []string

	for _, country := range file.Countries {
		name := normalizeKey(country.Name)
		if name == "" {
			return nil, fmt.Errorf("country entry without name")
		}
		lex.names[name] = struct{}{}
		for _, d := range country.Demonyms {
			d = normalizeKey(d)
			lex.adjectives[d] = name
			adjectiveKeys = append(adjectiveKeys, d)
		}
	}
	for _, place := range file.Places {
		lex.names[normalizeKey(place)] = struct{}{}
	}
	for k, v := range file.Overrides {
		k, v = normalizeKey(k), normalizeKey(v)
		lex.adjectives[k] = v
		lex.names[v] = struct{}{}
		adjectiveKeys = append(adjectiveKeys, k)
	}
	for k, v := range file.Aliases {
		k, v = normalizeKey(k), normalizeKey(v)
		lex.adjectives[k] = v
		lex.names[v] = struct{}{}
		aliasKeys = append(aliasKeys, k)
	}

	lex.pipeline = nlp.New(nlp.Lexicon{
		Adjectives:  adjectiveKeys,
		ProperNouns: aliasKeys,
		Places:      lex.NameSet(),
	})
	return lex, nil
}

// Lookup maps a demonym or alias to its canonical location.
func (l *LocationLexicon) Lookup(word string) (string, bool) {
	v, ok := l.adjectives[normalizeKey(word)]
	return v, ok
}

func (l *LocationLexicon) IsLocationName(name string) bool {
	_, ok := l.names[normalizeKey(name)]
	return ok
}

// AdjectiveMap returns a copy of the demonym/alias map.
func (l *LocationLexicon) AdjectiveMap() map[string]string {
	out := make(map[string]string, len(l.adjectives))
	for k, v := range l.adjectives {
		out[k] = v
	}
	return out
}

// NameSet returns the canonical location names, sorted.
func (l *LocationLexicon) NameSet() []string {
	out := make([]string, 0, len(l.names))
	for n := range l.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (l *LocationLexicon) Pipeline() *nlp.Pipeline {
	return l.pipeline
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
