package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLocationForEveryLexiconKey(t *testing.T) {
	for key, want := range Lexicon().AdjectiveMap() {
		got, ok := ResolveLocation("This is a " + key + " car")
		require.Truef(t, ok, "no location for key %q", key)
		assert.Equalf(t, want, got, "key %q", key)
	}
}

func TestResolveLocation(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{name: "demonym", text: "This is Japanese car", want: "japan", ok: true},
		{name: "venue alias", text: "2019 Sakhir Grand Prix", want: "bahrain", ok: true},
		{name: "region alias", text: "the 2021 emilia romagna grand prix", want: "italy", ok: true},
		{name: "venue name", text: "is the infringement of car 30 in 2024 abu dhabi grand prix fair", want: "abu dhabi", ok: true},
		{name: "country name", text: "penalty at the race in hungary", want: "hungary", ok: true},
		{name: "multi-word alias", text: "track limits at the las vegas street circuit", want: "united states", ok: true},
		{name: "grammar fallback", text: "the 2020 anniversary gp", want: "anniversary", ok: true},
		{name: "grammar fallback prefers shortest", text: "seventieth anniversary grand prix", want: "anniversary", ok: true},
		{name: "nothing", text: "car 44 was given a five second penalty", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveLocation(tc.text)
			require.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveLocationPrefersNameSetMember(t *testing.T) {
	got, ok := ResolveLocation("british driver at the italian grand prix in monaco")
	require.True(t, ok)
	// GPE spans are discovered first and monaco is a canonical name.
	assert.Equal(t, "monaco", got)
}

func TestDomainEntities(t *testing.T) {
	assert.Contains(t, DomainEntities("2019 Sakhir Grand Prix"), "sakhir")
	assert.Equal(t, []string{"seventieth anniversary", "anniversary"}, DomainEntities("seventieth anniversary grand prix"))
	assert.Empty(t, DomainEntities("no race named here"))
}

func TestLexiconNameSetCoversMappedLocations(t *testing.T) {
	lex := Lexicon()
	for key, location := range lex.AdjectiveMap() {
		assert.Truef(t, lex.IsLocationName(location), "%q maps to %q outside the name set", key, location)
	}
	assert.True(t, lex.IsLocationName("abu dhabi"))
	mapped, ok := lex.Lookup("Emilia")
	require.True(t, ok)
	assert.Equal(t, "italy", mapped)
}

func TestNewLocationLexiconRejectsBrokenData(t *testing.T) {
	_, err := NewLocationLexicon([]byte("countries: [oops"))
	require.Error(t, err)

	_, err = NewLocationLexicon([]byte("countries:\n  - {demonyms: [x]}\n"))
	require.Error(t, err)
}
