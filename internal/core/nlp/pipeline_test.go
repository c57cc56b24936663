package nlp

import "testing"

func testPipeline() *Pipeline {
	return New(Lexicon{
		Adjectives:  []string{"japanese", "saudi arabian"},
		ProperNouns: []string{"sakhir", "las vegas"},
		Places:      []string{"japan", "abu dhabi", "saudi arabia"},
	})
}

func TestProcessMergesLexiconPhrases(t *testing.T) {
	doc := testPipeline().Process("The 2023 Las Vegas GP and the Abu Dhabi race")

	var texts []string
	for _, tok := range doc.Tokens {
		texts = append(texts, tok.Text)
	}
	want := []string{"the", "2023", "las vegas", "gp", "and", "the", "abu dhabi", "race"}
	if len(texts) != len(want) {
		t.Fatalf("expected tokens %v, got %v", want, texts)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("token %d: expected %q, got %q", i, want[i], texts[i])
		}
	}
	if doc.Tokens[1].POS != NUM {
		t.Fatalf("expected NUM for year, got %s", doc.Tokens[1].POS)
	}
	if doc.Tokens[2].POS != PROPN {
		t.Fatalf("expected PROPN for merged venue, got %s", doc.Tokens[2].POS)
	}
	if len(doc.Entities) != 1 || doc.Entities[0].Text != "abu dhabi" || doc.Entities[0].Label != LabelGPE {
		t.Fatalf("expected single GPE span for abu dhabi, got %+v", doc.Entities)
	}
}

func TestProcessAttachesAdjectiveToNextNoun(t *testing.T) {
	doc := testPipeline().Process("this is a fast Japanese car")

	adj := doc.Tokens[4]
	if adj.Text != "japanese" || adj.POS != ADJ {
		t.Fatalf("expected japanese ADJ, got %+v", adj)
	}
	if adj.Dep != DepAmod || doc.Tokens[adj.Head].Text != "car" {
		t.Fatalf("expected amod attachment to car, got %+v", adj)
	}
	if !doc.Tokens[0].IsStop || doc.Tokens[5].IsStop {
		t.Fatalf("unexpected stop flags: %+v", doc.Tokens)
	}
}

func TestProcessTagsPunctuationAndUnknownWords(t *testing.T) {
	doc := testPipeline().Process("car no. 30, stewards")

	wantPOS := []POS{NOUN, DET, PUNCT, NUM, PUNCT, NOUN}
	if len(doc.Tokens) != len(wantPOS) {
		t.Fatalf("expected %d tokens, got %+v", len(wantPOS), doc.Tokens)
	}
	for i, pos := range wantPOS {
		if doc.Tokens[i].POS != pos {
			t.Fatalf("token %q: expected %s, got %s", doc.Tokens[i].Text, pos, doc.Tokens[i].POS)
		}
	}
	if doc.Tokens[3].IsAlpha {
		t.Fatalf("expected numeric token to be non-alpha")
	}
}
