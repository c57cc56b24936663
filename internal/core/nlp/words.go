package nlp

var closedClass = map[string]POS{
	"a": DET, "an": DET, "the": DET, "this": DET, "that": DET, "these": DET, "those": DET,
	"each": DET, "every": DET, "any": DET, "some": DET, "no": DET, "all": DET, "another": DET,

	"of": ADP, "in": ADP, "on": ADP, "at": ADP, "by": ADP, "for": ADP, "with": ADP,
	"from": ADP, "into": ADP, "during": ADP, "after": ADP, "before": ADP, "under": ADP,
	"over": ADP, "between": ADP, "against": ADP, "about": ADP, "through": ADP, "per": ADP,
	"since": ADP, "without": ADP, "within": ADP, "towards": ADP, "toward": ADP, "via": ADP,

	"i": PRON, "you": PRON, "he": PRON, "she": PRON, "it": PRON, "we": PRON, "they": PRON,
	"me": PRON, "him": PRON, "her": PRON, "us": PRON, "them": PRON, "what": PRON,
	"which": PRON, "who": PRON, "whom": PRON, "its": PRON, "their": PRON, "his": PRON,
	"my": PRON, "our": PRON, "your": PRON,

	"is": AUX, "was": AUX, "were": AUX, "are": AUX, "be": AUX, "been": AUX, "being": AUX,
	"am": AUX, "do": AUX, "does": AUX, "did": AUX, "has": AUX, "have": AUX, "had": AUX,
	"will": AUX, "would": AUX, "should": AUX, "could": AUX, "can": AUX, "may": AUX,
	"might": AUX, "must": AUX, "shall": AUX,

	"and": CCONJ, "or": CCONJ, "but": CCONJ, "nor": CCONJ,

	"not": PART, "to": PART, "s": PART,

	"very": ADV, "too": ADV, "so": ADV, "also": ADV, "why": ADV, "how": ADV,
	"when": ADV, "where": ADV, "then": ADV, "there": ADV, "here": ADV, "again": ADV,
}

var stopWords = map[string]struct{}{}

func init() {
	for w := range closedClass {
		stopWords[w] = struct{}{}
	}
	for _, w := range []string{
		"as", "if", "than", "up", "down", "out", "off", "just", "only", "own", "same",
		"such", "both", "few", "more", "most", "other", "once", "further", "whether",
		"while", "because", "until", "against", "above", "below", "again", "yet",
		"whose", "whatever", "itself", "themselves", "himself", "herself", "ourselves",
		"yourself", "myself", "please", "really", "well", "even", "ever", "never",
		"much", "many", "none", "nothing", "something", "anything", "everything",
		"one", "two", "three", "first", "last", "next", "make", "made", "get", "got",
		"give", "go", "see", "say", "said", "put", "take", "show", "call", "become",
		"became", "seem", "seems", "either", "neither", "however", "therefore",
		"thus", "though", "although", "otherwise", "unless", "beside", "besides",
		"around", "across", "along", "among", "amongst", "behind", "beyond", "upon",
		"onto", "throughout", "thereby", "hence", "whereas", "whereby", "already",
		"still", "now", "often", "always", "sometimes", "anyway", "rather", "quite",
		"regarding", "n't", "'s", "'re", "'ll", "'ve", "'d", "'m",
	} {
		stopWords[w] = struct{}{}
	}
}

func isStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}
