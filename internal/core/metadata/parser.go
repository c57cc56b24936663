package metadata

import (
	"regexp"
	"strings"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
)

// RE2 has no lookaround, so the isolated run is matched with its
// non-digit neighbours and read from the submatch.
var yearPattern = regexp.MustCompile(`(?:^|\D)(\d{4})(?:\D|$)`)

var interestingMarkers = []string{"Decision", "Summons", "Offence", "Infringement", "regulations"}

// Parse extracts metadata from document or query text. Regulation documents
// carry only year and doc type.
func Parse(text string) domain.DocumentMetadata {
	meta := domain.DocumentMetadata{
		Year:    ExtractYear(text),
		DocType: ClassifyDocType(text),
	}
	if meta.DocType == domain.DocTypeRegulation {
		return meta
	}

	if location, ok := ResolveLocation(NormalizeQuery(text)); ok {
		meta.Location = location
	}
	if cars := ExtractCarNumbers(text); len(cars) > 0 {
		meta.CarNum = cars[0]
		meta.AllInvolvedCars = strings.Join(cars, domain.CarListSeparator)
	}
	return meta
}

// ParseFilename runs Parse over a file name with separators turned into
// spaces, e.g. "2024_abu_dhabi_grand_prix_-_infringement_-_car_30".
func ParseFilename(name string) domain.DocumentMetadata {
	name = strings.TrimSuffix(name, ".pdf")
	return Parse(strings.NewReplacer("_", " ", "-", " ").Replace(name))
}

// ExtractYear returns the first 4-digit run not adjacent to other digits.
func ExtractYear(text string) string {
	m := yearPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// ClassifyDocType returns regulation when "driver" is absent and
// "regulations" is present, case-insensitively.
func ClassifyDocType(text string) domain.DocType {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "driver") && strings.Contains(lower, "regulations") {
		return domain.DocTypeRegulation
	}
	return domain.DocTypeDecision
}

// IsInterestingFile reports whether a source file name looks like a
// stewards' decision, summons, offence or regulations document.
func IsInterestingFile(name string) bool {
	for _, marker := range interestingMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
