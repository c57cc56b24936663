package metadata

import "regexp"

var (
	singleCarPattern = regexp.MustCompile(`(?i)\bcar\b\s*(?:no\.?\s*)?(\d+)`)
	carListPattern   = regexp.MustCompile(`(?i)\bcars?\s+(\d+(?:\s*,\s*\d+)*\s*,?\s*and\s+\d+)`)
	digitsPattern    = regexp.MustCompile(`\d+`)
)

// ExtractCarNumbers returns every car number referenced as "Car 30",
// "Car No. 30" or "Cars 22, 81 and 4". Single-car matches come first, then
// list matches. Duplicates are kept. The result is never nil.
func ExtractCarNumbers(text string) []string {
	out := []string{}
	for _, m := range singleCarPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	for _, m := range carListPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, digitsPattern.FindAllString(m[1], -1)...)
	}
	return out
}
