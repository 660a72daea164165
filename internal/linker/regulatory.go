package linker

import "regexp"

// regulatoryPatterns matches mentions of regulatory bodies (central
// banks, ministries, regulators) that must be classified as REGULATORY
// rather than resolved as companies (spec.md §4.D).
var regulatoryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bcentral\s+bank\b`),
	regexp.MustCompile(`(?i)\bbank\s+of\s+russia\b`),
	regexp.MustCompile(`(?i)\bcbr\b`),
	regexp.MustCompile(`(?i)\bminist(ry|ère)\s+of\s+(finance|economy|energy|industry)\b`),
	regexp.MustCompile(`(?i)\bsecurities\s+(and\s+exchange\s+)?commission\b`),
	regexp.MustCompile(`(?i)\bfederal\s+antimonopoly\s+service\b`),
	regexp.MustCompile(`(?i)\bfas\b`),
	regexp.MustCompile(`(?i)\bregulator\b`),
	regexp.MustCompile(`(?i)\btreasury\b`),
}

// IsRegulatory reports whether mention names a regulatory body rather
// than a company. The caller must check this before calling
// Linker.Resolve, since regulatory mentions are never companies.
func IsRegulatory(mention string) bool {
	for _, p := range regulatoryPatterns {
		if p.MatchString(mention) {
			return true
		}
	}
	return false
}
