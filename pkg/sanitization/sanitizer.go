package sanitization

import "regexp"

type (
	Sanitizer struct {
		rules     []Rule
		maxLength int
	}

	Rule struct {
		Pattern     *regexp.Regexp
		Replacement string
	}
)

// Apply runs every rule in order then truncates to the maximum length, if one is set.
func (s *Sanitizer) Apply(input string) string {
	output := input
	for _, rule := range s.rules {
		output = rule.Pattern.ReplaceAllString(output, rule.Replacement)
	}
	if s.maxLength > 0 && len(output) > s.maxLength {
		output = output[:s.maxLength]
	}
	return output
}

func NewSanitizer(rules []Rule, maxLength int) *Sanitizer {
	return &Sanitizer{rules: rules, maxLength: maxLength}
}
