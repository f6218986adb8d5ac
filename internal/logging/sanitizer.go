package logging

import (
	"regexp"
)

// Sanitizer redacts credentials from log messages.
type Sanitizer struct {
	patterns []*regexp.Regexp
	redacted string
}

// NewSanitizer creates a sanitizer with default patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultPatterns(),
		redacted: "[REDACTED]",
	}
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// GitHub PAT (classic and fine-grained)
		`ghp_[A-Za-z0-9]{36}`,
		`github_pat_[A-Za-z0-9_]{22,}`,
		// GitHub OAuth
		`gho_[A-Za-z0-9]{36}`,
		// GitHub App user/installation tokens (GITHUB_TOKEN in Actions is ghs_)
		`ghu_[A-Za-z0-9]{36}`,
		`ghs_[A-Za-z0-9]{36}`,
		// Generic Bearer / token authorization headers
		`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`,
		`(?i)token\s+[a-zA-Z0-9._-]{20,}`,
		// Generic tokens in key/value form
		`(?i)token["'\s:=]+[a-zA-Z0-9_-]{20,}`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Sanitize redacts sensitive information from a string.
func (s *Sanitizer) Sanitize(input string) string {
	result := input
	for _, pattern := range s.patterns {
		result = pattern.ReplaceAllString(result, s.redacted)
	}
	return result
}

// AddPattern adds a custom pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}

// AddLiteral redacts an exact secret value, such as the configured token.
func (s *Sanitizer) AddLiteral(secret string) {
	if len(secret) < 4 {
		return
	}
	s.patterns = append(s.patterns, regexp.MustCompile(regexp.QuoteMeta(secret)))
}
