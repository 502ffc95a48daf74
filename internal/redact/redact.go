// Package redact implements a three-layer text sanitizer: secret
// patterns, PII patterns, and Shannon-entropy scoring of high-entropy
// substrings. All pattern tables are compiled once at package init.
package redact

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// secretPlaceholder and piiPlaceholder are distinct: a secret match and
// a PII match must be distinguishable in the redacted output, not
// collapsed into one generic token.
const (
	secretPlaceholder  = "[REDACTED]"
	piiPlaceholder     = "[REDACTED-PII]"
	entropyPlaceholder = "[REDACTED]"
)

type patternRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// secretPatterns catches common key/token/credential shapes and known
// provider key prefixes.
var secretPatterns = []patternRule{
	{regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\s,;"']+)`), "${1}" + secretPlaceholder},
	{regexp.MustCompile(`(?i)(secret\s*[:=]\s*)([^\s,;"']+)`), "${1}" + secretPlaceholder},
	{regexp.MustCompile(`(?i)(token\s*[:=]\s*)([^\s,;"']+)`), "${1}" + secretPlaceholder},
	{regexp.MustCompile(`(?i)(password\s*[:=]\s*)([^\s,;"']+)`), "${1}" + secretPlaceholder},
	{regexp.MustCompile(`(?i)(credential\s*[:=]\s*)([^\s,;"']+)`), "${1}" + secretPlaceholder},
	{regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]+`), "bearer " + secretPlaceholder},
	{regexp.MustCompile(`\b(sk|pk|ak|rk|ghp|gho|ghu|ghs|ghr)[_-][A-Za-z0-9]{16,}\b`), secretPlaceholder},
	{regexp.MustCompile(`AKIA[0-9A-Z]{16}`), secretPlaceholder},
	{regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`), secretPlaceholder}, // JWT triplet
}

var uuidPattern = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)

// piiPatterns catches shapes that identify a person, independent of the
// key/value framing secret patterns look for.
var piiPatterns = []patternRule{
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), piiPlaceholder},
	{regexp.MustCompile(`\b\d{3}[-.\s]\d{3}[-.\s]\d{4}\b`), piiPlaceholder},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), piiPlaceholder}, // SSN-shaped
	{regexp.MustCompile(`\b(?:\d[ -]?){16}\b`), piiPlaceholder},   // 16-digit card
}

var publicIPv4 = regexp.MustCompile(`\b(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})\b`)

func isPrivateIPv4(octets [4]int) bool {
	switch {
	case octets[0] == 10:
		return true
	case octets[0] == 127:
		return true
	case octets[0] == 192 && octets[1] == 168:
		return true
	case octets[0] == 172 && octets[1] >= 16 && octets[1] <= 31:
		return true
	}
	return false
}

var entropyCandidate = regexp.MustCompile(`[A-Za-z0-9+/=_-]{20,}`)

var (
	hexPattern   = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	urlPattern   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)
	pathPattern  = regexp.MustCompile(`[/\\]`)
	base64Strict = regexp.MustCompile(`^(?:[A-Za-z0-9+/]{4})*(?:[A-Za-z0-9+/]{2}==|[A-Za-z0-9+/]{3}=)?$`)
)

// shannonEntropy returns the Shannon entropy, in bits per character, of s.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int, len(s))
	for _, r := range s {
		counts[r]++
	}
	n := float64(len(s))
	var entropy float64
	for _, c := range counts {
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// entropyAllowlisted reports whether a high-entropy candidate should be
// left alone despite scoring above the threshold: hex hashes, UUIDs,
// strings containing a path separator or a URL scheme, padded base64
// blobs, and numbers. Bare alphanumeric identifiers and unpadded base64
// are not allowlisted and are redacted when their entropy is high enough.
func entropyAllowlisted(s string) bool {
	if uuidPattern.MatchString(s) {
		return true
	}
	if hexPattern.MatchString(s) {
		return true
	}
	if urlPattern.MatchString(s) || pathPattern.MatchString(s) {
		return true
	}
	if strings.HasSuffix(s, "=") && base64Strict.MatchString(s) && !strings.ContainsAny(s, "-_") {
		// padded base64 of arbitrary (non-secret) data is common enough
		// in logs that entropy alone over-fires on it; the padding
		// requirement keeps bare high-entropy alnum tokens redactable
		return true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	return false
}

const entropyThreshold = 4.5

func redactSecrets(text string) string {
	for _, r := range secretPatterns {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}
	return text
}

func redactPII(text string) string {
	// UUIDs are placeheld before the PII pass so their digit groups do
	// not trip the phone/SSN/card patterns, then restored afterward.
	uuids := uuidPattern.FindAllString(text, -1)
	for i, u := range uuids {
		text = strings.Replace(text, u, uuidToken(i), 1)
	}

	text = publicIPv4.ReplaceAllStringFunc(text, func(m string) string {
		groups := publicIPv4.FindStringSubmatch(m)
		var octets [4]int
		ok := true
		for i := 0; i < 4; i++ {
			v, err := strconv.Atoi(groups[i+1])
			if err != nil || v > 255 {
				ok = false
				break
			}
			octets[i] = v
		}
		if !ok {
			return m
		}
		if isPrivateIPv4(octets) {
			return m
		}
		return piiPlaceholder
	})

	for _, r := range piiPatterns {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}

	for i, u := range uuids {
		text = strings.Replace(text, uuidToken(i), u, 1)
	}
	return text
}

func uuidToken(i int) string {
	return "\x00UUID" + strconv.Itoa(i) + "\x00"
}

func redactEntropy(text string) string {
	return entropyCandidate.ReplaceAllStringFunc(text, func(candidate string) string {
		if entropyAllowlisted(candidate) {
			return candidate
		}
		if shannonEntropy(candidate) >= entropyThreshold {
			return entropyPlaceholder
		}
		return candidate
	})
}

// Full applies all three layers: secrets, PII, entropy. Used for
// ingestion-path text (observation titles/content, reasoning, consensus).
func Full(text string) string {
	text = redactSecrets(text)
	text = redactPII(text)
	text = redactEntropy(text)
	return text
}

// AssemblyOutput applies the same three layers to text already pulled
// from the store. Assembly must not re-leak what ingestion caught,
// because the store may contain un-redacted legacy rows from before a
// pattern was added, so this is deliberately not a cheaper pass-through.
func AssemblyOutput(text string) string {
	return Full(text)
}
