// Package urlextract finds web links inside free text and derives the host
// each one belongs to. Matching is a discovery heuristic, not validation:
// the scan grammar is permissive and the host check that follows is strict.
package urlextract

import (
	"regexp"
	"strconv"
	"strings"
)

// Match is one discovered link. URL has its scheme and host lower-cased;
// userinfo, path and query are kept as written.
type Match struct {
	URL    string
	Domain string
}

var (
	scanPattern = regexp.MustCompile(`(?i)\b(?:https?|s?ftp)://` +
		`(?:[a-z0-9._~%!$&'*+,;=-]+(?::[a-z0-9._~%!$&'*+,;=-]*)?@)?` +
		`[a-z0-9](?:[a-z0-9.-]*[a-z0-9])?` +
		`(?::[0-9]{1,5})?` +
		`(?:/[^\s?#<>"'\x60]*)?` +
		`(?:\?[^\s#<>"'\x60]*)?`)

	hostPattern = regexp.MustCompile(`(?i)^(https?|s?ftp)://` +
		`([^@/?#\s]+@)?` +
		`((?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,6}|(?:[0-9]{1,3}\.){3}[0-9]{1,3})` +
		`(?::[0-9]{1,5})?` +
		`(?:[/?#]|$)`)

	ipv4Pattern = regexp.MustCompile(`^(?:[0-9]{1,3}\.){3}[0-9]{1,3}$`)
)

// Extract returns the links found in text in order of first appearance,
// de-duplicated on (domain, url). Candidates whose host cannot be derived are dropped.
func Extract(text string) []Match {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	raw := scanPattern.FindAllString(text, -1)
	if len(raw) == 0 {
		return nil
	}
	out := make([]Match, 0, len(raw))
	seen := make(map[Match]struct{}, len(raw))
	for _, candidate := range raw {
		m, ok := Normalize(candidate)
		if !ok {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// ExtractPtr is Extract for nullable columns.
func ExtractPtr(text *string) []Match {
	if text == nil {
		return nil
	}
	return Extract(*text)
}

// Normalize trims trailing sentence punctuation from a single candidate link,
// runs the anchored host match and lower-cases scheme and host.
func Normalize(candidate string) (Match, bool) {
	candidate = trimTrailing(strings.TrimSpace(candidate))
	loc := hostPattern.FindStringSubmatchIndex(candidate)
	if loc == nil {
		return Match{}, false
	}
	scheme := strings.ToLower(candidate[loc[2]:loc[3]])
	userinfo := ""
	if loc[4] >= 0 {
		userinfo = candidate[loc[4]:loc[5]]
	}
	host := strings.ToLower(candidate[loc[6]:loc[7]])
	if ipv4Pattern.MatchString(host) && !validIPv4(host) {
		return Match{}, false
	}
	return Match{
		URL:    scheme + "://" + userinfo + host + candidate[loc[7]:],
		Domain: host,
	}, true
}

// Domain returns just the host of a link, or false when none can be derived.
func Domain(candidate string) (string, bool) {
	m, ok := Normalize(candidate)
	if !ok {
		return "", false
	}
	return m.Domain, true
}

func trimTrailing(s string) string {
	for len(s) > 0 {
		last := s[len(s)-1]
		switch {
		case strings.IndexByte(".,;:!?", last) >= 0:
			s = s[:len(s)-1]
		case last == ')' && strings.Count(s, "(") < strings.Count(s, ")"):
			s = s[:len(s)-1]
		default:
			return s
		}
	}
	return s
}

func validIPv4(host string) bool {
	for _, part := range strings.Split(host, ".") {
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}
