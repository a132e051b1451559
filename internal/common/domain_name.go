package common

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidDomain is returned when a client website cannot be reduced to a host name
var ErrInvalidDomain = errors.New("invalid domain")

var hostPattern = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)

// NormalizeDomain reduces user input such as "https://www.Example.com/blog" to "example.com"
func NormalizeDomain(input string) (string, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return "", ErrInvalidDomain
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", ErrInvalidDomain
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	host = strings.TrimSuffix(host, ".")
	if !hostPattern.MatchString(host) {
		return "", ErrInvalidDomain
	}
	return host, nil
}

// SearchConsolePropertyFor returns the URL-prefix property for a domain when none was given
func SearchConsolePropertyFor(domain string) string {
	return "https://" + domain + "/"
}
