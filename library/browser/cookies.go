package browser

import (
	"net/url"
	"os"
	"strings"
)

// CookieRule pre-seeds cookies for pages whose host matches Match.
type CookieRule struct {
	// Domain is the cookie domain, e.g. ".zhihu.com".
	Domain string
	// Match is a host suffix, e.g. "zhihu.com".
	Match string
	// Header is a Cookie header value such as "a=b; c=d".
	Header string
}

// Cookie is a single name/value pair bound to a domain.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// CookieRuleFromEnv builds a rule whose header is read from the environment
// variable env. It returns false when the variable is unset or blank.
func CookieRuleFromEnv(env, domain, match string) (CookieRule, bool) {
	header := strings.TrimSpace(os.Getenv(env))
	if header == "" {
		return CookieRule{}, false
	}
	if match == "" {
		match = strings.TrimPrefix(domain, ".")
	}
	if domain == "" {
		domain = "." + strings.TrimPrefix(match, ".")
	}
	return CookieRule{Domain: domain, Match: match, Header: header}, true
}

// ParseCookieHeader splits "a=b; c=d" into name/value pairs.
// Entries without "=" or with an empty name are skipped.
func ParseCookieHeader(header string) []Cookie {
	var cookies []Cookie
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cookies = append(cookies, Cookie{Name: name, Value: strings.TrimSpace(value)})
	}
	return cookies
}

// CookiesFor returns the cookies of every rule matching target's host.
func CookiesFor(rules []CookieRule, target string) []Cookie {
	u, err := url.Parse(target)
	if err != nil {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil
	}

	var cookies []Cookie
	for _, rule := range rules {
		match := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(rule.Match), "."))
		if match == "" || (host != match && !strings.HasSuffix(host, "."+match)) {
			continue
		}

		domain := rule.Domain
		if domain == "" {
			domain = "." + match
		}
		for _, c := range ParseCookieHeader(rule.Header) {
			c.Domain = domain
			c.Path = "/"
			cookies = append(cookies, c)
		}
	}
	return cookies
}
