package secrets

import (
	"net/url"
	"strings"
)

// Mask returns a masked version of a secret string for safe logging.
// Secrets longer than 8 characters keep their first 4, shorter ones become "***".
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..."
}

// MaskEmail keeps the domain of a service account address and the first
// character of its local part.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return Mask(email)
	}
	return local[:1] + "***@" + domain
}

// MaskURL redacts the password and query string of a URL, which is where
// stub endpoints tend to carry credentials.
func MaskURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	if u.RawQuery != "" {
		u.RawQuery = "***"
	}
	out := u.String()
	// url.String escapes the placeholder in userinfo
	return strings.Replace(out, "%2A%2A%2A@", "***@", 1)
}
