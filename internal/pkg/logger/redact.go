package logger

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+'-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail masks one address, keeping the first two characters of the
// local part and the domain: "john.doe@example.com" becomes
// "jo***@example.com". Local parts of two characters or fewer are fully
// masked.
func RedactEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return "***@***"
	}
	local, domain := email[:at], strings.ToLower(email[at+1:])
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}

// redactPIIValue masks addresses in a log value. Address fields (email,
// recipient, to, cc, *_email) are masked even when they hold no recognizable
// address. Other fields only have embedded addresses replaced.
func redactPIIValue(key, val string) string {
	if isAddressKey(key) && !emailPattern.MatchString(val) && strings.TrimSpace(val) != "" {
		return "***@***"
	}
	return emailPattern.ReplaceAllStringFunc(val, RedactEmail)
}

func isAddressKey(key string) bool {
	switch k := strings.ToLower(strings.TrimSpace(key)); k {
	case "email", "recipient", "to", "cc":
		return true
	default:
		return strings.HasSuffix(k, "_email")
	}
}
