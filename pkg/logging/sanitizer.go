package logging

import "strings"

// RedactKey masks an API key for logging, keeping just enough to identify
// which key is configured.
func RedactKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// RedactEndpoint strips embedded userinfo from an endpoint URL before it is
// logged.
func RedactEndpoint(endpoint string) string {
	at := strings.LastIndex(endpoint, "@")
	if at == -1 {
		return endpoint
	}
	scheme := ""
	rest := endpoint
	if i := strings.Index(endpoint, "://"); i != -1 {
		scheme = endpoint[:i+3]
		rest = endpoint[i+3:]
		at = strings.LastIndex(rest, "@")
		if at == -1 {
			return endpoint
		}
	}
	return scheme + "****@" + rest[at+1:]
}
