package repositories

import "strings"

// AuthorizationHeader picks the scheme for an operator credential. Fine-grained
// tokens ("github_pat_...") and long tokens go as Bearer, classic ones as token.
func AuthorizationHeader(credential string) string {
	cred := strings.TrimSpace(credential)
	if low := strings.ToLower(cred); strings.HasPrefix(low, "token ") || strings.HasPrefix(low, "bearer ") {
		cred = strings.TrimSpace(cred[strings.IndexByte(cred, ' ')+1:])
	}
	if strings.HasPrefix(cred, "gith") || len(cred) > 50 {
		return "Bearer " + cred
	}
	return "token " + cred
}
