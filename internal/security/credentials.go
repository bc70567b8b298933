package security

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier checks HTTP Basic credentials against the single admin identity.
type CredentialVerifier struct {
	username     string
	password     string
	passwordHash []byte
}

// NewCredentialVerifier builds a verifier. When passwordHash (bcrypt) is set it takes
// precedence over the plain password. With neither configured every check fails.
func NewCredentialVerifier(username, password, passwordHash string) *CredentialVerifier {
	v := &CredentialVerifier{
		username: username,
		password: password,
	}
	if passwordHash != "" {
		v.passwordHash = []byte(passwordHash)
	}
	return v
}

// VerifyBasic validates an Authorization header value and returns the username on success.
// All failures look the same to the caller.
func (v *CredentialVerifier) VerifyBasic(authorization string) (string, bool) {
	username, password, ok := ParseBasicAuth(authorization)
	if !ok {
		return "", false
	}
	if !v.Verify(username, password) {
		return "", false
	}
	return username, true
}

// Verify compares a username/password pair against the configured identity.
func (v *CredentialVerifier) Verify(username, password string) bool {
	if v.username == "" || (v.password == "" && len(v.passwordHash) == 0) {
		return false
	}

	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) == 1

	var passMatch bool
	if len(v.passwordHash) > 0 {
		passMatch = bcrypt.CompareHashAndPassword(v.passwordHash, []byte(password)) == nil
	} else {
		passMatch = subtle.ConstantTimeCompare([]byte(password), []byte(v.password)) == 1
	}

	return userMatch && passMatch
}

// ParseBasicAuth decodes "Basic base64(username:password)". The password may contain colons.
func ParseBasicAuth(authorization string) (username, password string, ok bool) {
	scheme, credentials, found := strings.Cut(authorization, " ")
	if !found || scheme != "Basic" || credentials == "" {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(credentials))
	if err != nil {
		return "", "", false
	}

	username, password, ok = strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", false
	}
	return username, password, true
}
