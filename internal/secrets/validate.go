package secrets

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MinAdminTokenLength is the shortest admin token accepted at startup.
const MinAdminTokenLength = 16

// ValidationError represents a validation failure for required secrets.
type ValidationError struct {
	Empty []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("empty values for required environment variables: %s", strings.Join(e.Empty, ", "))
}

// ValidateRequired checks that all required secrets are non-empty.
func ValidateRequired(secrets map[string]string) error {
	var empty []string
	for key, value := range secrets {
		if strings.TrimSpace(value) == "" {
			empty = append(empty, key)
		}
	}
	if len(empty) == 0 {
		return nil
	}
	sort.Strings(empty)
	return &ValidationError{Empty: empty}
}

// ValidatePrivateKey checks that key is a PEM encoded RSA private key in
// PKCS#8 or PKCS#1 form, as found in Google service account files.
func ValidatePrivateKey(key string) error {
	block, _ := pem.Decode([]byte(key))
	if block == nil {
		return errors.New("private key is not PEM encoded")
	}
	if _, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return nil
	}
	if _, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return nil
	}
	return fmt.Errorf("unsupported private key block %q", block.Type)
}

// ValidateAdminToken rejects tokens that are too short to resist guessing.
// An empty token is valid and disables the admin endpoints.
func ValidateAdminToken(token string) error {
	if token == "" {
		return nil
	}
	if len(token) < MinAdminTokenLength {
		return fmt.Errorf("ADMIN_API_TOKEN must be at least %d characters", MinAdminTokenLength)
	}
	return nil
}
