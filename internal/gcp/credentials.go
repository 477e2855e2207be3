// Package gcp holds helpers shared by the Google Cloud clients.
package gcp

import (
	"errors"
	"fmt"
	"os"

	"google.golang.org/api/option"
)

// ErrNoCredentials is returned when neither credential variable is set.
var ErrNoCredentials = errors.New("neither GOOGLE_CREDENTIALS nor GOOGLE_APPLICATION_CREDENTIALS is set")

// ClientOptions resolves credentials from the environment: inline
// GOOGLE_CREDENTIALS JSON first, then a GOOGLE_APPLICATION_CREDENTIALS file.
// It returns nil when neither is set so clients fall back to Application
// Default Credentials.
func ClientOptions() []option.ClientOption {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}
	}
	return nil
}

// HasCredentials reports whether explicit credentials are configured.
func HasCredentials() bool {
	return len(ClientOptions()) > 0
}

// CredentialsJSON returns the raw service account JSON from GOOGLE_CREDENTIALS
// or the file named by GOOGLE_APPLICATION_CREDENTIALS.
func CredentialsJSON() ([]byte, error) {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []byte(credJSON), nil
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		data, err := os.ReadFile(credFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return data, nil
	}
	return nil, ErrNoCredentials
}
