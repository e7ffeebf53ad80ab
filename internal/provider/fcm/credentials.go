// Package fcm implements the push provider on top of Firebase Cloud Messaging.
package fcm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Credential errors.
var (
	ErrMissingCredentials = errors.New("missing required Firebase environment variables")
	ErrInvalidPrivateKey  = errors.New("invalid private key format")
	ErrMissingProjectID   = errors.New("service account has no project_id")
)

// ServiceAccount is the shape of a Google service-account key.
type ServiceAccount struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id,omitempty"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id,omitempty"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url,omitempty"`
	UniverseDomain          string `json:"universe_domain"`
}

// CredentialSource selects where service-account credentials come from.
// The first non-empty source wins: File, then JSON, then Account.
type CredentialSource struct {
	// File is a path to a service-account JSON key.
	File string

	// JSON is an inline service-account JSON key.
	JSON string

	// Account is assembled from discrete environment variables.
	Account ServiceAccount
}

// CredentialSourceFromEnv reads the credential source from environment variables.
func CredentialSourceFromEnv() CredentialSource {
	return CredentialSource{
		File: os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		JSON: os.Getenv("FIREBASE_CREDENTIALS_JSON"),
		Account: ServiceAccount{
			Type:                    getEnv("TYPE", "service_account"),
			ProjectID:               os.Getenv("PROJECT_ID"),
			PrivateKeyID:            os.Getenv("PRIVATE_KEY_ID"),
			PrivateKey:              strings.ReplaceAll(os.Getenv("PRIVATE_KEY"), `\n`, "\n"),
			ClientEmail:             os.Getenv("CLIENT_EMAIL"),
			ClientID:                os.Getenv("CLIENT_ID"),
			AuthURI:                 getEnv("AUTH_URI", "https://accounts.google.com/o/oauth2/auth"),
			TokenURI:                getEnv("TOKEN_URI", "https://oauth2.googleapis.com/token"),
			AuthProviderX509CertURL: getEnv("AUTH_PROVIDER", "https://www.googleapis.com/oauth2/v1/certs"),
			ClientX509CertURL:       os.Getenv("CLIENT_URL"),
			UniverseDomain:          getEnv("UNIVERSE_DOMAIN", "googleapis.com"),
		},
	}
}

// Describe names the active source for logging, without secrets.
func (s CredentialSource) Describe() string {
	switch {
	case s.File != "":
		return "file"
	case s.JSON != "":
		return "json"
	default:
		return "env"
	}
}

// Resolve returns the service-account JSON and its project ID.
func (s CredentialSource) Resolve() ([]byte, string, error) {
	switch {
	case s.File != "":
		raw, err := os.ReadFile(s.File)
		if err != nil {
			return nil, "", fmt.Errorf("reading credentials file: %w", err)
		}
		return parseServiceAccount(raw)
	case s.JSON != "":
		return parseServiceAccount([]byte(s.JSON))
	default:
		if err := s.Account.validate(); err != nil {
			return nil, "", err
		}
		raw, err := json.Marshal(s.Account)
		if err != nil {
			return nil, "", fmt.Errorf("encoding service account: %w", err)
		}
		return raw, s.Account.ProjectID, nil
	}
}

func (a ServiceAccount) validate() error {
	var missing []string
	if a.ProjectID == "" {
		missing = append(missing, "PROJECT_ID")
	}
	if a.PrivateKey == "" {
		missing = append(missing, "PRIVATE_KEY")
	}
	if a.ClientEmail == "" {
		missing = append(missing, "CLIENT_EMAIL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	if !strings.Contains(a.PrivateKey, "BEGIN PRIVATE KEY") {
		return ErrInvalidPrivateKey
	}
	return nil
}

func parseServiceAccount(raw []byte) ([]byte, string, error) {
	var account ServiceAccount
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, "", fmt.Errorf("parsing service account: %w", err)
	}
	if account.ProjectID == "" {
		return nil, "", ErrMissingProjectID
	}
	if !strings.Contains(account.PrivateKey, "BEGIN PRIVATE KEY") {
		return nil, "", ErrInvalidPrivateKey
	}
	return raw, account.ProjectID, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
