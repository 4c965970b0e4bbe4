package network

import (
	"encoding/json"
	"fmt"
	"os"
)

// Credentials is the authenticated session used by every platform call.
// It is acquired outside of this package and shared read-only by concurrent sessions.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	SessionID    string `json:"sid"`
	MemberID     int64  `json:"mid"`
}

// Validate ...
func (c Credentials) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("access token is empty")
	}
	if c.SessionID == "" {
		return fmt.Errorf("session id is empty")
	}
	if c.MemberID == 0 {
		return fmt.Errorf("member id is empty")
	}
	return nil
}

// String keeps tokens out of logs.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{mid: %d, sid: %s, access_token: [REDACTED]}", c.MemberID, c.SessionID)
}

// LoadCredentialsFile reads credentials persisted by a previous login.
func LoadCredentialsFile(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read token file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse token file %s: %w", path, err)
	}

	if err := creds.Validate(); err != nil {
		return Credentials{}, fmt.Errorf("invalid token file %s: %w", path, err)
	}

	return creds, nil
}

// SaveCredentialsFile persists credentials so later runs can skip the login.
func SaveCredentialsFile(path string, creds Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}
