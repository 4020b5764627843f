// Package ledger provides the Google Sheets append/undo ledger writer.
package ledger

import "fmt"

// Config holds the configuration for the Google Sheets ledger.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SheetName          string
	HistorySize        int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SheetName:   "Sheet1",
		HistorySize: 20,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("no authentication method configured")
	}

	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("multiple authentication methods configured; use either OAuth2 or service account")
	}

	if c.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet ID is required")
	}

	if c.SheetName == "" {
		return fmt.Errorf("sheet name is required")
	}

	if c.HistorySize <= 0 {
		return fmt.Errorf("history size must be positive")
	}

	return nil
}
