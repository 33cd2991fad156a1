// ABOUTME: OAuth configuration for the Google Calendar connect flow
// ABOUTME: Builds the oauth2 config used for authorization and token refresh
package sync

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// NewOAuthConfig creates the oauth2 config for Google Calendar access.
// Offline access is requested so the provider issues a refresh token.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar.readonly",
		},
		Endpoint: google.Endpoint,
	}
}
