// Package google provides OAuth2 authentication and token management for the
// Gmail API.
//
// Client credentials come from the credentials.json file downloaded from the
// Google Cloud Console. Tokens are kept per account in a TokenStore and
// refreshed tokens are written back to it. Login runs the installed-app
// flow with PKCE against a loopback redirect.
package google
