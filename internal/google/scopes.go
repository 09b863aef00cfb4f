package google

import (
	gmail "google.golang.org/api/gmail/v1"
)

// DefaultOAuthScopes are the Gmail scopes every command needs.
//
// The scopes provide access to:
//   - Gmail: read, compose drafts, send
//   - Gmail: label changes, archive and trash (modify)
//   - Gmail: filter settings
var DefaultOAuthScopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailComposeScope,
	gmail.GmailSendScope,
	gmail.GmailModifyScope,
	gmail.GmailSettingsBasicScope,
}

// FullMailboxScope grants permanent deletion. It is only requested when
// explicitly enabled.
const FullMailboxScope = gmail.MailGoogleComScope

// Scopes returns the scopes to request, with the full mailbox scope added
// when full is set.
func Scopes(full bool) []string {
	scopes := append([]string(nil), DefaultOAuthScopes...)
	if full {
		scopes = append(scopes, FullMailboxScope)
	}
	return scopes
}
