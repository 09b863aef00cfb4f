// Package gmail provides a client for the Gmail REST API.
//
// Client wraps the Users service of google.golang.org/api/gmail/v1 and
// offers one method per remote call:
//   - Messages: list, get, parallel get, send, modify labels, trash, delete
//   - Drafts: create, list, get, send, delete
//   - Labels and threads
//   - Attachments: list and download
//   - Filters: list, get, create, delete
//
// Every call takes a context, waits on a rate limiter and is retried with
// exponential backoff when the API answers 429 or 5xx. Each call is traced
// as one span and recorded as one metric sample.
//
// Summary and Detail shape messages for JSON output. The plain-text body and
// the attachment list of a Detail come from the payload package.
//
// Example usage:
//
//	client, err := gmail.NewClient(ctx, httpClient, gmail.WithAccount("work"))
//	if err != nil {
//	    return err
//	}
//
//	refs, err := client.ListMessages(ctx, "is:unread", 10)
//	if err != nil {
//	    return err
//	}
package gmail
