package transport

import "context"

// Account identifies a fediverse account as seen in notifications.
type Account struct {
	ID          string
	Acct        string // webfinger-style handle without the leading @
	DisplayName string
}

// Status is a post. Content is raw HTML as delivered by the server;
// use StripHTML before matching command patterns.
type Status struct {
	ID          string
	InReplyToID string // empty when the status is not a reply
	Account     Account
	Content     string
	Visibility  string
}

// Event is an inbound notification. The pipeline only acts on mentions;
// every other type is ignored input.
type Event struct {
	Type   string // "mention", "follow", ...
	Status *Status
}

const EventMention = "mention"

// Adapter abstracts the social network: a notification source plus a
// send-message sink and the couple of lookups the handlers need.
type Adapter interface {
	// Stream delivers notifications to out until ctx is canceled or the
	// stream breaks; a broken stream returns an error so the caller can
	// restart with backoff.
	Stream(ctx context.Context, out chan<- Event) error

	// Me returns the authenticated account.
	Me(ctx context.Context) (Account, error)

	// GetStatus fetches a single status by id (used for reply-chain walking).
	GetStatus(ctx context.Context, id string) (*Status, error)

	// PostReply publishes text as a reply to inReplyTo and returns the new
	// status id.
	PostReply(ctx context.Context, inReplyTo, visibility, text string) (string, error)
}
