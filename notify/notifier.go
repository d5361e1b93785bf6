package notify

// Notifier delivers a text message to a client's address (a WhatsApp phone
// number in production). Delivery is fire-and-forget from the workflow's
// point of view: callers log and count failures but never fail the
// surrounding operation on them.
type Notifier interface {
	Send(recipient, text string) error
}
