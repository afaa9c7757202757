package cache

// Prefix namespaces one family of keys.
type Prefix string

const (
	// SentMessages maps a message id to the time it was handed off.
	SentMessages Prefix = "sent_messages"
	// SeenMessages marks inbound message ids already delivered.
	SeenMessages Prefix = "seen_messages"
	// Delivered counts successful sends per channel type.
	Delivered Prefix = "delivered"
)

// Key joins the prefix and id with a colon.
func (p Prefix) Key(id string) string {
	return string(p) + ":" + id
}
