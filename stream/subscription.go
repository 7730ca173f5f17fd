package stream

import (
	"fmt"
	"strings"

	"github.com/factiva-io/factiva-analytics-go/internal/config"
)

const subscriptionIDLength = 76

// Subscription identifies one delivery queue attached to a stream instance.
// Consumers point their queue client at the subscription id.
type Subscription struct {
	ID      string
	ShortID string
}

// NewSubscription builds a Subscription from a 76-character subscription id
// or a URI whose trailing path segment is one. An empty id falls back to the
// FACTIVA_SUBSCRIPTIONID environment variable.
func NewSubscription(id string) (Subscription, error) {
	resolved, err := config.Resolve(id, config.EnvSubscriptionID)
	if err != nil {
		return Subscription{}, fmt.Errorf("subscription id: %w", err)
	}

	if idx := strings.LastIndex(resolved, "/"); idx >= 0 {
		resolved = resolved[idx+1:]
	}
	if len(resolved) != subscriptionIDLength {
		return Subscription{}, fmt.Errorf("unexpected subscription id %q: want a %d-character id", resolved, subscriptionIDLength)
	}

	return Subscription{ID: resolved, ShortID: subscriptionShortID(resolved)}, nil
}

// StreamID returns the id of the stream instance this subscription belongs
// to, which is the subscription id without its trailing two tokens.
func (s Subscription) StreamID() string {
	parts := strings.Split(s.ID, "-")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[:len(parts)-2], "-")
}

func (s Subscription) String() string {
	return fmt.Sprintf("Subscription(short_id: %s)", s.ShortID)
}

// subscriptionShortID keeps the last three tokens of a subscription id, which
// identify it uniquely within the account.
func subscriptionShortID(id string) string {
	parts := strings.Split(id, "-")
	if len(parts) < 3 {
		return id
	}
	return strings.Join(parts[len(parts)-3:], "-")
}
