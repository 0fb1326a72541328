package stream

import (
	"context"
	"fmt"
)

// MessagePager owns message identity across pagination boundaries. It is
// the only component that creates new message identities; everything else
// edits an existing one.
type MessagePager struct {
	transport Transport
}

// NewMessagePager creates a pager over transport.
func NewMessagePager(transport Transport) *MessagePager {
	return &MessagePager{transport: transport}
}

// OpenFollowup sends a new message seeded with seedText (typically just
// the cursor marker) and returns its identifier, which becomes the new
// active message.
func (p *MessagePager) OpenFollowup(ctx context.Context, chatID int64, seedText string) (int, error) {
	id, err := p.transport.SendMessage(ctx, chatID, seedText, RenderPlain, nil)
	if err != nil {
		return 0, fmt.Errorf("stream: open followup message: %w", err)
	}
	return id, nil
}
