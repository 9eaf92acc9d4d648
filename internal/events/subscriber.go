package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// Listen dials the feed at url and calls onInvalidate for every invalidation
// until ctx is cancelled or the connection drops. The hello frame is consumed
// before Listen starts delivering.
func Listen(ctx context.Context, url string, header http.Header, onInvalidate func(keys []string)) error {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("dial events: %w", err)
	}
	defer conn.CloseNow()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				conn.Close(websocket.StatusNormalClosure, "")
				return nil
			}
			return fmt.Errorf("read events: %w", err)
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == MessageTypeInvalidate && len(msg.Keys) > 0 {
			onInvalidate(msg.Keys)
		}
	}
}
