package runner

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jwebster45206/easton-heights/internal/handlers"
)

// StreamTimeout bounds a whole autoplay stream.
const StreamTimeout = 2 * time.Minute

// StreamAutoplay opens the autoplay websocket and collects messages until the
// stream reports finished or an error, or limit rounds have been received.
// A positive limit stops play from the client side.
func StreamAutoplay(ctx context.Context, baseURL string, id uuid.UUID, limit int) ([]handlers.AutoplayMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, StreamTimeout)
	defer cancel()

	url := wsURL(baseURL) + "/v1/sessions/" + id.String() + "/autoplay"
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("autoplay dial returned %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial autoplay: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	var msgs []handlers.AutoplayMessage
	rounds := 0
	for {
		var msg handlers.AutoplayMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return msgs, nil
			}
			return msgs, fmt.Errorf("failed to read autoplay message: %w", err)
		}
		msgs = append(msgs, msg)

		switch msg.Type {
		case handlers.MessageFinished:
			return msgs, nil
		case handlers.MessageError:
			return msgs, fmt.Errorf("autoplay error: %s", msg.Error)
		case handlers.MessageRound:
			rounds++
		}

		if limit > 0 && rounds >= limit {
			// Any client message stops play.
			if err := conn.WriteMessage(websocket.TextMessage, []byte("stop")); err != nil {
				return msgs, fmt.Errorf("failed to stop autoplay: %w", err)
			}
			return msgs, nil
		}
	}
}

func wsURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	return baseURL
}

// statusOK reports whether code is a 2xx status.
func statusOK(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
