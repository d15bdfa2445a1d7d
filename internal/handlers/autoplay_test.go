package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(api *testAPI, path string) string {
	return "ws" + strings.TrimPrefix(api.srv.URL, "http") + path
}

func TestAutoplay_StreamsUntilFinished(t *testing.T) {
	api := newTestAPI(t, lethalCatalog(), testConfig())
	s := api.create("")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(api, "/v1/sessions/"+s.ID.String()+"/autoplay"), nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	var msgs []AutoplayMessage
	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg AutoplayMessage
		if err := conn.ReadJSON(&msg); err != nil {
			require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "read error: %v", err)
			break
		}
		msgs = append(msgs, msg)
	}

	// Six characters and one kill per round: five rounds, then the end.
	require.Len(t, msgs, 6)
	for i, m := range msgs[:5] {
		assert.Equal(t, MessageRound, m.Type)
		require.NotNil(t, m.Round)
		assert.Equal(t, i+1, m.Round.Turn)
	}
	assert.Equal(t, MessageFinished, msgs[5].Type)
	assert.Equal(t, "insufficient_participants", msgs[5].Outcome)

	var got SessionResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/v1/sessions/"+s.ID.String(), "", &got))
	assert.True(t, got.Terminated)
	assert.Equal(t, 5, got.Rounds)
}

func TestAutoplay_ClientStops(t *testing.T) {
	cfg := testConfig()
	cfg.AutoplayDelay = 20 * time.Millisecond
	api := newTestAPI(t, testCatalog(), cfg)
	s := api.create("")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(api, "/v1/sessions/"+s.ID.String()+"/autoplay"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var first AutoplayMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, MessageRound, first.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("stop")))

	// Drain until the server closes the socket.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "read error: %v", err)
			break
		}
	}
}

func TestAutoplay_UnknownSession(t *testing.T) {
	api := newTestAPI(t, testCatalog(), testConfig())

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(api, "/v1/sessions/"+uuid.NewString()+"/autoplay"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(api, "/v1/sessions/bad/autoplay"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
