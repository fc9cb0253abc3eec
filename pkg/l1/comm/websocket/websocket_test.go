package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/cobslink/pkg/l1/comm"
)

func TestHandler(t *testing.T) {
	var b comm.Broadcaster
	srv := httptest.NewServer(Handler(&b))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	client := New(conn)
	require.Eventually(t, func() bool { return b.Len() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, b.WritePacket([]byte{0x01, 0x00, 0x02}))
	pkt, err := client.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x00, 0x02}, pkt)

	require.NoError(t, client.Close())
	require.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, time.Millisecond)
}
