package notify

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviehub/pkg/models"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 12345}

	r.Register("", addr)
	r.Register("u1", nil)
	assert.Empty(t, r.Snapshot())

	r.Register("u1", addr)
	require.Len(t, r.Snapshot(), 1)
	assert.Equal(t, "u1", r.Snapshot()[0].UserID)

	r.Remove("u1")
	assert.Empty(t, r.Snapshot())
}

func TestParseRegisterMessage(t *testing.T) {
	_, err := parseRegisterMessage([]byte(`not json`))
	assert.Error(t, err)

	_, err = parseRegisterMessage([]byte(`{"type":"register"}`))
	assert.Error(t, err, "user_id is required")

	msg, err := parseRegisterMessage([]byte(`{"type":"register","user_id":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, "u1", msg.UserID)
}

func TestServerRegisterAndAnnounce(t *testing.T) {
	reg := NewRegistry()
	srv := NewServer("127.0.0.1:0", reg, nil)

	go func() { _ = srv.Run() }()
	t.Cleanup(func() { _ = srv.Close() })
	require.Eventually(t, func() bool { return srv.LocalAddr() != nil }, time.Second, 10*time.Millisecond)

	client, err := net.DialUDP("udp", nil, srv.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	payload, err := json.Marshal(RegisterMessage{Type: RegisterMessageType, UserID: "u1"})
	require.NoError(t, err)
	_, err = client.Write(payload)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(reg.Snapshot()) == 1 }, time.Second, 10*time.Millisecond)

	srv.AnnounceRefresh(&models.Movie{ID: "m1", IMDbID: "tt0001", Title: "Dune"})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 2048)
	n, err := client.Read(buf)
	require.NoError(t, err)

	var msg RefreshedMessage
	require.NoError(t, json.Unmarshal(buf[:n], &msg))
	assert.Equal(t, RefreshedMessageType, msg.Type)
	assert.Equal(t, "m1", msg.MovieID)
	assert.Equal(t, "tt0001", msg.IMDbID)
	assert.Equal(t, "Dune", msg.Title)
}
