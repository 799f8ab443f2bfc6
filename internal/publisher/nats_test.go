package publisher

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passbi/trackmap/internal/format"
	"github.com/passbi/trackmap/internal/models"
)

func init() {
	log.SetOutput(io.Discard)
}

type countingMetrics struct {
	published, failed int
}

func (m *countingMetrics) PublishedInc()  { m.published++ }
func (m *countingMetrics) PublishErrInc() { m.failed++ }

func runServer(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server did not start")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestSubjectToken(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"R1", "R1"},
		{" line 7 ", "line_7"},
		{"a.b", "a_b"},
		{"a*b>c", "a_b_c"},
		{"north/south", "north_south"},
		{"", "_"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, subjectToken(tt.in))
		})
	}
}

func TestSubject(t *testing.T) {
	p := &NATSPublisher{subject: "trajectory"}
	assert.Equal(t, "trajectory.R1", p.Subject("R1"))
	assert.Equal(t, "trajectory.unknown", p.Subject(""))
}

func TestPublishDocument(t *testing.T) {
	ns := runServer(t)

	sub, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *nats.Msg, 1)
	_, err = sub.ChanSubscribe("trajectory.>", msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	m := &countingMetrics{}
	p, err := NewNATSPublisher(ns.ClientURL(), "trajectory", m)
	require.NoError(t, err)
	defer p.Close()

	doc := format.NewDocument(&models.Trajectory{Points: []models.TrajectoryPoint{
		{Sequence: 1, Timestamp: time.Date(2024, 6, 28, 13, 0, 0, 0, time.UTC), Attributes: map[string]string{"route_id": "R1"}},
	}}, nil)
	require.NoError(t, p.PublishDocument("R1", doc))

	select {
	case msg := <-msgs:
		assert.Equal(t, "trajectory.R1", msg.Subject)
		var decoded format.Document
		require.NoError(t, json.Unmarshal(msg.Data, &decoded))
		assert.Len(t, decoded.Points, 1)
		assert.False(t, decoded.Empty)
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
	assert.Equal(t, 1, m.published)
	assert.Equal(t, 0, m.failed)
}

func TestNewNATSPublisherUnavailable(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1", "trajectory", nil)
	assert.Error(t, err)
}

func TestCloseClosesConnection(t *testing.T) {
	ns := runServer(t)

	p, err := NewNATSPublisher(ns.ClientURL(), "trajectory", nil)
	require.NoError(t, err)

	p.Close()
	assert.True(t, p.nc.IsClosed())
	assert.Error(t, p.PublishDocument("R1", format.NewDocument(&models.Trajectory{}, nil)))

	// closing twice is harmless
	p.Close()
	assert.NotPanics(t, (&NATSPublisher{}).Close)
}
