package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/passbi/trackmap/internal/format"
)

// UnknownRoute is the subject token used when a trajectory has no single route
const UnknownRoute = "unknown"

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	metrics PublisherMetrics
}

type PublisherMetrics interface {
	PublishedInc()
	PublishErrInc()
}

// NewNATSPublisher connects to url; documents go to <subject>.<route_id>
func NewNATSPublisher(url, subject string, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("trackmap"),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Infof("NATS reconnected to %s", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc, subject: subject, metrics: m}, nil
}

// Close closes the connection. Every publish is already flushed.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// Subject returns the subject a document for routeID is published on
func (p *NATSPublisher) Subject(routeID string) string {
	if strings.TrimSpace(routeID) == "" {
		routeID = UnknownRoute
	}
	return fmt.Sprintf("%s.%s", p.subject, subjectToken(routeID))
}

// PublishDocument sends doc as JSON and flushes so the renderer sees it
// before the caller exits.
func (p *NATSPublisher) PublishDocument(routeID string, doc *format.Document) error {
	subject := p.Subject(routeID)
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	err = p.nc.Publish(subject, b)
	if err == nil {
		err = p.nc.FlushTimeout(5 * time.Second)
	}

	if p.metrics != nil {
		if err != nil {
			p.metrics.PublishErrInc()
		} else {
			p.metrics.PublishedInc()
		}
	}
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.WithField("subject", subject).Debugf("Published trajectory with %d points", len(doc.Points))
	return nil
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
