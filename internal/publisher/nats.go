package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gps-animator/internal/anim"
)

// NATSPublisher hands finished plans and per-edge progress to the renderer
// over NATS.
type NATSPublisher struct {
	nc          *nats.Conn
	logger      *zap.Logger
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(logger *zap.Logger, url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("gps-animator"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, logger: logger, prefix: prefix, logSubjects: logSubjects, metrics: m}, nil
}

// Close flushes pending messages and drains the connection.
func (p *NATSPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.FlushTimeout(5 * time.Second); err != nil {
		p.logger.Warn("nats flush failed", zap.Error(err))
	}
	p.nc.Drain()
	p.nc.Close()
}

// EdgeMessage reports the outcome of one edge while a plan is being built.
type EdgeMessage struct {
	Trip      string    `json:"trip"`
	Edge      int       `json:"edge"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Points    int       `json:"points"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEdgeMessage(trip string, r anim.EdgeResult, now time.Time) EdgeMessage {
	msg := EdgeMessage{
		Trip:      trip,
		Edge:      r.Edge.Index,
		From:      r.Edge.From.Name,
		To:        r.Edge.To.Name,
		Mode:      r.Edge.Mode.String(),
		Status:    "resolved",
		Points:    len(r.Segment.Points),
		Timestamp: now.UTC(),
	}
	if r.Err != nil {
		msg.Status = "skipped"
		msg.Reason = anim.Reason(r.Err)
		msg.Points = 0
	}
	return msg
}

func (p *NATSPublisher) PublishEdge(trip string, r anim.EdgeResult) error {
	return p.publish(Subject(p.prefix, "edge", trip), NewEdgeMessage(trip, r, time.Now()))
}

// PublishPlan sends the whole plan on <prefix>.plan.<trip>.
func (p *NATSPublisher) PublishPlan(trip string, plan *anim.Plan) error {
	return p.publish(Subject(p.prefix, "plan", trip), plan)
}

func (p *NATSPublisher) publish(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if p.logSubjects {
		p.logger.Info("nats publish", zap.String("subject", subject), zap.Int("bytes", len(b)))
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

// Subject joins prefix, kind and a sanitized trip name.
func Subject(prefix, kind, trip string) string {
	return fmt.Sprintf("%s.%s.%s", prefix, kind, subjectToken(trip))
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
