// Package publisher pushes match results onto a NATS bus.
package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/transitstat/transitgo/match"
)

// Metrics receives publish outcomes; nil disables reporting.
type Metrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

// NATSPublisher publishes one message per matched shape under
// matched.<route>.<shape>.
type NATSPublisher struct {
	nc      *nats.Conn
	metrics Metrics
}

func NewNATSPublisher(url string, m Metrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("transitgo"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// ShapeMessage is the wire form of one matched shape.
type ShapeMessage struct {
	ShapeID     string       `json:"shapeId"`
	RouteID     string       `json:"routeId"`
	CRS         int          `json:"crs"`
	LengthM     float64      `json:"lengthM"`
	GapFraction float64      `json:"gapFraction"`
	Gaps        int          `json:"gaps"`
	Geometry    [][2]float64 `json:"geometry"`
}

// PublishShape sends one matched shape.
func (p *NATSPublisher) PublishShape(routeID string, ms *match.MatchedShape) error {
	msg := ShapeMessage{
		ShapeID:     ms.ShapeID,
		RouteID:     routeID,
		CRS:         ms.CRS,
		LengthM:     ms.LengthM,
		GapFraction: ms.GapFraction,
		Gaps:        len(ms.Gaps),
		Geometry:    ms.Geometry,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("matched.%s.%s", subjectToken(routeID), subjectToken(ms.ShapeID))
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
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
