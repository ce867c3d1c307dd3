// Package socket implements the layer-selector façade: one socket
// type that forwards send/recv to whichever layer — physical, link,
// or transport — it was constructed over.
package socket

import (
	"fmt"

	"github.com/tadnir/audionet/internal/config"
	"github.com/tadnir/audionet/internal/link"
	"github.com/tadnir/audionet/internal/physical"
	"github.com/tadnir/audionet/internal/transport"
)

// Layer identifies which layer a Socket was built over.
type Layer int

const (
	LayerPhysical Layer = iota
	LayerLink
	LayerTransport
)

// String returns the layer's name, used in CLI flags and monitor
// events.
func (l Layer) String() string {
	switch l {
	case LayerPhysical:
		return "physical"
	case LayerLink:
		return "link"
	case LayerTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// ParseLayer parses a layer name as accepted on the CLI.
func ParseLayer(name string) (Layer, error) {
	switch name {
	case "physical":
		return LayerPhysical, nil
	case "link":
		return LayerLink, nil
	case "transport":
		return LayerTransport, nil
	default:
		return 0, fmt.Errorf("socket: unknown layer %q", name)
	}
}

// endpoint is the common send/recv shape every layer implements.
type endpoint interface {
	Send(data []byte) error
	Recv(out []byte) (int, error)
}

// Sink receives observability events from a Socket. Satisfied by
// internal/monitor's Hub; nil by default so production use carries
// no broadcast overhead.
type Sink interface {
	Publish(event Event)
}

// Event is one observable occurrence at the façade boundary.
type Event struct {
	Layer Layer
	Op    string // "send" or "recv"
	Bytes int
	Err   error
}

// Socket selects one of {physical, link, transport} at construction
// time and forwards Send/Recv to it.
type Socket struct {
	layer    Layer
	endpoint endpoint
	physical *physical.Socket
	sink     Sink
}

// New builds a socket over the given layer. Every layer depth is
// constructed down to the physical layer, which owns and starts the
// audio backend.
func New(cfg config.Config, backend physical.AudioBackend, layer Layer) (*Socket, error) {
	phys, err := physical.New(cfg, backend)
	if err != nil {
		return nil, fmt.Errorf("socket: build physical layer: %w", err)
	}

	s := &Socket{layer: layer, physical: phys}
	switch layer {
	case LayerPhysical:
		s.endpoint = phys
	case LayerLink:
		s.endpoint = link.New(cfg, phys)
	case LayerTransport:
		s.endpoint = transport.New(link.New(cfg, phys))
	default:
		return nil, fmt.Errorf("socket: unknown layer %v", layer)
	}
	return s, nil
}

// SetSink wires an observability sink; events are published after
// this call returns only.
func (s *Socket) SetSink(sink Sink) {
	s.sink = sink
}

// Close releases the underlying audio backend.
func (s *Socket) Close() error {
	return s.physical.Close()
}

// Send forwards to the selected layer's Send, publishing an event to
// the sink if one is set.
func (s *Socket) Send(data []byte) error {
	err := s.endpoint.Send(data)
	s.publish(Event{Layer: s.layer, Op: "send", Bytes: len(data), Err: err})
	return err
}

// Recv forwards to the selected layer's Recv, publishing an event to
// the sink if one is set.
func (s *Socket) Recv(out []byte) (int, error) {
	n, err := s.endpoint.Recv(out)
	s.publish(Event{Layer: s.layer, Op: "recv", Bytes: n, Err: err})
	return n, err
}

func (s *Socket) publish(event Event) {
	if s.sink == nil {
		return
	}
	s.sink.Publish(event)
}
