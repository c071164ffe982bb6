package session

import (
	"fmt"

	"clusterdash/internal/eventbus"
	"clusterdash/internal/protocol"
)

// subscribe routes user interactions published on the bus to the session.
func (s *Session) subscribe() {
	s.Bus.Subscribe(eventbus.TopicExecuteOnNode, func(e eventbus.Event) error {
		ref, ok := e.Payload.(protocol.NodeRef)
		if !ok {
			return payloadError(e, "protocol.NodeRef")
		}
		s.ExecuteOnNode(ref)
		return nil
	})

	s.Bus.Subscribe(eventbus.TopicSelectNode, func(e eventbus.Event) error {
		address, ok := e.Payload.(protocol.NodeAddress)
		if !ok {
			return payloadError(e, "protocol.NodeAddress")
		}
		s.SelectNode(address)
		return nil
	})

	s.Bus.Subscribe(eventbus.TopicFilterChanged, func(e eventbus.Event) error {
		term, ok := e.Payload.(string)
		if !ok {
			return payloadError(e, "string")
		}
		s.SetFilter(term)
		return nil
	})

	s.Bus.Subscribe(eventbus.TopicResync, func(eventbus.Event) error {
		// a disconnected primary is reported through the notice
		_ = s.Resync()
		return nil
	})
}

func payloadError(e eventbus.Event, want string) error {
	return fmt.Errorf("%s from %s: payload is %T, want %s", e.Topic, e.Interaction.CurrentTarget, e.Payload, want)
}
