// Package overlay defines the public wire and handler contracts shared by
// every connection in a peermesh overlay.
//
// This package defines the core abstractions of the overlay protocol:
//   - Envelope: the {event, data} message unit exchanged over every connection
//   - Sender: the originating connection handle passed to event handlers
//   - HandlerFunc: the signature for registered event handlers
//   - ConnState: the per-connection state machine (Connecting -> Open -> Closed)
//
// Two event names are reserved by the gossip protocol:
//   - KNOWN_PEERS carries a node's full known-peer address list plus its own
//     address; receivers walk the list and connect to every unknown address.
//   - REQUEST_KNOWN_PEERS carries the requester's own address; receivers learn
//     the requester and reply directly with a KNOWN_PEERS envelope.
//
// Any other event name is application-defined and opaque to the overlay core.
//
// The interfaces use Go idioms:
//   - Explicit error returns following Go conventions
//   - json.RawMessage for handler-defined payloads the core never interprets
//
// Example usage:
//
//	node.RegisterEvent("chat.message", func(from overlay.Sender, data json.RawMessage) error {
//		var msg struct{ Text string }
//		if err := json.Unmarshal(data, &msg); err != nil {
//			return err
//		}
//		fmt.Printf("message from %s: %s\n", from.RemoteAddr(), msg.Text)
//		return nil
//	})
//
//	node.Broadcast("chat.message", map[string]string{"Text": "hello"})
package overlay
