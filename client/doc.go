// Package client implements the MCP client role.
//
// Dial connects to a server over any transport.Transport, runs the
// initialize handshake, and returns a Client exposing typed,
// capability-gated wrappers for every client-initiated MCP operation:
//
//	c, err := client.Dial(ctx, transportConn,
//	    client.WithImplementation("my-app", "1.0.0"),
//	    client.WithSampling(handleSampling),
//	)
//	tools, err := c.ListTools(ctx)
//
// Calling a wrapper whose capability the server never advertised returns
// a *protocol.CapabilityError without touching the wire.
package client
