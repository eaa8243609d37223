// Package session implements the protocol engine shared by the client
// and server roles: message framing over a transport.Transport, request
// correlation, notification delivery, and the connection state machine.
//
// A Session never interprets MCP method names itself — inbound requests
// are handed to a caller-supplied RequestHandler and inbound
// notifications to a NotificationHandler. This keeps the engine usable
// symmetrically by both client.Client (which only answers
// sampling/createMessage and roots/list) and server.Server (which
// answers everything else via a Service).
//
//	sess := session.New(t, session.WithRequestHandler(handler))
//	if err := sess.Run(ctx); err != nil { ... }
//	result, err := sess.Request(ctx, "ping", nil)
package session
