package transport

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPListenerRequestResponse(t *testing.T) {
	listener := NewHTTPListener()
	srv := httptest.NewServer(listener.Handler())
	defer srv.Close()

	client := NewHTTPClientConn(srv.URL + "/mcp")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect(ctx)

	var server *HTTPServerConn
	go func() {
		msg, err := waitAccept(t, listener)
		if err != nil {
			return
		}
		server = msg
		body, err := server.Receive(ctx)
		if err != nil {
			t.Errorf("server receive: %v", err)
			return
		}
		if string(body) != `{"jsonrpc":"2.0","id":1,"method":"ping"}` {
			t.Errorf("unexpected body: %s", body)
			return
		}
		_ = server.Send(ctx, []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	}()

	if err := client.Send(ctx, []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}

	reply, err := client.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if string(reply) != `{"jsonrpc":"2.0","id":1,"result":{}}` {
		t.Fatalf("unexpected reply: %s", reply)
	}
}

func waitAccept(t *testing.T, l *HTTPListener) (*HTTPServerConn, error) {
	t.Helper()
	select {
	case conn := <-l.Accept():
		return conn, nil
	case <-time.After(2 * time.Second):
		t.Fatal("no session accepted")
		return nil, nil
	}
}

func TestHTTPListenerNotificationAccepted(t *testing.T) {
	listener := NewHTTPListener()
	srv := httptest.NewServer(listener.Handler())
	defer srv.Close()

	client := NewHTTPClientConn(srv.URL + "/mcp")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = client.Connect(ctx)
	defer client.Disconnect(ctx)

	done := make(chan struct{})
	go func() {
		conn, err := waitAccept(t, listener)
		if err == nil && conn != nil {
			_, _ = conn.Receive(ctx)
		}
		close(done)
	}()

	if err := client.Send(ctx, []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)); err != nil {
		t.Fatalf("send notification: %v", err)
	}
	<-done
}
