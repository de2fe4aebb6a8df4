package starapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSState tracks the lifecycle of a WebSocket connection.
type WSState int

const (
	WSConnecting WSState = iota
	WSConnected
	WSDisconnected
)

// WebSocket wraps an accepted connection. Path parameters, the request
// identity, and locals from the handshake are available through it.
type WebSocket struct {
	conn  *websocket.Conn
	req   *Request
	state WSState
}

// Request returns the handshake request with its path parameters, user and
// locals.
func (ws *WebSocket) Request() *Request { return ws.req }

// State reports the connection state.
func (ws *WebSocket) State() WSState { return ws.state }

// User returns the identity authentication middleware attached to the
// handshake request, or nil.
func (ws *WebSocket) User() any { return ws.req.User() }

// Params returns the converted path parameters of the handshake request.
func (ws *WebSocket) Params() map[string]any { return ws.req.Params() }

// Param returns a converted path parameter from the handshake request.
func (ws *WebSocket) Param(name string) any { return ws.req.Param(name) }

// ParamString returns the raw path parameter from the handshake request.
func (ws *WebSocket) ParamString(name string) string { return ws.req.ParamString(name) }

// ParamInt returns an int path parameter from the handshake request.
func (ws *WebSocket) ParamInt(name string) int { return ws.req.ParamInt(name) }

// ParamUUID returns a uuid.UUID path parameter from the handshake request.
func (ws *WebSocket) ParamUUID(name string) uuid.UUID { return ws.req.ParamUUID(name) }

// SendText sends a text message.
func (ws *WebSocket) SendText(s string) error {
	return ws.wrapSendErr(ws.conn.WriteMessage(websocket.TextMessage, []byte(s)))
}

// SendBytes sends a binary message.
func (ws *WebSocket) SendBytes(b []byte) error {
	return ws.wrapSendErr(ws.conn.WriteMessage(websocket.BinaryMessage, b))
}

// SendJSON sends v as a JSON text message.
func (ws *WebSocket) SendJSON(v any) error {
	return ws.wrapSendErr(ws.conn.WriteJSON(v))
}

// ReceiveText reads the next text message.
func (ws *WebSocket) ReceiveText() (string, error) {
	_, data, err := ws.conn.ReadMessage()
	if err != nil {
		return "", ws.receiveErr(err)
	}
	return string(data), nil
}

// ReceiveBytes reads the next message as raw bytes.
func (ws *WebSocket) ReceiveBytes() ([]byte, error) {
	_, data, err := ws.conn.ReadMessage()
	if err != nil {
		return nil, ws.receiveErr(err)
	}
	return data, nil
}

// ReceiveJSON reads the next message and decodes it into dst.
func (ws *WebSocket) ReceiveJSON(dst any) error {
	if err := ws.conn.ReadJSON(dst); err != nil {
		return ws.receiveErr(err)
	}
	return nil
}

// Close sends a close frame with the given code and closes the connection.
func (ws *WebSocket) Close(code int, reason string) error {
	if ws.state == WSDisconnected {
		return nil
	}
	ws.state = WSDisconnected
	msg := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(time.Second)
	if err := ws.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		return ws.conn.Close()
	}
	return ws.conn.Close()
}

func (ws *WebSocket) receiveErr(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		ws.state = WSDisconnected
		return &WebSocketClosedError{Code: closeErr.Code, Reason: closeErr.Text}
	}
	return err
}

func (ws *WebSocket) wrapSendErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		ws.state = WSDisconnected
		return &WebSocketClosedError{Code: websocket.CloseNormalClosure, Reason: "close sent"}
	}
	return err
}

// dispatchWebSocket matches upgrade requests against WebSocket routes, runs
// the guards, upgrades, and hands the connection to the route handler. The
// response write is skipped afterwards because the connection was taken
// over.
func (app *Application) dispatchWebSocket(r *Request) (*Response, error) {
	for _, rt := range app.wsRoutes {
		m, params, raw := rt.match(r.Path())
		if m != MatchFull {
			continue
		}
		r.wsRoute = rt
		r.params = params
		r.rawParams = raw

		if g := rt.group; g != nil && g.check != nil {
			resp, err := g.check(r)
			if resp != nil || err != nil {
				return resp, err
			}
		}
		for _, check := range rt.checks {
			resp, err := check(r)
			if resp != nil || err != nil {
				return resp, err
			}
		}

		conn, err := app.upgrader.Upgrade(r.rw, r.raw, nil)
		if err != nil {
			// Upgrade already wrote the handshake error response.
			r.hijacked = true
			app.log.Debug("websocket upgrade failed", "path", r.Path(), "error", err)
			return nil, nil
		}
		r.hijacked = true

		ws := &WebSocket{conn: conn, req: r, state: WSConnected}
		defer conn.Close()

		herr := rt.handler(ws)
		var closed *WebSocketClosedError
		switch {
		case herr == nil:
			if ws.state == WSConnected {
				ws.Close(websocket.CloseNormalClosure, "")
			}
		case errors.As(herr, &closed):
			// Peer already closed the connection.
		default:
			app.log.Error("websocket handler error", "path", r.Path(), "error", herr)
			if ws.state == WSConnected {
				ws.Close(websocket.CloseInternalServerErr, "internal error")
			}
		}
		return nil, nil
	}
	return nil, NewError(http.StatusNotFound)
}
