package handlers

import (
    "encoding/json"
    "log"
    "net/http"
    "time"

    "github.com/google/uuid"
    "github.com/gorilla/mux"
    "github.com/gorilla/websocket"

    "github.com/typerush/typerush/typerush-backend/models"
    "github.com/typerush/typerush/typerush-backend/race"
)

var upgrader = websocket.Upgrader{
    ReadBufferSize:  1024,
    WriteBufferSize: 1024,
    CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
    writeWait  = 10 * time.Second
    pongWait   = 60 * time.Second
    pingPeriod = 54 * time.Second
)

// Gateway ties the connection hub to the room registry: it upgrades HTTP
// requests, tags connections with an identity when a valid token is
// presented, and routes client events into the registry.
type Gateway struct {
    hub      *Hub
    registry *race.Registry
}

func NewGateway(hub *Hub, registry *race.Registry) *Gateway {
    return &Gateway{hub: hub, registry: registry}
}

// WsHandler upgrades the connection. A token may be supplied in the path;
// a missing or invalid token falls back to a guest identity rather than
// rejecting the connection.
func (g *Gateway) WsHandler(w http.ResponseWriter, r *http.Request) {
    connID := uuid.New().String()
    userID := ""
    username := "guest-" + connID[:8]

    if tokenStr := mux.Vars(r)["token"]; tokenStr != "" {
        claims, err := ValidateToken(tokenStr)
        if err != nil {
            log.Printf("ws token invalid, continuing as guest: %v", err)
        } else {
            userID = claims.ID
            username = claims.Username
        }
    }

    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        log.Println("Upgrade error:", err)
        return
    }

    connection := &Connection{
        ws:       conn,
        send:     make(chan []byte, 256),
        id:       connID,
        userID:   userID,
        username: username,
    }
    g.hub.register(connection)
    log.Printf("connection %s (%s) established", connID, username)

    go connection.writePump()
    g.readPump(connection)
}

// readPump reads client events until the connection drops, then tears the
// connection down on both sides (hub and registry).
func (g *Gateway) readPump(c *Connection) {
    defer func() {
        g.registry.Leave(c.id)
        g.hub.unregister(c)
        c.ws.Close()
        log.Printf("connection %s disconnected", c.id)
    }()

    c.ws.SetReadDeadline(time.Now().Add(pongWait))
    c.ws.SetPongHandler(func(string) error {
        c.ws.SetReadDeadline(time.Now().Add(pongWait))
        return nil
    })

    for {
        _, message, err := c.ws.ReadMessage()
        if err != nil {
            if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
                log.Printf("error reading from connection %s: %v", c.id, err)
            }
            break
        }
        g.processMessage(c, message)
    }
}

// processMessage dispatches one inbound event. Malformed payloads are a
// protocol error: logged and dropped, never an error frame to the client.
func (g *Gateway) processMessage(c *Connection, rawMessage []byte) {
    var msg models.ClientMessage
    if err := json.Unmarshal(rawMessage, &msg); err != nil {
        log.Printf("error unmarshalling message from connection %s: %v", c.id, err)
        return
    }

    switch msg.Event {
    case "joinRoom":
        if msg.RoomID == "" {
            log.Printf("connection %s sent joinRoom without roomId", c.id)
            return
        }
        g.hub.moveToRoom(c.id, msg.RoomID)
        g.registry.Join(c.id, c.username, msg.RoomID)
    case "ready":
        g.registry.Ready(c.id)
    case "submitText":
        g.registry.SubmitText(c.id, msg.Text)
    case "progressUpdate":
        g.registry.Progress(c.id, msg.Percent, msg.Wpm)
    default:
        log.Printf("unhandled event %q from connection %s", msg.Event, c.id)
    }
}

func (c *Connection) writePump() {
    ticker := time.NewTicker(pingPeriod)
    defer func() {
        ticker.Stop()
        c.ws.Close()
    }()

    for {
        select {
        case message, ok := <-c.send:
            c.ws.SetWriteDeadline(time.Now().Add(writeWait))
            if !ok {
                c.ws.WriteMessage(websocket.CloseMessage, []byte{})
                return
            }
            if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
                log.Printf("error writing to connection %s: %v", c.id, err)
                return
            }
        case <-ticker.C:
            c.ws.SetWriteDeadline(time.Now().Add(writeWait))
            if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
                return
            }
        }
    }
}
