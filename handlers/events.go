package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"ifcserver/processing"
	"ifcserver/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ConnectedClient is one websocket connection. Writes come from both the read
// loop and the extraction workers.
type ConnectedClient struct {
	conn    *websocket.Conn
	modelID uint64 // 0 means every model
	mu      sync.Mutex
}

// send returns true if data was successfully sent
func (c *ConnectedClient) send(messageType int, data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		log.Println("write err:", err)
		return false
	}
	return true
}

// EventHub fans extraction events out to the connected websocket clients
type EventHub struct {
	clients cmap.ConcurrentMap[string, *ConnectedClient]
}

func NewEventHub() *EventHub {
	return &EventHub{clients: cmap.New[*ConnectedClient]()}
}

func (h *EventHub) Count() int {
	return h.clients.Count()
}

func (h *EventHub) Publish(e processing.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("Cannot encode event: %v", err)
		return
	}
	for id, client := range h.clients.Items() {
		if client.modelID != 0 && client.modelID != e.ModelID {
			continue
		}
		if !client.send(websocket.TextMessage, data) {
			h.clients.Remove(id)
		}
	}
}

// Serve upgrades the request. "?model=<id>" limits the feed to one model.
func (h *EventHub) Serve(c *gin.Context) {
	var filter uint64
	if param := c.Query("model"); param != "" {
		var ok bool
		if filter, ok = utils.StringToUInt64(param); !ok {
			c.JSON(http.StatusBadRequest, BadRequestResponse)
			return
		}
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Print("upgrade:", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	client := &ConnectedClient{conn: conn, modelID: filter}
	h.clients.Set(id, client)
	defer h.clients.Remove(id)
	// Main read cycle, clients only ever send pings
	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Println("read err:", err)
			}
			break
		}
		if string(message) == "ping" && !client.send(mt, []byte("pong")) {
			break
		}
	}
}
