package apiservicev1

import (
	"context"
	"log"
	"net/http"
	"time"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/gorilla/websocket"

	"github.com/fulldump/replica/remote"
)

const eventsBufferSize = 256

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// events streams every push event of the service through a websocket, one
// remote.Message per frame.
func events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	s, err := urlService(ctx)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("ERROR: events upgrade:", err.Error())
		return nil // the upgrader already answered
	}
	defer conn.Close()

	send := make(chan remote.Message, eventsBufferSize)
	for _, event := range remote.Events {
		event := event
		off := s.On(event, func(data map[string]any) {
			select {
			case send <- remote.Message{Event: event, Data: data}:
			default:
				log.Println("ERROR: events buffer full, dropping", event)
			}
		})
		defer off()
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			return nil
		case message := <-send:
			data, err := jsonv2.Marshal(message)
			if err != nil {
				log.Println("ERROR: events encode:", err.Error())
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return nil
			}
		}
	}
}
