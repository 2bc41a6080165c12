// Command client is a minimal chat client for exercising the server by hand:
// it connects, sends one chat message, and prints every event it receives
// until the server goes quiet.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/protocol"
)

const readQuietPeriod = 2 * time.Second

func main() {
	addr := flag.String("addr", "localhost:8765", "server host:port")
	message := flag.String("message", "Hello world!", "chat message to send")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}

	// The server checks the Origin header against its allow-list.
	header := http.Header{}
	header.Set("Origin", "http://"+*addr)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatalf("Dial %s: %v", u.String(), err)
	}
	defer conn.Close()

	frame, err := protocol.Encode(protocol.SendMessage{Text: *message})
	if err != nil {
		log.Fatalf("Encode message: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		log.Fatalf("Send message: %v", err)
	}

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readQuietPeriod)); err != nil {
			log.Fatalf("Set read deadline: %v", err)
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			log.Fatalf("Read: %v", err)
		}
		printEvent(raw)
	}
}

func printEvent(raw []byte) {
	evt, err := protocol.Decode(raw)
	if err != nil {
		log.Printf("Undecodable frame: %s", raw)
		return
	}

	switch evt := evt.(type) {
	case protocol.Hello:
		fmt.Printf("connected as user %s\n", evt.UserID)
	case protocol.Message:
		fmt.Printf("[%s] %s: %s\n", evt.UserID, evt.UserName, evt.Text)
	case protocol.Status:
		fmt.Printf("* %s %s\n", evt.UserName, evt.StatusMessage)
	default:
		fmt.Printf("unexpected event: %#v\n", evt)
	}
}
