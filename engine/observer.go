package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/ringplayer/ringplayer/log"
)

// observedProperties are watched for the lifetime of an mpv session.
var observedProperties = []string{
	"pause",
	"paused-for-cache",
	"seeking",
	"eof-reached",
	"time-pos",
	"duration",
	"demuxer-cache-time",
	"video-params",
	"frame-drop-count",
	"estimated-frame-number",
	"video-codec",
	"audio-codec-name",
	"cache-speed",
}

// propertyObserver holds the persistent connection mpv sends property changes
// and events on. Observations belong to the connection that made them, so the
// observe_property commands go out on the same connection the loop reads.
type propertyObserver struct {
	socketPath string
	onProperty func(name string, data any)
	onEvent    func(msg ipcMessage)

	mu        sync.Mutex
	conn      net.Conn
	listening bool
	done      chan struct{}
}

func newPropertyObserver(socketPath string, onProperty func(string, any), onEvent func(ipcMessage)) *propertyObserver {
	return &propertyObserver{
		socketPath: socketPath,
		onProperty: onProperty,
		onEvent:    onEvent,
	}
}

// Start subscribes to properties and starts the read loop.
func (o *propertyObserver) Start(properties []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.listening {
		return nil
	}

	conn, err := net.Dial("unix", o.socketPath)
	if err != nil {
		return fmt.Errorf("observer connect: %w", err)
	}

	for i, name := range properties {
		payload, err := json.Marshal(ipcCommand{
			Command:   []any{"observe_property", i + 1, name},
			RequestID: requestIDs.Add(1),
		})
		if err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
		if _, err := conn.Write(append(payload, '\n')); err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	o.conn = conn
	o.listening = true
	o.done = make(chan struct{})
	go o.readLoop(conn, o.done)

	log.Debugf("mpv observer started on %s (%d properties)", o.socketPath, len(properties))
	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (o *propertyObserver) Stop() {
	o.mu.Lock()
	if !o.listening {
		o.mu.Unlock()
		return
	}
	o.listening = false
	conn, done := o.conn, o.done
	o.mu.Unlock()

	_ = conn.Close()
	<-done
}

func (o *propertyObserver) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			o.mu.Lock()
			stopped := !o.listening
			o.mu.Unlock()
			if !stopped {
				log.Warnf("mpv observer read: %v", err)
			}
			return
		}

		var msg ipcMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}

		switch msg.Event {
		case "":
			// Replies to our observe_property commands.
		case "property-change":
			if msg.Name != "" && o.onProperty != nil {
				o.onProperty(msg.Name, msg.Data)
			}
		default:
			if o.onEvent != nil {
				o.onEvent(msg)
			}
		}
	}
}
