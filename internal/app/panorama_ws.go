// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/street_walker/internal/panorama"
)

const wsWriteWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the viewer page may be served from a dev server
	},
}

var (
	errViewerClosed = errors.New("viewer connection closed")
	errViewerBusy   = errors.New("viewer send queue full")
)

// wsSendQueue bounds the commands waiting for a slow viewer.
const wsSendQueue = 32

// Viewer -> walker messages.
type viewerMessage struct {
	Type   string          `json:"type"` // ready, location
	PanoID string          `json:"pano_id,omitempty"`
	Lat    float64         `json:"lat,omitempty"`
	Lng    float64         `json:"lng,omitempty"`
	Links  []panorama.Link `json:"links,omitempty"`
}

// Walker -> viewer messages.
type hostCommand struct {
	Type       string           `json:"type"` // set_position, set_panorama, animate_to, status
	Position   *panorama.LatLng `json:"position,omitempty"`
	PanoID     string           `json:"pano_id,omitempty"`
	Camera     *panorama.Camera `json:"camera,omitempty"`
	DurationMs int64            `json:"duration_ms,omitempty"`
	Steps      int              `json:"steps,omitempty"`
	Message    string           `json:"message,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// WSHost is a panorama.Host backed by a browser viewer on a websocket.
// Commands are queued and written by a single writer goroutine, so calls
// never block on the network. Camera updates are coalesced: only the most
// recent unsent one is kept. The viewer reports resolved locations back as
// "location" messages.
type WSHost struct {
	ID string

	conn *websocket.Conn
	out  chan hostCommand
	wake chan struct{} // a camera update is pending
	done chan struct{}

	qmu    sync.Mutex
	camera *hostCommand
	closed bool

	mu      sync.RWMutex
	loc     panorama.Location
	haveLoc bool
}

func newWSHost(conn *websocket.Conn) *WSHost {
	h := newQueuedHost(conn)
	go h.writeLoop()
	return h
}

func newQueuedHost(conn *websocket.Conn) *WSHost {
	return &WSHost{
		ID:   uuid.NewString(),
		conn: conn,
		out:  make(chan hostCommand, wsSendQueue),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// SetPosition asks the viewer to load the panorama nearest to pos.
func (h *WSHost) SetPosition(pos panorama.LatLng) error {
	h.clearLocation()
	return h.send(hostCommand{Type: "set_position", Position: &pos})
}

// SetPanorama asks the viewer to load a panorama by id.
func (h *WSHost) SetPanorama(panoID string) error {
	h.clearLocation()
	return h.send(hostCommand{Type: "set_panorama", PanoID: panoID})
}

// AnimateTo re-aims the viewer camera, replacing any unsent camera update.
func (h *WSHost) AnimateTo(cam panorama.Camera, d time.Duration) error {
	cmd := hostCommand{Type: "animate_to", Camera: &cam, DurationMs: d.Milliseconds()}

	h.qmu.Lock()
	defer h.qmu.Unlock()
	if h.closed {
		return errViewerClosed
	}
	h.camera = &cmd
	select {
	case h.wake <- struct{}{}:
	default:
	}
	return nil
}

// Location returns the last location the viewer resolved since the most
// recent move request.
func (h *WSHost) Location() (panorama.Location, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loc, h.haveLoc
}

// Status pushes the step counter and an optional message to the viewer.
func (h *WSHost) Status(steps int, message string, err error) error {
	cmd := hostCommand{Type: "status", Steps: steps, Message: message}
	if err != nil {
		cmd.Error = err.Error()
	}
	return h.send(cmd)
}

func (h *WSHost) updateLocation(loc panorama.Location) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loc = loc
	h.haveLoc = loc.Valid()
}

func (h *WSHost) clearLocation() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loc = panorama.Location{}
	h.haveLoc = false
}

// send queues cmd without blocking.
func (h *WSHost) send(cmd hostCommand) error {
	h.qmu.Lock()
	defer h.qmu.Unlock()

	if h.closed {
		return errViewerClosed
	}
	select {
	case h.out <- cmd:
		return nil
	default:
		return errViewerBusy
	}
}

func (h *WSHost) takeCamera() *hostCommand {
	h.qmu.Lock()
	defer h.qmu.Unlock()
	cmd := h.camera
	h.camera = nil
	return cmd
}

// writeLoop is the only writer on conn. A failed write closes the socket,
// which ends the read loop in HandlePanoramaWS.
func (h *WSHost) writeLoop() {
	for {
		var cmd hostCommand
		select {
		case <-h.done:
			return
		case cmd = <-h.out:
		case <-h.wake:
			c := h.takeCamera()
			if c == nil {
				continue
			}
			cmd = *c
		}

		if err := h.write(cmd); err != nil {
			log.Printf("viewer %s: write error: %v", h.ID, err)
			h.conn.Close()
			return
		}
	}
}

func (h *WSHost) write(cmd hostCommand) error {
	if err := h.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return h.conn.WriteJSON(cmd)
}

func (h *WSHost) close() {
	h.qmu.Lock()
	defer h.qmu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
	h.conn.Close()
}

// viewerHub tracks connected viewers for status broadcasts.
type viewerHub struct {
	mu      sync.Mutex
	viewers map[*WSHost]struct{}
}

func newViewerHub() *viewerHub {
	return &viewerHub{viewers: map[*WSHost]struct{}{}}
}

func (v *viewerHub) add(h *WSHost) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.viewers[h] = struct{}{}
}

func (v *viewerHub) remove(h *WSHost) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.viewers, h)
}

func (v *viewerHub) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.viewers)
}

func (v *viewerHub) status(steps int, message string, err error) {
	v.mu.Lock()
	hosts := make([]*WSHost, 0, len(v.viewers))
	for h := range v.viewers {
		hosts = append(hosts, h)
	}
	v.mu.Unlock()

	for _, h := range hosts {
		if e := h.Status(steps, message, err); e != nil {
			log.Printf("viewer %s: status send error: %v", h.ID, e)
		}
	}
}

// panoramaAttacher is the part of the navigation controller the viewer
// socket drives.
type panoramaAttacher interface {
	Attach(host panorama.Host) error
	Detach(host panorama.Host)
	HandleLocation(host panorama.Host, loc panorama.Location) bool
	Steps() int
}

// HandlePanoramaWS returns the handler for the viewer websocket. A viewer
// attaches on "ready" and detaches when the socket closes.
func HandlePanoramaWS(ctl panoramaAttacher, hub *viewerHub, onLocation func(panorama.Location)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("viewer: websocket upgrade error: %v", err)
			return
		}

		host := newWSHost(conn)
		hub.add(host)
		log.Printf("viewer %s: connected from %s", host.ID, r.RemoteAddr)

		defer func() {
			hub.remove(host)
			ctl.Detach(host)
			host.close()
			log.Printf("viewer %s: disconnected", host.ID)
		}()

		for {
			var msg viewerMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("viewer %s: websocket error: %v", host.ID, err)
				}
				return
			}

			switch msg.Type {
			case "ready":
				if err := ctl.Attach(host); err != nil {
					log.Printf("viewer %s: attach error: %v", host.ID, err)
					continue
				}
				if err := host.Status(ctl.Steps(), "ready", nil); err != nil {
					log.Printf("viewer %s: status write error: %v", host.ID, err)
				}

			case "location":
				loc := panorama.Location{
					PanoID:   msg.PanoID,
					Position: panorama.LatLng{Lat: msg.Lat, Lng: msg.Lng},
					Links:    msg.Links,
				}
				host.updateLocation(loc)
				// only the attached viewer's position is persisted and published
				if ctl.HandleLocation(host, loc) && onLocation != nil && loc.Valid() {
					onLocation(loc)
				}

			default:
				log.Printf("viewer %s: unknown message type %q", host.ID, msg.Type)
			}
		}
	}
}
