// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/relabs-tech/street_walker/internal/navigation"
	"github.com/relabs-tech/street_walker/internal/panorama"
)

const maxLocationBody = 256

// statusResponse is the /api/status payload.
type statusResponse struct {
	State   string  `json:"state"`
	Steps   int     `json:"steps"`
	Bearing float64 `json:"bearing"`
	Viewers int     `json:"viewers"`
}

func newWebMux(w *walker, webRoot string) *http.ServeMux {
	mux := http.NewServeMux()

	// 1) Viewer websocket
	mux.HandleFunc("/ws/panorama", HandlePanoramaWS(w.ctl, w.hub, w.publishLocation))

	// 2) Manual location input: body "lat,lng"
	mux.HandleFunc("POST /api/location", func(rw http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxLocationBody))
		if err != nil {
			http.Error(rw, "cannot read body", http.StatusBadRequest)
			return
		}

		pos, err := w.ctl.MoveTo(strings.TrimSpace(string(body)))
		switch {
		case errors.Is(err, navigation.ErrNotReady):
			http.Error(rw, err.Error(), http.StatusConflict)
			return
		case errors.Is(err, panorama.ErrMissingSeparator), errors.Is(err, panorama.ErrInvalidCoordinate):
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}

		log.Printf("web: manual move to %s requested", pos)
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(rw).Encode(pos); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 3) Controller snapshot
	mux.HandleFunc("GET /api/status", func(rw http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			State:   w.ctl.State().String(),
			Steps:   w.ctl.Steps(),
			Bearing: w.ctl.Bearing(),
			Viewers: w.hub.count(),
		}
		rw.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(rw).Encode(resp); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 4) Static viewer page
	mux.Handle("/", http.FileServer(http.Dir(webRoot)))

	return mux
}
