package controllers

import (
	"bytes"
	"net/http"
	"strings"

	"inkwell/app/logger"
	"inkwell/app/render"

	"github.com/goccy/go-json"
)

func isAPI(r *http.Request) bool {
	return r.Header.Get("Accept") == "application/json" || strings.HasPrefix(r.URL.Path, "/api")
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

// sendError answers JSON for API requests and an error page otherwise.
// message is shown to the client; err is only logged.
func sendError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, log *logger.Logger, message string, status int, err error) {
	if err != nil {
		log.Error("%s %s: %s: %v", r.Method, r.URL.Path, message, err)
	}
	if isAPI(r) {
		sendJSON(w, status, map[string]string{"error": message})
		return
	}
	var buf bytes.Buffer
	if status == http.StatusNotFound {
		err = renderer.NotFound(&buf)
	} else {
		err = renderer.Error(&buf, status, message)
	}
	if err != nil {
		log.Error("error page render failed: %v", err)
		http.Error(w, message, status)
		return
	}
	sendHTML(w, status, buf.Bytes())
}

// etagMatch reports whether an If-None-Match header list names etag,
// using weak comparison.
func etagMatch(headers []string, etag string) bool {
	want := strings.TrimPrefix(etag, "W/")
	for _, h := range headers {
		for _, tag := range strings.Split(h, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if tag == "*" || strings.TrimPrefix(tag, "W/") == want {
				return true
			}
		}
	}
	return false
}
