package proxy

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"mercator-hq/chproxy/pkg/transcript"
)

// hopHeader is never copied to the client.
const hopHeader = "Connection"

// WriteRecorded writes a recorded (or freshly received) response: its status,
// every header except Connection, and body. Content-Type and Date are only
// sent when the record has them.
func WriteRecorded(w http.ResponseWriter, r *http.Request, meta transcript.ResponseMeta, body []byte) error {
	if meta.StatusCode < 100 || meta.StatusCode > 599 {
		return fmt.Errorf("recorded status %d out of range", meta.StatusCode)
	}

	h := w.Header()
	for _, hd := range meta.Headers {
		if strings.EqualFold(hd.Name, hopHeader) {
			continue
		}
		if strings.EqualFold(hd.Name, "Content-Length") && !contentLengthMatches(r, hd.Value, len(body)) {
			continue
		}
		h.Add(hd.Name, hd.Value)
	}

	// A nil entry stops net/http from sniffing or stamping the header.
	if _, ok := meta.Get("Content-Type"); !ok {
		h["Content-Type"] = nil
	}
	if _, ok := meta.Get("Date"); !ok {
		h["Date"] = nil
	}

	w.WriteHeader(meta.StatusCode)
	if _, err := w.Write(body); err != nil && err != http.ErrBodyNotAllowed {
		return err
	}
	return nil
}

// contentLengthMatches reports whether a recorded Content-Length can be sent
// with body. HEAD responses keep the recorded value.
func contentLengthMatches(r *http.Request, value string, bodyLen int) bool {
	if r.Method == http.MethodHead {
		return true
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	return err == nil && n == bodyLen
}
