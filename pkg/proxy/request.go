package proxy

import (
	"errors"
	"io"
	"net"
	"net/http"
	"unicode/utf8"
)

// InvalidUTF8Body replaces request bodies that are not valid UTF-8 before
// fingerprinting, so all such bodies share one fingerprint.
const InvalidUTF8Body = "Invalid UTF-8 value"

// ForwardedForHeader carries the client address to the upstream.
const ForwardedForHeader = "X-Forwarded-For"

// ReadBody buffers the whole request body. A limit of 0 or less means
// unlimited. Read failures give a 400 RequestError, oversized bodies a 413.
func ReadBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return []byte{}, nil
	}

	var reader io.Reader = r.Body
	if limit > 0 {
		// One extra byte distinguishes "exactly at the limit" from "over it".
		reader = io.LimitReader(r.Body, limit+1)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, &RequestError{Status: http.StatusRequestEntityTooLarge, Message: "request body too large", Err: err}
		}
		return nil, &RequestError{Status: http.StatusBadRequest, Message: "failed to read request body", Err: err}
	}

	if limit > 0 && int64(len(body)) > limit {
		return nil, &RequestError{Status: http.StatusRequestEntityTooLarge, Message: "request body too large"}
	}

	return body, nil
}

// BodyText returns body as a string for fingerprinting, or InvalidUTF8Body
// when it is not valid UTF-8.
func BodyText(body []byte) string {
	if !utf8.Valid(body) {
		return InvalidUTF8Body
	}
	return string(body)
}

// ClientIP returns the IP part of the request's peer address, or "" when
// it does not parse.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return ""
}
