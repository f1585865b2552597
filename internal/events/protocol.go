package events

import (
	"fmt"
	"strconv"
	"strings"
)

// Event names emitted by supervisord that the watcher cares about.
const (
	EventProcessExited = "PROCESS_STATE_EXITED"
	EventProcessFatal  = "PROCESS_STATE_FATAL"
)

// Header is the parsed event-listener header line, e.g.
// "ver:3.0 server:supervisor serial:21 pool:w poolserial:10 eventname:PROCESS_STATE_EXITED len:84".
type Header struct {
	Serial     int
	EventName  string
	PayloadLen int
}

// parseHeader extracts the event name and payload length. PayloadLen is
// populated whenever the len token parses, even when the rest of the header
// is rejected, so the caller can keep the stream aligned by discarding the
// payload bytes of a bad event.
func parseHeader(line string) (Header, error) {
	tokens := parseTokens(line)

	var header Header
	rawLen, ok := tokens["len"]
	if !ok {
		return header, fmt.Errorf("header missing len: %q", line)
	}
	payloadLen, err := strconv.Atoi(rawLen)
	if err != nil || payloadLen < 0 {
		return header, fmt.Errorf("header has bad len %q: %q", rawLen, line)
	}
	header.PayloadLen = payloadLen

	if rawSerial, ok := tokens["serial"]; ok {
		if serial, err := strconv.Atoi(rawSerial); err == nil {
			header.Serial = serial
		}
	}

	name, ok := tokens["eventname"]
	if !ok {
		return header, fmt.Errorf("header missing eventname: %q", line)
	}
	header.EventName = name
	return header, nil
}

// parseTokens splits "key:value key:value" lines. Malformed tokens are
// dropped rather than failing the whole line.
func parseTokens(s string) map[string]string {
	tokens := make(map[string]string)
	for _, field := range strings.Fields(s) {
		key, value, ok := strings.Cut(field, ":")
		if !ok || key == "" {
			continue
		}
		tokens[key] = value
	}
	return tokens
}
