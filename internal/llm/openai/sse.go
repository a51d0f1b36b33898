package openai

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is a single Server-Sent Event.
type sseEvent struct {
	Type string
	Data string
}

// sseScanner reads Server-Sent Events. Events are delimited by blank lines;
// "data:" lines are joined with newlines, comments and unknown fields are
// skipped.
type sseScanner struct {
	reader  *bufio.Reader
	current sseEvent
	err     error
}

func newSSEScanner(reader io.Reader) *sseScanner {
	return &sseScanner{
		reader: bufio.NewReaderSize(reader, 64*1024),
	}
}

// Next advances to the next event. After it returns false, Err tells EOF
// apart from a read failure.
func (s *sseScanner) Next() bool {
	s.current = sseEvent{}
	if s.err != nil {
		return false
	}

	var dataLines []string
	var eventType string
	hasData := false

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF && hasData {
				s.current = sseEvent{Type: eventType, Data: strings.Join(dataLines, "\n")}
				s.err = io.EOF
				return true
			}
			s.err = err
			return false
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if hasData {
				s.current = sseEvent{Type: eventType, Data: strings.Join(dataLines, "\n")}
				return true
			}
			eventType = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, hasColon := strings.Cut(line, ":")
		if !hasColon {
			field = line
			value = ""
		} else {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "data":
			dataLines = append(dataLines, value)
			hasData = true
		case "event":
			eventType = value
		}
	}
}

func (s *sseScanner) Event() sseEvent {
	return s.current
}

// Err returns the first non-EOF error.
func (s *sseScanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
