// Package protocol defines the wire events exchanged between chat clients and
// the server, along with a strict JSON codec for them.
//
// Every frame is a single UTF-8 JSON object carrying a "type" discriminant plus
// the variant's own fields. Decode never coerces one variant into another: an
// unknown discriminant, a missing required field, an unexpected field, or a
// type mismatch all fail with a *MalformedEventError.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wire discriminants, one per event variant. They are fixed constants of the
// schema, never taken from caller data.
const (
	TypeHello      = "hello"
	TypeMessage    = "message"
	TypeStatus     = "status"
	TypeJoinRoom   = "join"
	TypeSend       = "send"
	TypeChangeName = "change_name"
)

// Event is the closed set of messages that travel over a chat connection.
// The six variants in this package are the only implementations.
type Event interface {
	eventType() string
}

// Hello is sent by the server exactly once per connection, before anything
// else, announcing the id assigned to the connecting user.
type Hello struct {
	UserID string `json:"user_id"`
}

// Message carries chat content from the server to clients.
type Message struct {
	TimestampMs int64  `json:"timestamp_ms"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	Text        string `json:"message"`
}

// Status carries membership and rename notices from the server to clients.
type Status struct {
	TimestampMs   int64  `json:"timestamp_ms"`
	UserID        string `json:"user_id"`
	UserName      string `json:"user_name"`
	StatusMessage string `json:"status_message"`
}

// JoinRoom is a client request to switch to the named room.
type JoinRoom struct {
	RoomName string `json:"room_name"`
}

// SendMessage is a client chat submission.
type SendMessage struct {
	Text string `json:"message"`
}

// ChangeName is a client request to change its display name.
type ChangeName struct {
	NewName string `json:"new_name"`
}

func (Hello) eventType() string       { return TypeHello }
func (Message) eventType() string     { return TypeMessage }
func (Status) eventType() string      { return TypeStatus }
func (JoinRoom) eventType() string    { return TypeJoinRoom }
func (SendMessage) eventType() string { return TypeSend }
func (ChangeName) eventType() string  { return TypeChangeName }

// MalformedEventError reports that a frame could not be decoded into any
// event variant. It is the only error Decode returns.
type MalformedEventError struct {
	Reason string
	Err    error
}

func (e *MalformedEventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed event: %s: %v", e.Reason, e.Err)
	}
	return "malformed event: " + e.Reason
}

func (e *MalformedEventError) Unwrap() error { return e.Err }

func malformed(reason string, err error) error {
	return &MalformedEventError{Reason: reason, Err: err}
}

// Encode serializes an event as a single JSON frame, stamping the variant's
// fixed discriminant into the "type" field.
func Encode(evt Event) ([]byte, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", evt.eventType(), err)
	}

	frame := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &frame); err != nil {
		return nil, fmt.Errorf("encode %s event: %w", evt.eventType(), err)
	}
	tag, err := json.Marshal(evt.eventType())
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", evt.eventType(), err)
	}
	frame["type"] = tag

	return json.Marshal(frame)
}

// decoders routes a discriminant to its variant decoder. Adding a variant
// without an entry here makes the variant undecodable, which the codec tests
// catch.
var decoders = map[string]func([]byte) (Event, error){
	TypeHello:      decodeHello,
	TypeMessage:    decodeMessage,
	TypeStatus:     decodeStatus,
	TypeJoinRoom:   decodeJoinRoom,
	TypeSend:       decodeSendMessage,
	TypeChangeName: decodeChangeName,
}

// Decode parses one frame into its event variant. It is pure: no side
// effects, and the input is never retained.
func Decode(frame []byte) (Event, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		return nil, malformed("frame is not a JSON object", err)
	}
	if head.Type == nil || *head.Type == "" {
		return nil, malformed("missing type discriminant", nil)
	}

	decode, ok := decoders[*head.Type]
	if !ok {
		return nil, malformed(fmt.Sprintf("unknown type %q", *head.Type), nil)
	}
	return decode(frame)
}

// decodeStrict unmarshals a frame into a wire struct, rejecting fields the
// struct does not declare.
func decodeStrict(frame []byte, kind string, wire any) error {
	dec := json.NewDecoder(bytes.NewReader(frame))
	dec.DisallowUnknownFields()
	if err := dec.Decode(wire); err != nil {
		return malformed(fmt.Sprintf("invalid %s event", kind), err)
	}
	return nil
}

// The wire structs use pointers so that an absent required field is
// distinguishable from its zero value.

func decodeHello(frame []byte) (Event, error) {
	var w struct {
		Type   string  `json:"type"`
		UserID *string `json:"user_id"`
	}
	if err := decodeStrict(frame, TypeHello, &w); err != nil {
		return nil, err
	}
	if w.UserID == nil {
		return nil, malformed("hello event missing user_id", nil)
	}
	return Hello{UserID: *w.UserID}, nil
}

func decodeMessage(frame []byte) (Event, error) {
	var w struct {
		Type        string  `json:"type"`
		TimestampMs *int64  `json:"timestamp_ms"`
		UserID      *string `json:"user_id"`
		UserName    *string `json:"user_name"`
		Text        *string `json:"message"`
	}
	if err := decodeStrict(frame, TypeMessage, &w); err != nil {
		return nil, err
	}
	if w.TimestampMs == nil || w.UserID == nil || w.UserName == nil || w.Text == nil {
		return nil, malformed("message event missing required field", nil)
	}
	return Message{
		TimestampMs: *w.TimestampMs,
		UserID:      *w.UserID,
		UserName:    *w.UserName,
		Text:        *w.Text,
	}, nil
}

func decodeStatus(frame []byte) (Event, error) {
	var w struct {
		Type          string  `json:"type"`
		TimestampMs   *int64  `json:"timestamp_ms"`
		UserID        *string `json:"user_id"`
		UserName      *string `json:"user_name"`
		StatusMessage *string `json:"status_message"`
	}
	if err := decodeStrict(frame, TypeStatus, &w); err != nil {
		return nil, err
	}
	if w.TimestampMs == nil || w.UserID == nil || w.UserName == nil || w.StatusMessage == nil {
		return nil, malformed("status event missing required field", nil)
	}
	return Status{
		TimestampMs:   *w.TimestampMs,
		UserID:        *w.UserID,
		UserName:      *w.UserName,
		StatusMessage: *w.StatusMessage,
	}, nil
}

func decodeJoinRoom(frame []byte) (Event, error) {
	var w struct {
		Type     string  `json:"type"`
		RoomName *string `json:"room_name"`
	}
	if err := decodeStrict(frame, TypeJoinRoom, &w); err != nil {
		return nil, err
	}
	if w.RoomName == nil {
		return nil, malformed("join event missing room_name", nil)
	}
	return JoinRoom{RoomName: *w.RoomName}, nil
}

func decodeSendMessage(frame []byte) (Event, error) {
	var w struct {
		Type string  `json:"type"`
		Text *string `json:"message"`
	}
	if err := decodeStrict(frame, TypeSend, &w); err != nil {
		return nil, err
	}
	if w.Text == nil {
		return nil, malformed("send event missing message", nil)
	}
	return SendMessage{Text: *w.Text}, nil
}

func decodeChangeName(frame []byte) (Event, error) {
	var w struct {
		Type    string  `json:"type"`
		NewName *string `json:"new_name"`
	}
	if err := decodeStrict(frame, TypeChangeName, &w); err != nil {
		return nil, err
	}
	if w.NewName == nil {
		return nil, malformed("change_name event missing new_name", nil)
	}
	return ChangeName{NewName: *w.NewName}, nil
}
