// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// Package protocol implements the control wire protocol spoken between
// the CLI and the service manager over loopback TCP.
//
// Each exchange is one framed request followed by one framed response.
// A frame is a 4-byte big-endian length prefix and a JSON payload.
// Request payloads are bounded at MaxRequestSize; a peer sending more
// is rejected before the body is read.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/dududaa/ppdrive/internal/config"
	"github.com/dududaa/ppdrive/internal/pperr"
)

// MaxRequestSize bounds a request payload in bytes.
const MaxRequestSize = 1024

// MaxResponseSize bounds a response payload in bytes. Responses carry
// service and client listings, so the bound is looser than for
// requests.
const MaxResponseSize = 1 << 20

// Op tags a request variant.
type Op string

const (
	OpAdd                Op = "add"
	OpCancel             Op = "cancel"
	OpList               Op = "list"
	OpStop               Op = "stop"
	OpCreateClient       Op = "create_client"
	OpRefreshClientToken Op = "refresh_client_token"
	OpGetClientList      Op = "get_client_list"
	OpCheckStatus        Op = "check_status"
)

// Request is the control-plane request union. Op selects the variant;
// the remaining fields are meaningful per-variant only.
type Request struct {
	Op Op `json:"op"`

	// Config accompanies Add.
	Config *config.ServiceConfig `json:"config,omitempty"`

	// ServiceID accompanies Cancel, CreateClient, RefreshClientToken
	// and GetClientList.
	ServiceID uint8 `json:"service_id,omitempty"`

	// ClientName and MaxBucketSize accompany CreateClient.
	ClientName    string   `json:"client_name,omitempty"`
	MaxBucketSize *float64 `json:"max_bucket_size,omitempty"`

	// ClientID accompanies RefreshClientToken.
	ClientID string `json:"client_id,omitempty"`
}

// ResponseKind labels a response as success or error.
type ResponseKind string

const (
	KindSuccess ResponseKind = "success"
	KindError   ResponseKind = "error"
)

// Response is the envelope every reply is wrapped in. Body's concrete
// type depends on the request that produced it.
type Response struct {
	Kind    ResponseKind    `json:"kind"`
	Body    json.RawMessage `json:"body,omitempty"`
	Message string          `json:"message,omitempty"`
}

// ServiceInfo is the public projection of a running service.
type ServiceInfo struct {
	ID        uint8              `json:"id"`
	Port      uint16             `json:"port"`
	Kind      config.ServiceKind `json:"kind"`
	AuthModes []config.AuthMode  `json:"auth_modes"`
}

// ClientDetails is returned on client creation.
type ClientDetails struct {
	ID    uint64 `json:"id"`
	Token string `json:"token"`
}

// ClientInfo is one entry of a client listing.
type ClientInfo struct {
	ID            uint64   `json:"id"`
	Name          string   `json:"name"`
	MaxBucketSize *float64 `json:"max_bucket_size,omitempty"`
}

// Success builds a success response carrying body.
func Success(body any) Response {
	raw, err := json.Marshal(body)
	if err != nil {
		return Error(fmt.Sprintf("encode response body: %v", err))
	}
	return Response{Kind: KindSuccess, Body: raw}
}

// Error builds an error response carrying msg.
func Error(msg string) Response {
	return Response{Kind: KindError, Message: msg}
}

// WithMessage returns a copy of r with the message set.
func (r Response) WithMessage(format string, args ...any) Response {
	r.Message = fmt.Sprintf(format, args...)
	return r
}

// IsSuccess reports whether r is a success response.
func (r Response) IsSuccess() bool { return r.Kind == KindSuccess }

// DecodeBody decodes the response body into T.
func DecodeBody[T any](r Response) (T, error) {
	var body T
	if len(r.Body) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return body, pperr.Wrapf(pperr.KindInternal, err, "decode response body")
	}
	return body, nil
}

// WriteRequest frames and writes one request.
func WriteRequest(w io.Writer, req Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return pperr.Wrapf(pperr.KindInternal, err, "encode request")
	}
	if len(payload) > MaxRequestSize {
		return pperr.Newf(pperr.KindInternal, "request payload %d bytes exceeds limit %d", len(payload), MaxRequestSize)
	}
	return writeFrame(w, payload)
}

// ReadRequest reads and decodes one framed request, enforcing
// MaxRequestSize before the payload is read.
func ReadRequest(r io.Reader) (Request, error) {
	var req Request
	payload, err := readFrame(r, MaxRequestSize)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, pperr.Wrapf(pperr.KindInternal, err, "decode request")
	}
	return req, nil
}

// WriteResponse frames and writes one response.
func WriteResponse(w io.Writer, resp Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return pperr.Wrapf(pperr.KindInternal, err, "encode response")
	}
	return writeFrame(w, payload)
}

// ReadResponse reads and decodes one framed response.
func ReadResponse(r io.Reader) (Response, error) {
	var resp Response
	payload, err := readFrame(r, MaxResponseSize)
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(payload, &resp); err != nil {
		return resp, pperr.Wrapf(pperr.KindInternal, err, "decode response")
	}
	return resp, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(payload)))
	copy(frame[4:], payload)
	if _, err := w.Write(frame); err != nil {
		return pperr.Wrapf(pperr.KindIO, err, "write frame")
	}
	return nil
}

func readFrame(r io.Reader, limit uint32) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, pperr.Wrapf(pperr.KindIO, err, "read frame header")
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size == 0 {
		return nil, pperr.New(pperr.KindInternal, "invalid packet received")
	}
	if size > limit {
		return nil, pperr.Newf(pperr.KindInternal, "frame of %d bytes exceeds limit %d", size, limit)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, pperr.Wrapf(pperr.KindIO, err, "read frame payload")
	}
	return payload, nil
}
