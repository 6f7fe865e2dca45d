// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// Package cli is the wire client the ppdrive command uses to talk to
// the service manager: one connection, one framed request, one framed
// response.
package cli

import (
	"fmt"
	"net"
	"time"

	"github.com/dududaa/ppdrive/internal/config"
	"github.com/dududaa/ppdrive/internal/logging"
	"github.com/dududaa/ppdrive/internal/pperr"
	"github.com/dududaa/ppdrive/internal/protocol"
)

// DialTimeout bounds the connection attempt to the manager.
const DialTimeout = 5 * time.Second

// Client sends control requests to a manager instance.
type Client struct {
	Port uint16
}

// Addr is the manager's control address.
func (c *Client) Addr() string {
	port := c.Port
	if port == 0 {
		port = config.DefaultManagerPort
	}
	return fmt.Sprintf("0.0.0.0:%d", port)
}

// send performs one request/response exchange.
func (c *Client) send(req protocol.Request) (protocol.Response, error) {
	conn, err := net.DialTimeout("tcp", c.Addr(), DialTimeout)
	if err != nil {
		return protocol.Response{}, pperr.Wrapf(pperr.KindIO, err, "connect to manager at %s", c.Addr())
	}
	defer conn.Close()

	if err := protocol.WriteRequest(conn, req); err != nil {
		return protocol.Response{}, err
	}
	resp, err := protocol.ReadResponse(conn)
	if err != nil {
		return protocol.Response{}, err
	}

	logResponse(resp)
	return resp, nil
}

// logResponse surfaces the manager's message at the level implied by
// the response kind.
func logResponse(resp protocol.Response) {
	msg := resp.Message
	if msg == "" {
		msg = "no message"
	}
	if resp.IsSuccess() {
		logging.Info().Msg(msg)
	} else {
		logging.Error().Msg(msg)
	}
}

// respErr folds an error-kind response into an error for exit-code
// handling.
func respErr(resp protocol.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	if resp.Message != "" {
		return pperr.New(pperr.KindInternal, resp.Message)
	}
	return pperr.New(pperr.KindInternal, "manager reported an error")
}

// Add asks the manager to start a service and returns the assigned id.
func (c *Client) Add(cfg *config.ServiceConfig) (uint8, error) {
	resp, err := c.send(protocol.Request{Op: protocol.OpAdd, Config: cfg})
	if err != nil {
		return 0, err
	}
	if err := respErr(resp); err != nil {
		return 0, err
	}
	return protocol.DecodeBody[uint8](resp)
}

// Cancel stops the service with the given id.
func (c *Client) Cancel(id uint8) error {
	resp, err := c.send(protocol.Request{Op: protocol.OpCancel, ServiceID: id})
	if err != nil {
		return err
	}
	return respErr(resp)
}

// List fetches the running services.
func (c *Client) List() ([]protocol.ServiceInfo, error) {
	resp, err := c.send(protocol.Request{Op: protocol.OpList})
	if err != nil {
		return nil, err
	}
	if err := respErr(resp); err != nil {
		return nil, err
	}
	return protocol.DecodeBody[[]protocol.ServiceInfo](resp)
}

// Stop shuts the whole manager down.
func (c *Client) Stop() error {
	resp, err := c.send(protocol.Request{Op: protocol.OpStop})
	if err != nil {
		return err
	}
	return respErr(resp)
}

// CheckStatus probes whether a manager is reachable.
func (c *Client) CheckStatus() error {
	resp, err := c.send(protocol.Request{Op: protocol.OpCheckStatus})
	if err != nil {
		return err
	}
	return respErr(resp)
}

// CreateClient registers a client against the service's database.
func (c *Client) CreateClient(svcID uint8, name string, maxBucketSize *float64) (protocol.ClientDetails, error) {
	resp, err := c.send(protocol.Request{
		Op:            protocol.OpCreateClient,
		ServiceID:     svcID,
		ClientName:    name,
		MaxBucketSize: maxBucketSize,
	})
	if err != nil {
		return protocol.ClientDetails{}, err
	}
	if err := respErr(resp); err != nil {
		return protocol.ClientDetails{}, err
	}
	return protocol.DecodeBody[protocol.ClientDetails](resp)
}

// RefreshClientToken rotates a client's key and returns the new token.
func (c *Client) RefreshClientToken(svcID uint8, clientID string) (string, error) {
	resp, err := c.send(protocol.Request{
		Op:        protocol.OpRefreshClientToken,
		ServiceID: svcID,
		ClientID:  clientID,
	})
	if err != nil {
		return "", err
	}
	if err := respErr(resp); err != nil {
		return "", err
	}
	return protocol.DecodeBody[string](resp)
}

// Clients lists the clients registered against the service's database.
func (c *Client) Clients(svcID uint8) ([]protocol.ClientInfo, error) {
	resp, err := c.send(protocol.Request{Op: protocol.OpGetClientList, ServiceID: svcID})
	if err != nil {
		return nil, err
	}
	if err := respErr(resp); err != nil {
		return nil, err
	}
	return protocol.DecodeBody[[]protocol.ClientInfo](resp)
}
