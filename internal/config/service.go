// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

package config

import (
	"github.com/go-playground/validator/v10"

	"github.com/dududaa/ppdrive/internal/pperr"
)

// ServiceKind selects the transport a service speaks.
type ServiceKind string

const (
	ServiceRest ServiceKind = "rest"
	ServiceGrpc ServiceKind = "grpc"
)

// AuthMode selects a route variant mounted by a service.
type AuthMode string

const (
	AuthClient AuthMode = "client"
	AuthDirect AuthMode = "direct"
	AuthZero   AuthMode = "zero"
)

// Defaults applied by ApplyDefaults before validation.
const (
	DefaultDBURL       = "sqlite://db.sqlite"
	DefaultServicePort = 5000
	DefaultMaxUploadMB = 10
	DefaultAccessExp   = 900
	DefaultRefreshExp  = 86400
	DefaultBearer      = "Bearer"
)

// ServiceBase holds the transport-independent settings of a service.
type ServiceBase struct {
	// DBURL is the database the service persists to. The URL scheme
	// selects the driver: sqlite, postgres, mysql or mssql.
	DBURL string `json:"db_url" koanf:"db_url" validate:"required"`

	// Port the service binds its own listener to.
	Port uint16 `json:"port" koanf:"port" validate:"required"`

	// MaxUploadMB caps request content size (MB).
	MaxUploadMB int `json:"max_upload_mb" koanf:"max_upload_mb" validate:"min=1"`

	// AllowedOrigins is the CORS allow-list. Empty means allow all.
	AllowedOrigins []string `json:"allowed_origins,omitempty" koanf:"allowed_origins"`
}

// ServiceAuth holds the authentication settings of a service.
type ServiceAuth struct {
	// Modes lists the route variants the service mounts; one router
	// plugin is loaded per mode.
	Modes []AuthMode `json:"modes" koanf:"modes" validate:"min=1,dive,oneof=client direct zero"`

	// AccessExpSeconds is the JWT access token lifetime. Zero or
	// negative disables access tokens.
	AccessExpSeconds int64 `json:"access_exp_seconds" koanf:"access_exp_seconds"`

	// RefreshExpSeconds is the JWT refresh token lifetime. Zero or
	// negative disables refresh tokens.
	RefreshExpSeconds int64 `json:"refresh_exp_seconds" koanf:"refresh_exp_seconds"`

	// BearerPrefix is the expected Authorization scheme.
	BearerPrefix string `json:"bearer_prefix" koanf:"bearer_prefix"`

	// ExternalURL points at an external authentication service, when
	// one is used.
	ExternalURL string `json:"external_url,omitempty" koanf:"external_url" validate:"omitempty,url"`
}

// ServiceConfig is the full configuration of one service instance. It
// crosses the control wire on Add and is immutable once the service is
// spawned; the plugin observes it through a shared pointer and must not
// mutate it.
type ServiceConfig struct {
	Kind ServiceKind `json:"kind" koanf:"kind" validate:"oneof=rest grpc"`
	Base ServiceBase `json:"base" koanf:"base"`
	Auth ServiceAuth `json:"auth" koanf:"auth"`

	// AutoInstall allows missing plugin binaries to be installed
	// without prompting.
	AutoInstall bool `json:"auto_install" koanf:"auto_install"`

	// ReloadDeps forces plugin binaries to be re-installed even when
	// already present.
	ReloadDeps bool `json:"reload_deps" koanf:"reload_deps"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ApplyDefaults fills zero-valued fields with the documented defaults.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Kind == "" {
		c.Kind = ServiceRest
	}
	if c.Base.DBURL == "" {
		c.Base.DBURL = DefaultDBURL
	}
	if c.Base.Port == 0 {
		c.Base.Port = DefaultServicePort
	}
	if c.Base.MaxUploadMB == 0 {
		c.Base.MaxUploadMB = DefaultMaxUploadMB
	}
	if len(c.Auth.Modes) == 0 {
		c.Auth.Modes = []AuthMode{AuthClient}
	}
	if c.Auth.AccessExpSeconds == 0 {
		c.Auth.AccessExpSeconds = DefaultAccessExp
	}
	if c.Auth.RefreshExpSeconds == 0 {
		c.Auth.RefreshExpSeconds = DefaultRefreshExp
	}
	if c.Auth.BearerPrefix == "" {
		c.Auth.BearerPrefix = DefaultBearer
	}
}

// Validate checks the config after defaults have been applied.
func (c *ServiceConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pperr.Wrapf(pperr.KindConfiguration, err, "invalid service config")
	}
	return nil
}
