// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// Package service spawns and supervises service plugin instances.
//
// A service is prepared in two steps so the Add reply can be written
// before the plugin starts: Prepare opens the database, allocates the
// id and registers the task; Launch hands a driver to the supervision
// tree, where the plugin is loaded and run until its cancel fires.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/dududaa/ppdrive/internal/config"
	"github.com/dududaa/ppdrive/internal/database"
	"github.com/dududaa/ppdrive/internal/logging"
	"github.com/dududaa/ppdrive/internal/plugin"
	"github.com/dududaa/ppdrive/internal/registry"
)

// Starter runs a prepared service task until its context is done. The
// default implementation loads the service plugin; tests substitute a
// stub.
type Starter interface {
	Start(ctx context.Context, task *registry.ServiceTask) error
}

// Runtime ties the registry and the supervision tree together.
type Runtime struct {
	reg     *registry.Registry
	tree    *suture.Supervisor
	starter Starter
}

// NewRuntime creates a runtime that launches drivers under tree.
func NewRuntime(reg *registry.Registry, tree *suture.Supervisor, starter Starter) *Runtime {
	if starter == nil {
		starter = &PluginStarter{}
	}
	return &Runtime{reg: reg, tree: tree, starter: starter}
}

// Prepare validates the config, opens the service database and
// registers a fresh task. The returned task is committed: its id is
// visible to List and Cancel.
func (rt *Runtime) Prepare(ctx context.Context, cfg *config.ServiceConfig) (*registry.ServiceTask, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, cfg.Base.DBURL)
	if err != nil {
		return nil, err
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	task := &registry.ServiceTask{
		Config: cfg,
		Ctx:    taskCtx,
		Cancel: cancel,
		DB:     db,
	}

	if err := rt.reg.Add(task); err != nil {
		cancel()
		_ = db.Close()
		return nil, err
	}
	return task, nil
}

// Launch adds the task's driver to the supervision tree. The driver
// owns the database handle from here on and closes it when the plugin
// returns.
func (rt *Runtime) Launch(task *registry.ServiceTask) {
	token := rt.tree.Add(&driver{task: task, starter: rt.starter})
	rt.reg.SetSupToken(task.ID, token)
}

// driver adapts one service task to suture.Service.
type driver struct {
	task    *registry.ServiceTask
	starter Starter
}

func (d *driver) String() string {
	return fmt.Sprintf("service-%d", d.task.ID)
}

// Serve runs the plugin until the task cancel or the supervisor
// context fires. A plugin failure is logged and fires the task's
// cancel; the task record stays in the registry so a later Cancel or
// Stop reconciles it. The driver never restarts.
func (d *driver) Serve(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(d.task.Ctx, cancel)
	defer stop()

	defer func() {
		if err := d.task.DB.Close(); err != nil {
			logging.Warn().Err(err).Uint8("service", d.task.ID).Msg("closing service database")
		}
	}()

	err := d.starter.Start(runCtx, d.task)
	if err != nil && runCtx.Err() == nil {
		logging.Error().Err(err).Uint8("service", d.task.ID).Msg("service failure")
		d.task.Cancel()
		return errors.Join(err, suture.ErrDoNotRestart)
	}

	logging.Info().Uint8("service", d.task.ID).Msg("service closed")
	return suture.ErrDoNotRestart
}

// PluginStarter loads the service plugin and invokes its entry point.
type PluginStarter struct {
	// InstallDir overrides plugin install directory resolution.
	InstallDir string
}

func (s *PluginStarter) Start(ctx context.Context, task *registry.ServiceTask) error {
	cfg := task.Config
	svc := plugin.ServiceFor(cfg)

	opts := plugin.PreloadOptions{
		AutoInstall: cfg.AutoInstall,
		Reload:      cfg.ReloadDeps,
		InstallDir:  s.InstallDir,
	}
	if err := plugin.PreloadWithDeps(svc, opts); err != nil {
		return err
	}

	dir, err := plugin.InstallDir(s.InstallDir)
	if err != nil {
		return err
	}
	lib, err := plugin.Open(plugin.BinaryPath(svc, dir))
	if err != nil {
		return err
	}
	// Retain the handle for the task's lifetime.
	task.Lib = lib

	startSvc, err := lib.ResolveStartSvc()
	if err != nil {
		return err
	}
	return startSvc(ctx, cfg, task.DB)
}
