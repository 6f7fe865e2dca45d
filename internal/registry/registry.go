// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// Package registry tracks the set of live service tasks owned by the
// manager.
package registry

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/thejerf/suture/v4"

	"github.com/dududaa/ppdrive/internal/config"
	"github.com/dududaa/ppdrive/internal/database"
	"github.com/dududaa/ppdrive/internal/plugin"
	"github.com/dududaa/ppdrive/internal/pperr"
	"github.com/dududaa/ppdrive/internal/protocol"
)

// maxIDAttempts bounds the random id re-rolls on collision. Ids are a
// single byte, so 256 concurrent services is the hard ceiling.
const maxIDAttempts = 8

// ServiceTask is one live service. The registry exclusively owns the
// record; the plugin only ever sees the shared config, the db handle
// and the cancellation context.
type ServiceTask struct {
	// ID is the task's registry handle, unique among live tasks.
	ID uint8

	// Config is shared read-only with the plugin.
	Config *config.ServiceConfig

	// Ctx is canceled to stop the service; Cancel fires it. Firing is
	// idempotent.
	Ctx    context.Context
	Cancel context.CancelFunc

	// DB is the service's database handle, opened by the core and
	// shared with the plugin.
	DB *database.DB

	// Lib is the loaded plugin library; retained so the handle
	// outlives every reference inside the task.
	Lib *plugin.Library

	// SupToken identifies the task's driver inside the supervision
	// tree, once launched.
	SupToken suture.ServiceToken
}

// Info projects the task for List replies.
func (t *ServiceTask) Info() protocol.ServiceInfo {
	return protocol.ServiceInfo{
		ID:        t.ID,
		Port:      t.Config.Base.Port,
		Kind:      t.Config.Kind,
		AuthModes: t.Config.Auth.Modes,
	}
}

// Registry is a mutex-guarded ordered collection of live tasks. The
// lock is held across structural operations only, never across plugin
// calls or I/O.
type Registry struct {
	mu    sync.Mutex
	tasks []*ServiceTask
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// Add assigns a random unused id to task and appends it. After
// maxIDAttempts collisions the add fails; the caller surfaces the
// error on the control connection.
func (r *Registry) Add(task *ServiceTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := uint8(rand.IntN(256))
		if r.findLocked(id) >= 0 {
			continue
		}
		task.ID = id
		r.tasks = append(r.tasks, task)
		return nil
	}
	return pperr.Newf(pperr.KindInternal,
		"unable to allocate a service id after %d attempts; cancel a service and retry", maxIDAttempts)
}

// Remove detaches the task with the given id, returning it.
func (r *Registry) Remove(id uint8) (*ServiceTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.findLocked(id)
	if idx < 0 {
		return nil, false
	}
	task := r.tasks[idx]
	r.tasks = append(r.tasks[:idx], r.tasks[idx+1:]...)
	return task, true
}

// Get returns the task with the given id. The caller may use the
// task's DB handle after the lock is released; the handle is safe for
// concurrent use and the record's identity fields are immutable.
func (r *Registry) Get(id uint8) (*ServiceTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.findLocked(id)
	if idx < 0 {
		return nil, false
	}
	return r.tasks[idx], true
}

// SetSupToken records the supervision token of a launched task.
func (r *Registry) SetSupToken(id uint8, token suture.ServiceToken) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx := r.findLocked(id); idx >= 0 {
		r.tasks[idx].SupToken = token
	}
}

// Snapshot projects every live task.
func (r *Registry) Snapshot() []protocol.ServiceInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]protocol.ServiceInfo, 0, len(r.tasks))
	for _, task := range r.tasks {
		infos = append(infos, task.Info())
	}
	return infos
}

// CancelAll fires every task's cancel and empties the registry.
// Returns the detached tasks so the caller can release resources
// outside the lock.
func (r *Registry) CancelAll() []*ServiceTask {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = nil
	r.mu.Unlock()

	for _, task := range tasks {
		task.Cancel()
	}
	return tasks
}

// Len reports the number of live tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func (r *Registry) findLocked(id uint8) int {
	for i, task := range r.tasks {
		if task.ID == id {
			return i
		}
	}
	return -1
}
