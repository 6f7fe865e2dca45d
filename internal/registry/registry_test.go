// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dududaa/ppdrive/internal/config"
)

func newTask() *ServiceTask {
	cfg := &config.ServiceConfig{
		Kind: config.ServiceRest,
		Base: config.ServiceBase{Port: 5000},
		Auth: config.ServiceAuth{Modes: []config.AuthMode{config.AuthClient}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ServiceTask{Config: cfg, Ctx: ctx, Cancel: cancel}
}

func TestAddAssignsUniqueIDs(t *testing.T) {
	r := New()

	seen := make(map[uint8]bool)
	for i := 0; i < 100; i++ {
		task := newTask()
		require.NoError(t, r.Add(task))
		assert.False(t, seen[task.ID], "id %d assigned twice", task.ID)
		seen[task.ID] = true
	}
	assert.Equal(t, 100, r.Len())
}

func TestRemove(t *testing.T) {
	r := New()
	task := newTask()
	require.NoError(t, r.Add(task))

	got, ok := r.Remove(task.ID)
	require.True(t, ok)
	assert.Same(t, task, got)
	assert.Zero(t, r.Len())

	_, ok = r.Remove(task.ID)
	assert.False(t, ok, "second remove of the same id must miss")
}

func TestGetReleasesNothing(t *testing.T) {
	r := New()
	task := newTask()
	require.NoError(t, r.Add(task))

	got, ok := r.Get(task.ID)
	require.True(t, ok)
	assert.Same(t, task, got)
	assert.Equal(t, 1, r.Len(), "lookup must not remove the task")

	_, ok = r.Get(task.ID + 1)
	assert.False(t, ok)
}

func TestSnapshotProjection(t *testing.T) {
	r := New()
	task := newTask()
	require.NoError(t, r.Add(task))

	infos := r.Snapshot()
	require.Len(t, infos, 1)
	assert.Equal(t, task.ID, infos[0].ID)
	assert.Equal(t, uint16(5000), infos[0].Port)
	assert.Equal(t, config.ServiceRest, infos[0].Kind)
	assert.Equal(t, []config.AuthMode{config.AuthClient}, infos[0].AuthModes)
}

func TestCancelAll(t *testing.T) {
	r := New()
	tasks := make([]*ServiceTask, 0, 8)
	for i := 0; i < 8; i++ {
		task := newTask()
		require.NoError(t, r.Add(task))
		tasks = append(tasks, task)
	}

	detached := r.CancelAll()
	assert.Len(t, detached, 8)
	assert.Zero(t, r.Len())
	for _, task := range tasks {
		select {
		case <-task.Ctx.Done():
		default:
			t.Fatalf("task %d not canceled", task.ID)
		}
	}

	// A drained registry cancels nothing further.
	assert.Empty(t, r.CancelAll())
}

func TestIDCeiling(t *testing.T) {
	r := New()

	// Occupy every id so allocation cannot succeed.
	for i := 0; i < 256; i++ {
		task := newTask()
		task.ID = uint8(i)
		r.tasks = append(r.tasks, task)
	}

	err := r.Add(newTask())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to allocate a service id")
}

func TestConcurrentAddRemove(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	ids := make(chan uint8, 64)

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := newTask()
			if err := r.Add(task); err == nil {
				ids <- task.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint8]bool)
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}

	for id := range seen {
		_, ok := r.Remove(id)
		assert.True(t, ok)
	}
	assert.Zero(t, r.Len())
}
