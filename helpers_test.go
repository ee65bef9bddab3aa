package satchel_test

import (
	"context"
	"sync"
	"time"

	"github.com/minus-twelve/satchel"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedID struct {
	name   string
	id     string
	maxAge time.Duration
}

type recordingWriter struct {
	written []recordedID
	cleared []string
}

func (w *recordingWriter) WriteID(name, id string, maxAge time.Duration) {
	w.written = append(w.written, recordedID{name: name, id: id, maxAge: maxAge})
}

func (w *recordingWriter) ClearID(name string) {
	w.cleared = append(w.cleared, name)
}

// fakeHandler records the calls a Session makes.
type fakeHandler struct {
	data   *satchel.Container
	timer  satchel.RotationTimer
	id     string
	name   string
	status satchel.Status
	calls  []string
	err    error
	// written holds the rotation deadline seen by each Write.
	written []int64
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{name: "sid", status: satchel.StatusNone}
}

func (h *fakeHandler) Bind(data *satchel.Container, timer satchel.RotationTimer) {
	h.data = data
	h.timer = timer
}

func (h *fakeHandler) ID() string { return h.id }
func (h *fakeHandler) SetID(id string) error { h.id = id; return nil }
func (h *fakeHandler) Name() string { return h.name }
func (h *fakeHandler) SetName(n string) error { h.name = n; return nil }
func (h *fakeHandler) Status() satchel.Status { return h.status }
func (h *fakeHandler) GC(context.Context) error { h.calls = append(h.calls, "gc"); return h.err }

func (h *fakeHandler) RegenerateID(context.Context) error {
	h.calls = append(h.calls, "regenerate")
	h.id += "'"
	return h.err
}

func (h *fakeHandler) Create(context.Context) error {
	h.calls = append(h.calls, "create")
	h.status = satchel.StatusActive
	h.id = "fresh"
	return h.err
}

func (h *fakeHandler) Start(context.Context) error {
	h.calls = append(h.calls, "start")
	h.status = satchel.StatusActive
	h.id = "loaded"
	return h.err
}

func (h *fakeHandler) Read(context.Context) error {
	h.calls = append(h.calls, "read")
	return h.err
}

func (h *fakeHandler) Write(context.Context) error {
	h.calls = append(h.calls, "write")
	h.written = append(h.written, h.timer.RotationDeadline())
	h.data.All()
	return h.err
}

func (h *fakeHandler) Stop(ctx context.Context) error {
	h.calls = append(h.calls, "stop")
	h.written = append(h.written, h.timer.RotationDeadline())
	h.data.All()
	h.status = satchel.StatusNone
	return h.err
}

func (h *fakeHandler) Destroy(context.Context) error {
	h.calls = append(h.calls, "destroy")
	h.status = satchel.StatusNone
	h.id = ""
	return h.err
}
