package window

import (
	"context"
	"sync"
	"testing"
	"time"

	"daybook/internal/bus"
	"daybook/internal/core/model"
	"daybook/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	mu        sync.Mutex
	visible   bool
	destroyed bool
	position  Point
	size      Size
	moves     int
}

func (surface *fakeSurface) Move(point Point) {
	surface.mu.Lock()
	defer surface.mu.Unlock()
	surface.position = point
	surface.moves++
}

func (surface *fakeSurface) Resize(size Size) {
	surface.mu.Lock()
	defer surface.mu.Unlock()
	surface.size = size
}

func (surface *fakeSurface) Show() {
	surface.mu.Lock()
	defer surface.mu.Unlock()
	surface.visible = true
}

func (surface *fakeSurface) Hide() {
	surface.mu.Lock()
	defer surface.mu.Unlock()
	surface.visible = false
}

func (surface *fakeSurface) Destroy() {
	surface.mu.Lock()
	defer surface.mu.Unlock()
	surface.destroyed = true
	surface.visible = false
}

type fakeHost struct {
	primary      Rect
	display      Rect
	fullScreen   bool
	created      int
	surface      *fakeSurface
	events       SurfaceEvents
	loadOnCreate bool
}

func (host *fakeHost) PrimaryBounds() Rect     { return host.primary }
func (host *fakeHost) PrimaryFullScreen() bool { return host.fullScreen }
func (host *fakeHost) DisplayBounds() Rect     { return host.display }

func (host *fakeHost) CreateCompanion(size Size, events SurfaceEvents) Surface {
	host.created++
	host.surface = &fakeSurface{size: size}
	host.events = events
	if host.loadOnCreate {
		events.OnLoaded()
	}
	return host.surface
}

func newTestManager() (*Manager, *fakeHost) {
	host := &fakeHost{
		primary: Rect{X: 100, Y: 50, Width: 900, Height: 670},
		display: Rect{Width: 1920, Height: 1080},
	}
	return New(host, model.DefaultCompanionConfig(), logging.Discard()), host
}

func TestShowCreatesThenBecomesVisibleOnLoad(t *testing.T) {
	manager, host := newTestManager()
	assert.Equal(t, StateAbsent, manager.State())

	manager.Show()
	assert.Equal(t, StateCreating, manager.State())
	require.Equal(t, 1, host.created)
	assert.False(t, host.surface.visible)

	host.events.OnLoaded()
	assert.Equal(t, StateVisible, manager.State())
	assert.True(t, host.surface.visible)
	assert.Equal(t, Point{X: 100 + 900 - 300 - 20, Y: 50 + 670 - 80 - 20}, host.surface.position)
}

func TestSynchronousLoadDuringCreate(t *testing.T) {
	manager, host := newTestManager()
	host.loadOnCreate = true

	manager.Show()
	assert.Equal(t, StateVisible, manager.State())
	assert.True(t, host.surface.visible)
}

func TestCloseRequestHidesAndShowReuses(t *testing.T) {
	manager, host := newTestManager()
	manager.Show()
	host.events.OnLoaded()

	host.events.OnCloseRequest()
	assert.Equal(t, StateHidden, manager.State())
	assert.False(t, host.surface.visible)
	assert.False(t, host.surface.destroyed)

	manager.Show()
	assert.Equal(t, StateVisible, manager.State())
	assert.Equal(t, 1, host.created)
	assert.True(t, host.surface.visible)
}

func TestHideDuringCreationHidesOnLoad(t *testing.T) {
	manager, host := newTestManager()
	manager.Show()
	manager.Hide()
	host.events.OnLoaded()

	assert.Equal(t, StateHidden, manager.State())
	assert.False(t, host.surface.visible)
}

func TestHideWhileAbsentIsNoop(t *testing.T) {
	manager, host := newTestManager()
	manager.Hide()
	assert.Equal(t, StateAbsent, manager.State())
	assert.Zero(t, host.created)
}

func TestRepositionOnPrimaryResizeAndFullScreen(t *testing.T) {
	manager, host := newTestManager()
	manager.Show()
	host.events.OnLoaded()

	host.primary.Width = 1200
	manager.PrimaryResized()
	assert.Equal(t, float32(100+1200-300-20), host.surface.position.X)

	host.fullScreen = true
	manager.FullScreenChanged()
	assert.Equal(t, Point{X: (1920 - 300) / 2, Y: (1080 - 80) / 2}, host.surface.position)
}

func TestSetLargeResizesAndReanchors(t *testing.T) {
	manager, host := newTestManager()
	manager.Show()
	host.events.OnLoaded()

	manager.SetLarge(true)
	assert.True(t, manager.Large())
	assert.Equal(t, Size{Width: 300, Height: 260}, host.surface.size)
	assert.Equal(t, float32(50+670-260-20), host.surface.position.Y)

	moves := host.surface.moves
	manager.SetLarge(true)
	assert.Equal(t, moves, host.surface.moves)
}

func TestShutdownDestroysFromAnyState(t *testing.T) {
	manager, host := newTestManager()
	var states []State
	manager.OnStateChange(func(state State) { states = append(states, state) })

	manager.Show()
	host.events.OnLoaded()
	manager.Shutdown()

	assert.Equal(t, StateDestroyed, manager.State())
	assert.True(t, host.surface.destroyed)
	assert.Equal(t, []State{StateCreating, StateVisible, StateDestroyed}, states)

	manager.Show()
	manager.Shutdown()
	assert.Equal(t, StateDestroyed, manager.State())
	assert.Equal(t, 1, host.created)
}

func TestPlacementClampsToPrimaryOrigin(t *testing.T) {
	point := Placement(Rect{X: 10, Y: 10, Width: 200, Height: 50}, Rect{}, false, Size{Width: 300, Height: 80}, 20)
	assert.Equal(t, Point{X: 10, Y: 10}, point)
}

func TestServeRoutesTopics(t *testing.T) {
	manager, host := newTestManager()
	host.loadOnCreate = true
	b := bus.New(logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		manager.Serve(ctx, b)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		b.Publish(bus.TopicShowGoalsWindow, nil)
		return manager.State() == StateVisible
	}, time.Second, 5*time.Millisecond)

	b.Publish(bus.TopicGoalsWindowSize, true)
	require.Eventually(t, manager.Large, time.Second, time.Millisecond)

	b.Publish(bus.TopicHideGoalsWindow, nil)
	require.Eventually(t, func() bool { return manager.State() == StateHidden }, time.Second, time.Millisecond)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "visible", StateVisible.String())
	assert.Equal(t, "unknown", State(42).String())
}
