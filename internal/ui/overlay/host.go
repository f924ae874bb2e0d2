package overlay

import (
	"context"
	"sync"

	"daybook/internal/companion"
	"daybook/internal/window"

	"fyne.io/fyne/v2"
	"github.com/sirupsen/logrus"
)

// Host creates companion windows next to the primary fyne window. fyne does
// not report window positions, so the primary is anchored at the origin and
// its size comes from the layout that fills it.
type Host struct {
	app    fyne.App
	bus    companion.Bus
	ctx    context.Context
	logger *logrus.Entry

	mu         sync.Mutex
	config     Config
	size       window.Size
	fullScreen bool
	current    *Window
	stopped    bool
}

// NewHost returns a host whose companions read from b until ctx ends.
func NewHost(ctx context.Context, app fyne.App, b companion.Bus, config Config, logger *logrus.Entry) *Host {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Host{app: app, bus: b, ctx: ctx, logger: logger, config: config}
}

// TrackPrimary records the primary window's content size.
func (host *Host) TrackPrimary(size fyne.Size) {
	host.mu.Lock()
	defer host.mu.Unlock()
	host.size = window.Size{Width: size.Width, Height: size.Height}
}

// SetFullScreen records the primary window's full-screen flag.
func (host *Host) SetFullScreen(fullScreen bool) {
	host.mu.Lock()
	defer host.mu.Unlock()
	host.fullScreen = fullScreen
}

// UpdateConfig restyles the live companion and the next one created.
func (host *Host) UpdateConfig(config Config) {
	host.mu.Lock()
	host.config = config
	current := host.current
	host.mu.Unlock()
	if current != nil {
		current.UpdateConfig(config)
	}
}

// Stop marks the fyne loop as finished. Companions destroyed afterwards only
// release their controller; the driver already tore the windows down.
func (host *Host) Stop() {
	host.mu.Lock()
	defer host.mu.Unlock()
	host.stopped = true
}

func (host *Host) PrimaryBounds() window.Rect {
	host.mu.Lock()
	defer host.mu.Unlock()
	return window.Rect{Width: host.size.Width, Height: host.size.Height}
}

func (host *Host) PrimaryFullScreen() bool {
	host.mu.Lock()
	defer host.mu.Unlock()
	return host.fullScreen
}

// DisplayBounds is the primary's size; a full-screen primary covers the display.
func (host *Host) DisplayBounds() window.Rect {
	return host.PrimaryBounds()
}

// CreateCompanion builds and mounts a companion window. It blocks on the
// fyne main goroutine, so it must be called from elsewhere.
func (host *Host) CreateCompanion(size window.Size, events window.SurfaceEvents) window.Surface {
	host.mu.Lock()
	config := host.config
	host.mu.Unlock()

	var created *Window
	fyne.DoAndWait(func() {
		created = New(host.app, host.bus, config, events, host.logger.WithField("component", "companion"))
		created.window.Resize(fyne.NewSize(size.Width, size.Height))
	})
	if err := created.Mount(host.ctx); err != nil {
		host.logger.WithError(err).Warn("mount companion")
	}

	host.mu.Lock()
	host.current = created
	host.mu.Unlock()
	return &surface{Window: created, host: host}
}

// surface centres the companion instead of moving it while the primary is
// full-screen.
type surface struct {
	*Window
	host *Host
}

func (surface *surface) Move(point window.Point) {
	if surface.host.PrimaryFullScreen() {
		surface.Center()
		return
	}
	surface.Window.Move(point)
}

func (surface *surface) Destroy() {
	surface.host.mu.Lock()
	if surface.host.current == surface.Window {
		surface.host.current = nil
	}
	stopped := surface.host.stopped
	surface.host.mu.Unlock()
	if stopped {
		surface.controller.Unmount()
		return
	}
	surface.Window.Destroy()
}
