package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ringplayer/ringplayer/log"
	"github.com/ringplayer/ringplayer/looper"
	"github.com/ringplayer/ringplayer/renderer"
	"github.com/ringplayer/ringplayer/util"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

const (
	quitTimeout    = 3 * time.Second
	releaseTimeout = 5 * time.Second
)

// MPVOptions configures the mpv backend.
type MPVOptions struct {
	// Binary is the mpv executable. Defaults to "mpv".
	Binary    string
	UserAgent string
	// Title is the window title used when the surface has none.
	Title string
	// ExtraArgs are passed to mpv before the media target.
	ExtraArgs []string
}

// MPV is an Engine that drives an mpv process over its JSON IPC socket.
//
// All commands run on a worker looper. Property changes arrive on the
// observer goroutine; both update the shared playback fields under mu.
type MPV struct {
	handler looper.Poster
	params  Params
	opts    MPVOptions
	start   startFunc
	log     *logrus.Entry

	listeners util.CopyOnWrite[Listener]

	worker      *looper.Looper
	workerDone  chan struct{}
	releaseOnce sync.Once

	mu            sync.RWMutex
	released      bool
	generation    int
	playWhenReady bool
	pauseInFlight int
	state         State
	renderers     renderer.Set
	prepared      bool
	loaded        bool
	eof           bool
	cachePaused   bool
	seeking       bool
	position      time.Duration
	duration      time.Duration
	cacheTime     time.Duration
	dropped       int64
	frames        int64
	prepareStart  time.Time
	speedAt       time.Time
	pendingSeek   mo.Option[time.Duration]

	// Owned by the worker.
	session *mpvSession
	video   bool
}

var _ Engine = (*MPV)(nil)

type mpvSession struct {
	generation int
	socket     string
	proc       process
	client     *ipcClient
	observer   *propertyObserver
	stopping   chan struct{}
}

// NewMPV returns an idle engine. Listener callbacks are posted to handler.
func NewMPV(handler looper.Poster, params Params, opts MPVOptions) *MPV {
	return newMPV(handler, params, opts, startProcess)
}

func newMPV(handler looper.Poster, params Params, opts MPVOptions, start startFunc) *MPV {
	if params.RendererCount <= 0 || params.RendererCount > int(renderer.TrackTypeCount) {
		params.RendererCount = int(renderer.TrackTypeCount)
	}
	if opts.Binary == "" {
		opts.Binary = "mpv"
	}

	m := &MPV{
		handler:     handler,
		params:      params,
		opts:        opts,
		start:       start,
		log:         log.WithFields(log.Fields{"engine": "mpv"}),
		worker:      looper.New(),
		workerDone:  make(chan struct{}),
		state:       StateIdle,
		duration:    -1,
		pendingSeek: mo.None[time.Duration](),
	}

	go func() {
		defer close(m.workerDone)
		_ = m.worker.Loop(context.Background())
	}()

	return m
}

// AddListener implements Engine.
func (m *MPV) AddListener(l Listener) { m.listeners.Add(l) }

// RemoveListener implements Engine.
func (m *MPV) RemoveListener(l Listener) { m.listeners.Remove(l) }

// Prepare implements Engine.
func (m *MPV) Prepare(set renderer.Set) {
	m.worker.Post(func() { m.prepare(set) })
}

// PlaybackState implements Engine.
func (m *MPV) PlaybackState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// PlayWhenReady implements Engine.
func (m *MPV) PlayWhenReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playWhenReady
}

// SetPlayWhenReady implements Engine.
func (m *MPV) SetPlayWhenReady(playWhenReady bool) {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return
	}
	if m.playWhenReady != playWhenReady {
		m.playWhenReady = playWhenReady
		m.broadcastStateLocked()
	}
	m.pauseInFlight++
	m.mu.Unlock()

	m.worker.Post(func() {
		if s := m.session; s != nil {
			if err := s.client.set("pause", !playWhenReady); err != nil {
				m.log.WithError(err).Warn("set pause")
			}
		}

		m.mu.Lock()
		m.pauseInFlight--
		m.mu.Unlock()

		m.dispatch(func(l Listener) { l.OnPlayWhenReadyCommitted() })
	})
}

// SeekTo implements Engine.
func (m *MPV) SeekTo(position time.Duration) {
	if position < 0 {
		position = 0
	}

	m.mu.Lock()
	m.position = position
	m.mu.Unlock()

	m.worker.Post(func() { m.seek(position) })
}

// CurrentPosition implements Engine.
func (m *MPV) CurrentPosition() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.position
}

// Duration implements Engine.
func (m *MPV) Duration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.duration
}

// BufferedPercentage implements Engine.
func (m *MPV) BufferedPercentage() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.duration <= 0 {
		return 0
	}
	if m.eof {
		return 100
	}
	return util.Clamp(int(m.cacheTime*100/m.duration), 0, 100)
}

// TrackCount implements Engine.
func (m *MPV) TrackCount(t renderer.TrackType) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t < 0 || int(t) >= m.params.RendererCount || m.renderers[t] == nil {
		return 0
	}
	return len(renderer.FormatsOf(m.renderers[t].Source(), t))
}

// TrackFormat implements Engine.
func (m *MPV) TrackFormat(t renderer.TrackType, index int) (renderer.Format, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t < 0 || int(t) >= m.params.RendererCount || m.renderers[t] == nil {
		return renderer.Format{}, false
	}

	formats := renderer.FormatsOf(m.renderers[t].Source(), t)
	if index < 0 || index >= len(formats) {
		return renderer.Format{}, false
	}
	return formats[index], true
}

// SendMessage implements Engine.
func (m *MPV) SendMessage(target renderer.Renderer, id renderer.MessageID, payload any) {
	m.worker.Post(func() { m.deliver(target, id, payload) })
}

// BlockingSendMessage implements Engine. After Release it returns immediately.
func (m *MPV) BlockingSendMessage(target renderer.Renderer, id renderer.MessageID, payload any) {
	applied := make(chan struct{})
	if !m.worker.Post(func() {
		defer close(applied)
		m.deliver(target, id, payload)
	}) {
		return
	}

	select {
	case <-applied:
	case <-m.workerDone:
	}
}

// Stop implements Engine.
func (m *MPV) Stop() {
	m.worker.Post(m.stop)
}

// Release implements Engine. It stops mpv and the worker; later calls do nothing.
func (m *MPV) Release() {
	m.releaseOnce.Do(func() {
		m.worker.Post(m.stop)
		m.worker.Quit()

		select {
		case <-m.workerDone:
		case <-time.After(releaseTimeout):
			m.log.Warn("worker did not stop in time")
		}

		m.mu.Lock()
		m.released = true
		m.mu.Unlock()
	})
}

func (m *MPV) prepare(set renderer.Set) {
	m.stopSession()

	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.renderers = set
	m.resetPlaybackLocked()
	m.prepared = true
	m.prepareStart = time.Now()
	start := m.pendingSeek
	m.pendingSeek = mo.None[time.Duration]()
	pause := !m.playWhenReady
	m.updateStateLocked()
	m.mu.Unlock()

	src, ok := set.PrimarySource()
	if !ok {
		m.fail(gen, ErrNoSource)
		return
	}

	target, err := sanitizeMediaTarget(src.Locator())
	if err != nil {
		m.fail(gen, fmt.Errorf("invalid media target: %w", err))
		return
	}

	socket, err := newSocketPath()
	if err != nil {
		m.fail(gen, err)
		return
	}

	args := append(m.args(set, src, socket, pause, start), target)
	proc, err := m.start(m.opts.Binary, args)
	if err != nil {
		m.fail(gen, err)
		return
	}

	if err := waitForSocket(socket, proc.Exited()); err != nil {
		select {
		case <-proc.Exited():
		default:
			m.log.Warn("killing mpv: socket never became ready")
			_ = proc.Kill()
		}
		m.fail(gen, fmt.Errorf("mpv socket not ready: %w", err))
		return
	}

	s := &mpvSession{
		generation: gen,
		socket:     socket,
		proc:       proc,
		client:     &ipcClient{socketPath: socket},
		stopping:   make(chan struct{}),
	}
	s.observer = newPropertyObserver(socket,
		func(name string, data any) { m.onProperty(gen, name, data) },
		func(msg ipcMessage) { m.onEvent(gen, msg) },
	)
	m.session = s

	if err := s.observer.Start(observedProperties); err != nil {
		m.fail(gen, err)
		return
	}

	go m.watch(s)
	m.log.WithFields(logrus.Fields{"locator": src.Locator(), "socket": socket}).Info("mpv started")
}

// args builds the mpv command line for a renderer set.
func (m *MPV) args(set renderer.Set, src renderer.SampleSource, socket string, pause bool, start mo.Option[time.Duration]) []string {
	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--keep-open=yes",
		fmt.Sprintf("--input-ipc-server=%s", socket),
		fmt.Sprintf("--pause=%s", yesNo(pause)),
		"--cache=yes",
		"--cache-pause-initial=yes",
		fmt.Sprintf("--demuxer-readahead-secs=%g", m.params.MinBuffer.Seconds()),
		fmt.Sprintf("--cache-pause-wait=%g", m.params.MinRebuffer.Seconds()),
	}

	if limit := src.MaxBufferBytes(); limit > 0 {
		args = append(args, fmt.Sprintf("--demuxer-max-bytes=%d", limit))
	}

	if m.opts.UserAgent != "" {
		args = append(args, fmt.Sprintf("--user-agent=%s", m.opts.UserAgent))
	}

	title := sanitizeTitle(m.opts.Title)
	if v, ok := set.Video(); ok {
		opts := v.Options()
		if opts.HWDec != "" {
			args = append(args, fmt.Sprintf("--hwdec=%s", opts.HWDec))
		}
		if opts.ScalingMode == renderer.ScaleToFitWithCropping {
			args = append(args, "--panscan=1.0")
		}
		if s, ok := v.Surface(); ok && s.Title != "" {
			title = sanitizeTitle(s.Title)
		}
	}

	if title != "" {
		args = append(args,
			fmt.Sprintf("--force-media-title=%s", title),
			fmt.Sprintf("--title=%s", title),
		)
	}

	if m.video {
		args = append(args, "--vid=auto", "--force-window=yes")
	} else {
		args = append(args, "--vid=no", "--force-window=no")
	}

	if _, ok := set.Audio(); !ok {
		args = append(args, "--aid=no")
	}

	if at, ok := start.Get(); ok && at > 0 {
		args = append(args, fmt.Sprintf("--start=%g", at.Seconds()))
	}

	return append(args, m.opts.ExtraArgs...)
}

func (m *MPV) seek(position time.Duration) {
	m.mu.Lock()
	if !m.loaded {
		m.pendingSeek = mo.Some(position)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if s := m.session; s != nil {
		if _, err := s.client.send("seek", position.Seconds(), "absolute"); err != nil {
			m.log.WithError(err).Warn("seek")
		}
	}
}

func (m *MPV) deliver(target renderer.Renderer, id renderer.MessageID, payload any) {
	if target == nil {
		return
	}

	if err := target.HandleMessage(id, payload); err != nil {
		m.log.WithError(err).Warn("renderer message")
		return
	}

	v, ok := target.(*renderer.VideoRenderer)
	if id != renderer.MsgSetSurface || !ok {
		return
	}

	surface, attached := v.Surface()
	m.video = attached

	s := m.session
	if s == nil {
		return
	}

	if err := applySurface(s.client, surface, attached); err != nil {
		m.log.WithError(err).Warn("apply surface")
		return
	}
	if attached {
		v.ReportDrawnToSurface(surface)
	}
}

// applySurface opens or closes the mpv video output.
func applySurface(c *ipcClient, surface renderer.Surface, attached bool) error {
	if !attached {
		if err := c.set("vid", "no"); err != nil {
			return err
		}
		return c.set("force-window", "no")
	}

	if err := c.set("force-window", "yes"); err != nil {
		return err
	}
	if title := sanitizeTitle(surface.Title); title != "" {
		if err := c.set("force-media-title", title); err != nil {
			return err
		}
	}
	return c.set("vid", "auto")
}

func (m *MPV) stop() {
	m.stopSession()

	m.mu.Lock()
	set := m.renderers
	m.generation++
	m.prepared = false
	m.renderers = renderer.Set{}
	m.resetPlaybackLocked()
	m.updateStateLocked()
	m.mu.Unlock()

	if v, ok := set.Video(); ok {
		v.FlushDroppedFrames()
	}
}

// fail tears the session down and reports a fatal error, unless gen is stale.
func (m *MPV) fail(gen int, err error) {
	m.mu.RLock()
	stale := gen != m.generation
	m.mu.RUnlock()
	if stale {
		return
	}

	if s := m.session; s != nil && s.generation == gen {
		m.stopSession()
	}

	m.mu.Lock()
	m.prepared = false
	m.renderers = renderer.Set{}
	m.resetPlaybackLocked()
	m.updateStateLocked()
	m.mu.Unlock()

	perr := &PlaybackError{Err: err}
	m.log.WithError(err).Error("playback failed")
	m.dispatch(func(l Listener) { l.OnPlayerError(perr) })
}

func (m *MPV) stopSession() {
	s := m.session
	if s == nil {
		return
	}
	m.session = nil

	close(s.stopping)
	s.observer.Stop()

	select {
	case <-s.proc.Exited():
	default:
		_, _ = s.client.send("quit")
		select {
		case <-s.proc.Exited():
		case <-time.After(quitTimeout):
			_ = s.proc.Kill()
		}
	}

	_ = os.Remove(s.socket)
}

// watch reports mpv going away while its session is still current.
func (m *MPV) watch(s *mpvSession) {
	select {
	case <-s.stopping:
	case <-s.proc.Exited():
		m.worker.Post(func() {
			if m.session != s {
				return
			}
			m.fail(s.generation, errors.New("mpv exited unexpectedly"))
		})
	}
}

func (m *MPV) resetPlaybackLocked() {
	m.loaded = false
	m.eof = false
	m.cachePaused = false
	m.seeking = false
	m.position = 0
	m.duration = -1
	m.cacheTime = 0
	m.dropped = 0
	m.frames = 0
	m.speedAt = time.Time{}
}

func (m *MPV) deriveLocked() State {
	switch {
	case !m.prepared:
		return StateIdle
	case !m.loaded:
		return StatePreparing
	case m.eof:
		return StateEnded
	case m.cachePaused || m.seeking:
		return StateBuffering
	default:
		return StateReady
	}
}

// updateStateLocked recomputes the state and broadcasts it if it changed.
func (m *MPV) updateStateLocked() {
	next := m.deriveLocked()
	if next == m.state {
		return
	}
	m.state = next
	m.broadcastStateLocked()
}

func (m *MPV) broadcastStateLocked() {
	playWhenReady, state := m.playWhenReady, m.state
	m.dispatch(func(l Listener) { l.OnPlayerStateChanged(playWhenReady, state) })
}

// dispatch posts fn for every listener registered when it runs.
func (m *MPV) dispatch(fn func(Listener)) {
	m.handler.Post(func() {
		for _, l := range m.listeners.Snapshot() {
			fn(l)
		}
	})
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
