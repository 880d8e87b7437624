package session

import (
	"errors"
	"testing"
	"time"

	"github.com/ringplayer/ringplayer/builder"
	"github.com/ringplayer/ringplayer/engine"
	"github.com/ringplayer/ringplayer/renderer"
	"github.com/ringplayer/ringplayer/source"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubSource struct{}

func (stubSource) Locator() string { return "/media/ring.mp4" }
func (stubSource) Formats() []renderer.Format {
	return []renderer.Format{
		{TrackID: 1, Type: renderer.Video, Codec: "avc1", Width: 320, Height: 180},
		{TrackID: 2, Type: renderer.Audio, Codec: "mp4a", ChannelCount: 2},
	}
}
func (stubSource) Duration() time.Duration              { return time.Minute }
func (stubSource) MaxBufferBytes() int64                { return 16 * 1024 * 1024 }
func (stubSource) Transferred(_ int64, _ time.Duration) {}

// stubEngine applies every command synchronously on the caller.
type stubEngine struct {
	listeners     []engine.Listener
	state         engine.State
	playWhenReady bool
	duration      time.Duration
	position      time.Duration
	prepared      []renderer.Set
	seeks         []time.Duration
	payloads      []any
	order         []string
	stops         int
	releases      int
}

func newStubEngine() *stubEngine {
	return &stubEngine{state: engine.StateIdle, duration: -1}
}

func (e *stubEngine) AddListener(l engine.Listener) { e.listeners = append(e.listeners, l) }
func (e *stubEngine) RemoveListener(l engine.Listener) {
	for i, existing := range e.listeners {
		if existing == l {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}
func (e *stubEngine) Prepare(set renderer.Set)      { e.prepared = append(e.prepared, set) }
func (e *stubEngine) PlaybackState() engine.State   { return e.state }
func (e *stubEngine) PlayWhenReady() bool           { return e.playWhenReady }
func (e *stubEngine) SeekTo(position time.Duration) { e.seeks = append(e.seeks, position) }
func (e *stubEngine) CurrentPosition() time.Duration {
	return e.position
}
func (e *stubEngine) Duration() time.Duration { return e.duration }
func (e *stubEngine) BufferedPercentage() int { return 40 }
func (e *stubEngine) TrackCount(t renderer.TrackType) int {
	if t == renderer.Video || t == renderer.Audio {
		return 1
	}
	return 0
}
func (e *stubEngine) TrackFormat(t renderer.TrackType, index int) (renderer.Format, bool) {
	formats := renderer.FormatsOf(stubSource{}, t)
	if index < 0 || index >= len(formats) {
		return renderer.Format{}, false
	}
	return formats[index], true
}
func (e *stubEngine) SendMessage(target renderer.Renderer, id renderer.MessageID, payload any) {
	e.payloads = append(e.payloads, payload)
	_ = target.HandleMessage(id, payload)
}
func (e *stubEngine) BlockingSendMessage(target renderer.Renderer, id renderer.MessageID, payload any) {
	e.payloads = append(e.payloads, payload)
	_ = target.HandleMessage(id, payload)
	e.order = append(e.order, "applied")
}
func (e *stubEngine) Stop()    { e.stops++; e.state = engine.StateIdle }
func (e *stubEngine) Release() { e.releases++ }

func (e *stubEngine) SetPlayWhenReady(playWhenReady bool) {
	e.playWhenReady = playWhenReady
	e.report(e.state)
}

func (e *stubEngine) report(state engine.State) {
	e.state = state
	for _, l := range append([]engine.Listener(nil), e.listeners...) {
		l.OnPlayerStateChanged(e.playWhenReady, state)
	}
}

func (e *stubEngine) fail(err error) {
	e.state = engine.StateIdle
	for _, l := range append([]engine.Listener(nil), e.listeners...) {
		l.OnPlayerError(&engine.PlaybackError{Err: err})
	}
}

// stubBuilder records builds and lets the test complete them.
type stubBuilder struct {
	sinks       []builder.Sink
	ops         []string
	outstanding int
	maxInFlight int
}

func (b *stubBuilder) Build(sink builder.Sink) {
	b.ops = append(b.ops, "build")
	b.sinks = append(b.sinks, sink)
	b.outstanding++
	if b.outstanding > b.maxInFlight {
		b.maxInFlight = b.outstanding
	}
}

func (b *stubBuilder) Cancel() {
	b.ops = append(b.ops, "cancel")
	b.outstanding = 0
}

// complete delivers a video and audio set to build i, as a build that
// escaped cancellation would.
func (b *stubBuilder) complete(i int) renderer.Set {
	sink := b.sinks[i]
	var set renderer.Set
	set[renderer.Video] = renderer.NewVideoRenderer(stubSource{}, renderer.VideoOptions{MaxDroppedFramesToNotify: 50}, nil, sink.VideoEvents())
	set[renderer.Audio] = renderer.NewAudioRenderer(stubSource{}, nil, sink.AudioEvents())
	sink.RenderersReady(set, source.NewBandwidthMeter(nil, sink.BandwidthEvents()))
	return set
}

type stateChange struct {
	playWhenReady bool
	state         engine.State
}

type recorder struct {
	changes []stateChange
	errs    []*Error
	sizes   [][2]int
	onState func()
}

func (r *recorder) OnStateChanged(playWhenReady bool, state engine.State) {
	r.changes = append(r.changes, stateChange{playWhenReady, state})
	if r.onState != nil {
		r.onState()
	}
}
func (r *recorder) OnError(err *Error) { r.errs = append(r.errs, err) }
func (r *recorder) OnVideoSizeChanged(width, height, _ int, _ float64) {
	r.sizes = append(r.sizes, [2]int{width, height})
}

type infoRecorder struct {
	videoFormats []renderer.Format
	audioFormats []renderer.Format
	dropped      []int
	samples      []int64
	decoders     []string
	loads        int
}

func (r *infoRecorder) OnVideoFormatEnabled(f renderer.Format) {
	r.videoFormats = append(r.videoFormats, f)
}
func (r *infoRecorder) OnAudioFormatEnabled(f renderer.Format) {
	r.audioFormats = append(r.audioFormats, f)
}
func (r *infoRecorder) OnDroppedFrames(count int, _ time.Duration) {
	r.dropped = append(r.dropped, count)
}
func (r *infoRecorder) OnBandwidthSample(_ time.Duration, bytes int64, _ int64) {
	r.samples = append(r.samples, bytes)
}
func (r *infoRecorder) OnLoadStarted(int, int64)                  { r.loads++ }
func (r *infoRecorder) OnLoadCompleted(int, int64, time.Duration) { r.loads++ }
func (r *infoRecorder) OnDecoderInitialized(name string, _, _ time.Duration) {
	r.decoders = append(r.decoders, name)
}

type internalRecorder struct {
	rendererInit []error
	decoderInit  []*renderer.DecoderInitializationError
	crypto       int
	audioInit    int
	audioWrite   int
	underruns    []int
	loadErrs     []int
}

func (r *internalRecorder) OnRendererInitializationError(err error) {
	r.rendererInit = append(r.rendererInit, err)
}
func (r *internalRecorder) OnDecoderInitializationError(err *renderer.DecoderInitializationError) {
	r.decoderInit = append(r.decoderInit, err)
}
func (r *internalRecorder) OnAudioTrackInitializationError(*renderer.AudioTrackInitializationError) {
	r.audioInit++
}
func (r *internalRecorder) OnAudioTrackWriteError(*renderer.AudioTrackWriteError) { r.audioWrite++ }
func (r *internalRecorder) OnAudioTrackUnderrun(bufferSize int, _, _ time.Duration) {
	r.underruns = append(r.underruns, bufferSize)
}
func (r *internalRecorder) OnCryptoError(*renderer.CryptoError) { r.crypto++ }
func (r *internalRecorder) OnLoadError(sourceID int, _ error) {
	r.loadErrs = append(r.loadErrs, sourceID)
}

func newTestSession() (*Session, *stubEngine, *stubBuilder, *recorder) {
	e := newStubEngine()
	b := &stubBuilder{}
	s := New(b, e, nil)
	r := &recorder{}
	s.AddListener(r)
	return s, e, b, r
}

func TestPrepare(t *testing.T) {
	Convey("Given a fresh session", t, func() {
		s, e, b, r := newTestSession()

		So(s.BuildState(), ShouldEqual, BuildIdle)
		So(s.PlaybackState(), ShouldEqual, engine.StateIdle)

		Convey("Prepare starts one build and reports Preparing", func() {
			So(s.Prepare(), ShouldBeNil)

			So(b.ops, ShouldResemble, []string{"cancel", "build"})
			So(s.BuildState(), ShouldEqual, BuildBuilding)
			So(s.PlaybackState(), ShouldEqual, engine.StatePreparing)
			So(r.changes, ShouldResemble, []stateChange{{false, engine.StatePreparing}})
		})

		Convey("Repeated prepares never leave two builds outstanding", func() {
			for i := 0; i < 5; i++ {
				So(s.Prepare(), ShouldBeNil)
			}

			So(b.maxInFlight, ShouldEqual, 1)
			So(len(b.sinks), ShouldEqual, 5)
			for i := 0; i < len(b.ops); i += 2 {
				So(b.ops[i], ShouldEqual, "cancel")
				So(b.ops[i+1], ShouldEqual, "build")
			}
		})

		Convey("A built set reaches the engine with placeholders in the empty slots", func() {
			surface := renderer.Surface{ID: "main", Title: "ring"}
			s.SetSurface(surface)
			So(e.payloads, ShouldBeEmpty)

			So(s.Prepare(), ShouldBeNil)
			set := b.complete(0)

			So(s.BuildState(), ShouldEqual, BuildBuilt)
			So(len(e.prepared), ShouldEqual, 1)
			So(e.prepared[0][renderer.Text], ShouldResemble, renderer.Placeholder{})
			So(e.prepared[0][renderer.Metadata], ShouldResemble, renderer.Placeholder{})
			So(e.prepared[0][renderer.Video], ShouldEqual, set[renderer.Video])

			video, _ := set.Video()
			bound, ok := video.Surface()
			So(ok, ShouldBeTrue)
			So(bound, ShouldResemble, surface)

			Convey("and the engine reporting Ready is broadcast exactly once", func() {
				r.changes = nil
				e.report(engine.StateReady)
				e.report(engine.StateReady)
				e.report(engine.StateReady)

				So(r.changes, ShouldResemble, []stateChange{{false, engine.StateReady}})
			})

			Convey("and preparing again stops the engine first", func() {
				So(s.Prepare(), ShouldBeNil)
				So(e.stops, ShouldEqual, 1)
				So(s.BuildState(), ShouldEqual, BuildBuilding)
				_, ok := s.VideoFormat().Get()
				So(ok, ShouldBeFalse)
			})
		})

		Convey("Preparing twice discards the first build", func() {
			So(s.Prepare(), ShouldBeNil)
			So(s.Prepare(), ShouldBeNil)

			b.complete(0)
			So(s.BuildState(), ShouldEqual, BuildBuilding)
			So(e.prepared, ShouldBeEmpty)

			b.complete(1)
			So(s.BuildState(), ShouldEqual, BuildBuilt)
			So(len(e.prepared), ShouldEqual, 1)
		})

		Convey("A cancelled build arriving late changes nothing", func() {
			So(s.Prepare(), ShouldBeNil)
			before := len(r.changes)
			s.Release()
			after := len(r.changes)

			b.complete(0)
			b.sinks[0].RenderersFailed(errors.New("late"))

			So(e.prepared, ShouldBeEmpty)
			So(s.BuildState(), ShouldEqual, BuildIdle)
			So(len(r.changes), ShouldEqual, after)
			So(after, ShouldBeGreaterThanOrEqualTo, before)
			So(r.errs, ShouldBeEmpty)
		})

		Convey("Prepare after release fails", func() {
			s.Release()
			So(errors.Is(s.Prepare(), ErrReleased), ShouldBeTrue)
		})
	})
}

func TestPlaybackState(t *testing.T) {
	Convey("PlaybackState masks the engine while renderers are not in place", t, func() {
		s, e, b, _ := newTestSession()

		for _, state := range []engine.State{engine.StateIdle, engine.StateReady, engine.StateEnded} {
			e.state = state
			So(s.PlaybackState(), ShouldEqual, state)
		}

		So(s.Prepare(), ShouldBeNil)
		for _, state := range []engine.State{engine.StateIdle, engine.StateBuffering, engine.StateReady} {
			e.state = state
			So(s.PlaybackState(), ShouldEqual, engine.StatePreparing)
		}

		e.state = engine.StateIdle
		b.complete(0)
		So(s.PlaybackState(), ShouldEqual, engine.StatePreparing)

		for _, state := range []engine.State{engine.StatePreparing, engine.StateBuffering, engine.StateReady, engine.StateEnded} {
			e.state = state
			So(s.PlaybackState(), ShouldEqual, state)
		}
	})
}

func TestStateBroadcast(t *testing.T) {
	Convey("State changes are edge triggered on the intent and state pair", t, func() {
		s, e, b, r := newTestSession()
		So(s.Prepare(), ShouldBeNil)
		b.complete(0)
		r.changes = nil

		e.report(engine.StateBuffering)
		e.report(engine.StateBuffering)
		s.SetPlayWhenReady(true)
		s.SetPlayWhenReady(true)
		e.report(engine.StateReady)
		e.report(engine.StateReady)

		So(r.changes, ShouldResemble, []stateChange{
			{false, engine.StateBuffering},
			{true, engine.StateBuffering},
			{true, engine.StateReady},
		})
	})

	Convey("A listener added during a broadcast does not see that broadcast", t, func() {
		s, e, b, r := newTestSession()
		late := &recorder{}
		r.onState = func() { s.AddListener(late) }

		So(s.Prepare(), ShouldBeNil)
		So(late.changes, ShouldBeEmpty)

		b.complete(0)
		e.report(engine.StateReady)
		So(late.changes, ShouldResemble, []stateChange{{false, engine.StateReady}})
	})

	Convey("StateText names both values", t, func() {
		So(StateText(true, engine.StateBuffering), ShouldEqual, "playWhenReady=true, playbackState=buffering")
		So(StateText(false, engine.State(42)), ShouldEqual, "playWhenReady=false, playbackState=unknown")
	})
}

func TestSurface(t *testing.T) {
	Convey("Given a built session with a surface", t, func() {
		s, e, b, _ := newTestSession()
		So(s.Prepare(), ShouldBeNil)
		set := b.complete(0)
		video, _ := set.Video()

		s.SetSurface(renderer.Surface{ID: "main"})
		_, ok := video.Surface()
		So(ok, ShouldBeTrue)

		Convey("ClearSurfaceBlocking returns after the detach is applied", func() {
			s.ClearSurfaceBlocking()
			e.order = append(e.order, "returned")

			So(e.order, ShouldResemble, []string{"applied", "returned"})
			So(e.payloads[len(e.payloads)-1], ShouldBeNil)
			_, ok := video.Surface()
			So(ok, ShouldBeFalse)
			_, ok = s.Surface().Get()
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Clearing a surface before any build touches nothing", t, func() {
		s, e, _, _ := newTestSession()
		s.ClearSurfaceBlocking()
		So(e.payloads, ShouldBeEmpty)
	})
}

func TestRelease(t *testing.T) {
	Convey("Release is idempotent", t, func() {
		for _, setup := range []func(*Session, *stubBuilder){
			func(*Session, *stubBuilder) {},
			func(s *Session, _ *stubBuilder) { _ = s.Prepare() },
			func(s *Session, b *stubBuilder) { _ = s.Prepare(); b.complete(0) },
		} {
			s, e, b, _ := newTestSession()
			setup(s, b)
			s.SetSurface(renderer.Surface{ID: "main"})

			for i := 0; i < 3; i++ {
				s.Release()
			}

			So(e.releases, ShouldEqual, 1)
			So(s.BuildState(), ShouldEqual, BuildIdle)
			_, ok := s.Surface().Get()
			So(ok, ShouldBeFalse)
			So(e.listeners, ShouldBeEmpty)
			So(b.outstanding, ShouldEqual, 0)
		}
	})
}

func TestErrors(t *testing.T) {
	Convey("Given a session with every listener", t, func() {
		s, e, b, r := newTestSession()
		internal := &internalRecorder{}
		info := &infoRecorder{}
		s.SetInternalErrorListener(internal)
		s.SetInfoListener(info)
		So(s.Prepare(), ShouldBeNil)

		Convey("A failed build is a renderer initialization error", func() {
			cause := errors.New("no tracks")
			b.sinks[0].RenderersFailed(cause)

			So(internal.rendererInit, ShouldResemble, []error{cause})
			So(len(r.errs), ShouldEqual, 1)
			So(r.errs[0].Kind, ShouldEqual, KindRendererInit)
			So(errors.Is(r.errs[0], cause), ShouldBeTrue)
			So(s.BuildState(), ShouldEqual, BuildIdle)
			So(r.changes[len(r.changes)-1], ShouldResemble, stateChange{false, engine.StateIdle})
		})

		Convey("A playback error needs a full rebuild", func() {
			b.complete(0)
			e.report(engine.StateReady)

			cause := errors.New("decoder died")
			e.fail(cause)

			So(len(r.errs), ShouldEqual, 1)
			So(r.errs[0].Kind, ShouldEqual, KindPlayback)
			So(r.errs[0].Kind.Fatal(), ShouldBeTrue)
			So(errors.Is(r.errs[0], cause), ShouldBeTrue)
			So(s.BuildState(), ShouldEqual, BuildIdle)
			So(s.PlaybackState(), ShouldEqual, engine.StateIdle)

			kind, ok := KindOf(r.errs[0])
			So(ok, ShouldBeTrue)
			So(kind, ShouldEqual, KindPlayback)

			So(s.Prepare(), ShouldBeNil)
			So(e.stops, ShouldEqual, 0)
			So(len(b.sinks), ShouldEqual, 2)
		})

		Convey("Renderer events are relayed without changing state", func() {
			set := b.complete(0)
			video, _ := set.Video()
			audio, _ := set.Audio()
			state := s.BuildState()

			video.ReportVideoSize(320, 180, 0, 1)
			video.ReportDecoderInitialized("h264", time.Millisecond)
			video.ReportDecoderInitializationError("h264", errors.New("busy"))
			video.ReportCryptoError(errors.New("no key"))
			for i := 0; i < 60; i++ {
				video.ReportDroppedFrames(1)
			}
			audio.ReportTrackInitializationError(44100, 2, errors.New("device"))
			audio.ReportTrackWriteError(errors.New("closed"))
			audio.ReportUnderrun(4096, 100*time.Millisecond, time.Second)

			So(r.sizes, ShouldResemble, [][2]int{{320, 180}})
			So(info.decoders, ShouldResemble, []string{"h264"})
			So(info.videoFormats[0].Width, ShouldEqual, 320)
			So(info.audioFormats[0].ChannelCount, ShouldEqual, 2)
			So(info.dropped, ShouldNotBeEmpty)
			So(len(internal.decoderInit), ShouldEqual, 1)
			So(internal.crypto, ShouldEqual, 1)
			So(internal.audioInit, ShouldEqual, 1)
			So(internal.audioWrite, ShouldEqual, 1)
			So(internal.underruns, ShouldResemble, []int{4096})
			So(r.errs, ShouldBeEmpty)
			So(s.BuildState(), ShouldEqual, state)

			Convey("and per renderer statistics stay apart", func() {
				videoCounters, ok := s.VideoCounters()
				So(ok, ShouldBeTrue)
				audioCounters, ok := s.AudioCounters()
				So(ok, ShouldBeTrue)
				So(videoCounters, ShouldNotEqual, audioCounters)
				So(videoCounters.Snapshot().DroppedOutputBufferCount, ShouldEqual, 60)
				So(audioCounters.Snapshot().DroppedOutputBufferCount, ShouldEqual, 0)
			})

			Convey("and bandwidth samples come from the build's meter", func() {
				So(s.BandwidthMeter(), ShouldNotBeNil)
				s.BandwidthMeter().Transferred(1000, time.Second)
				So(info.samples, ShouldResemble, []int64{1000})
			})
		})

		Convey("Load events go to the info and internal listeners", func() {
			events := b.sinks[0].LoadEvents()
			events.OnLoadStarted(0, 100)
			events.OnLoadCompleted(0, 100, time.Millisecond)
			events.OnLoadError(&source.LoadError{SourceID: 3, Err: errors.New("gone")})

			So(info.loads, ShouldEqual, 2)
			So(internal.loadErrs, ShouldResemble, []int{3})
		})

		Convey("Nothing is relayed after release", func() {
			set := b.complete(0)
			video, _ := set.Video()
			s.Release()

			video.ReportVideoSize(320, 180, 0, 1)
			video.ReportCryptoError(errors.New("no key"))
			e.fail(errors.New("late"))

			So(r.sizes, ShouldBeEmpty)
			So(internal.crypto, ShouldEqual, 0)
			So(r.errs, ShouldBeEmpty)
		})
	})
}

func TestPlayerControl(t *testing.T) {
	Convey("Given a player control", t, func() {
		s, e, _, _ := newTestSession()
		c := s.PlayerControl()

		So(c.CanPause(), ShouldBeTrue)
		So(c.CanSeekBackward(), ShouldBeTrue)
		So(c.CanSeekForward(), ShouldBeTrue)

		Convey("Start and Pause set the play intent", func() {
			c.Start()
			So(c.IsPlaying(), ShouldBeTrue)
			c.Pause()
			So(c.IsPlaying(), ShouldBeFalse)
		})

		Convey("With an unknown duration positions read as zero and seeks go to the start", func() {
			e.position = 3 * time.Second
			So(c.CurrentPosition(), ShouldEqual, time.Duration(0))
			So(c.Duration(), ShouldEqual, time.Duration(0))

			c.SeekTo(10 * time.Second)
			So(e.seeks, ShouldResemble, []time.Duration{0})
		})

		Convey("With a known duration seeks are clamped", func() {
			e.duration = time.Minute
			e.position = 3 * time.Second
			So(c.CurrentPosition(), ShouldEqual, 3*time.Second)
			So(c.Duration(), ShouldEqual, time.Minute)
			So(c.BufferPercentage(), ShouldEqual, 40)

			c.SeekTo(-time.Second)
			c.SeekTo(2 * time.Minute)
			c.SeekTo(20 * time.Second)
			So(e.seeks, ShouldResemble, []time.Duration{0, time.Minute, 20 * time.Second})
		})
	})
}

func TestAccessors(t *testing.T) {
	Convey("Track queries pass through to the engine", t, func() {
		s, _, b, _ := newTestSession()
		So(s.Prepare(), ShouldBeNil)
		b.complete(0)

		So(s.TrackCount(renderer.Video), ShouldEqual, 1)
		So(s.TrackCount(renderer.Text), ShouldEqual, 0)
		f, ok := s.TrackFormat(renderer.Audio, 0)
		So(ok, ShouldBeTrue)
		So(f.Codec, ShouldEqual, "mp4a")

		vf, ok := s.VideoFormat().Get()
		So(ok, ShouldBeTrue)
		So(vf.Codec, ShouldEqual, "avc1")
		So(s.ID().String(), ShouldNotBeEmpty)
		So(BuildBuilt.String(), ShouldEqual, "built")
	})
}
