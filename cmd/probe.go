package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/ringplayer/ringplayer/builder"
	"github.com/ringplayer/ringplayer/color"
	"github.com/ringplayer/ringplayer/config"
	"github.com/ringplayer/ringplayer/icon"
	"github.com/ringplayer/ringplayer/looper"
	"github.com/ringplayer/ringplayer/renderer"
	"github.com/ringplayer/ringplayer/source"
	"github.com/ringplayer/ringplayer/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().BoolP("json", "j", false, "Print as JSON")
	probeCmd.Flags().StringP("type", "t", "", "Content type (dash, ss, hls, other). Inferred from the locator when empty")
	probeCmd.Flags().StringP("extension", "e", "", "Extension used instead of the locator's for content type inference")
}

var probeCmd = &cobra.Command{
	Use:   "probe <locator>",
	Short: "Build the renderers for a locator and print its tracks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var (
			locator   = args[0]
			asJson    = lo.Must(cmd.Flags().GetBool("json"))
			typeName  = lo.Must(cmd.Flags().GetString("type"))
			extension = lo.Must(cmd.Flags().GetString("extension"))
		)

		contentType, err := builder.ParseContentType(typeName)
		handleErr(err)
		contentType = contentType.Resolve(locator, extension)

		p := config.LoadPlayback()
		b, err := builder.New(contentType, locator, builder.Options{
			UserAgent:    p.UserAgent,
			SegmentSize:  p.SegmentSize,
			SegmentCount: p.SegmentCount,
			HWDec:        p.HWDec,
		})
		handleErr(err)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		result, err := probe(ctx, b)
		handleErr(err)
		result.Locator = locator
		result.Type = contentType.String()

		if asJson {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(result))
			return
		}

		cmd.Printf("%s %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), style.Bold(locator))
		if result.Duration >= 0 {
			cmd.Printf("  %s %s\n", style.Faint("duration"), result.Duration)
		}
		for _, f := range result.Formats {
			i := icon.Video
			if f.Type == renderer.Audio {
				i = icon.Audio
			}
			cmd.Printf("  %s %s\n", icon.Get(i), f)
		}
		cmd.Printf("  %s %d bytes\n", style.Faint("buffer"), result.MaxBufferBytes)
	},
}

type probeResult struct {
	Locator        string            `json:"locator"`
	Type           string            `json:"type"`
	Duration       time.Duration     `json:"duration"`
	MaxBufferBytes int64             `json:"max_buffer_bytes"`
	Formats        []renderer.Format `json:"formats"`
}

// probe runs one build on its own looper and waits for the outcome.
func probe(ctx context.Context, b builder.Builder) (*probeResult, error) {
	sink := &probeSink{loop: looper.New()}
	b.Build(sink)

	if err := sink.loop.Loop(ctx); err != nil {
		b.Cancel()
		return nil, err
	}

	if sink.err != nil {
		return nil, sink.err
	}
	return sink.result, nil
}

// probeSink collects a build outcome and drops every renderer event.
type probeSink struct {
	loop   *looper.Looper
	result *probeResult
	err    error
}

func (s *probeSink) Handler() looper.Poster                    { return s.loop }
func (s *probeSink) VideoEvents() renderer.VideoEventListener  { return nopEvents{} }
func (s *probeSink) AudioEvents() renderer.AudioEventListener  { return nopEvents{} }
func (s *probeSink) BandwidthEvents() source.BandwidthListener { return nopEvents{} }
func (s *probeSink) LoadEvents() source.LoadEventListener      { return nopEvents{} }

func (s *probeSink) RenderersReady(set renderer.Set, _ *source.BandwidthMeter) {
	defer s.loop.Quit()

	src, ok := set.PrimarySource()
	if !ok {
		s.err = fmt.Errorf("no renderer was built")
		return
	}

	s.result = &probeResult{
		Duration:       src.Duration(),
		MaxBufferBytes: src.MaxBufferBytes(),
		Formats:        src.Formats(),
	}
}

func (s *probeSink) RenderersFailed(err error) {
	s.err = err
	s.loop.Quit()
}

type nopEvents struct{}

func (nopEvents) OnDecoderInitialized(string, time.Duration, time.Duration)         {}
func (nopEvents) OnDecoderInitializationError(*renderer.DecoderInitializationError) {}
func (nopEvents) OnCryptoError(*renderer.CryptoError)                               {}
func (nopEvents) OnDroppedFrames(int, time.Duration)                                {}
func (nopEvents) OnVideoSizeChanged(int, int, int, float64)                         {}
func (nopEvents) OnDrawnToSurface(renderer.Surface)                                 {}
func (nopEvents) OnAudioTrackInitializationError(*renderer.AudioTrackInitializationError) {
}
func (nopEvents) OnAudioTrackWriteError(*renderer.AudioTrackWriteError)  {}
func (nopEvents) OnAudioTrackUnderrun(int, time.Duration, time.Duration) {}
func (nopEvents) OnBandwidthSample(time.Duration, int64, int64)          {}
func (nopEvents) OnLoadStarted(int, int64)                               {}
func (nopEvents) OnLoadCompleted(int, int64, time.Duration)              {}
func (nopEvents) OnLoadError(*source.LoadError)                          {}
