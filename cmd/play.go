package cmd

import (
	"github.com/ringplayer/ringplayer/builder"
	"github.com/ringplayer/ringplayer/config"
	"github.com/ringplayer/ringplayer/controller"
	"github.com/ringplayer/ringplayer/engine"
	"github.com/ringplayer/ringplayer/key"
	"github.com/ringplayer/ringplayer/looper"
	"github.com/ringplayer/ringplayer/renderer"
	"github.com/ringplayer/ringplayer/resume"
	"github.com/ringplayer/ringplayer/source"
	"github.com/ringplayer/ringplayer/tui"
	"github.com/ringplayer/ringplayer/util"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(playCmd)
	registerPlayFlags(playCmd)
}

func registerPlayFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("type", "t", "", "Content type (dash, ss, hls, other). Inferred from the locator when empty")
	lo.Must0(cmd.RegisterFlagCompletionFunc("type", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"dash", "ss", "hls", "other"}, cobra.ShellCompDirectiveNoFileComp
	}))
	cmd.Flags().StringP("extension", "e", "", "Extension used instead of the locator's for content type inference")
	cmd.Flags().DurationP("position", "p", 0, "Start position, e.g. 1m30s. Overrides the resumed position")
	cmd.Flags().Bool("paused", false, "Prepare without starting playback")
	cmd.Flags().Bool("headless", false, "Run without the transport bar")
	cmd.Flags().Bool("no-video", false, "Play the audio track only")
	cmd.Flags().String("title", "", "Window and transport bar title")
}

var playCmd = &cobra.Command{
	Use:     "play [locator]",
	Short:   "Play a progressive MP4 from a file or an http(s) locator",
	Args:    cobra.ExactArgs(1),
	Example: "  ringplayer play https://example.com/ring.mp4\n  ringplayer play ./ring.mp4 --position 1m --headless",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(runPlay(cmd, args[0]))
	},
}

func runPlay(cmd *cobra.Command, locator string) error {
	var (
		flags     = cmd.Flags()
		typeName  = lo.Must(flags.GetString("type"))
		extension = lo.Must(flags.GetString("extension"))
		position  = lo.Must(flags.GetDuration("position"))
		paused    = lo.Must(flags.GetBool("paused"))
		headless  = lo.Must(flags.GetBool("headless"))
		noVideo   = lo.Must(flags.GetBool("no-video"))
		title     = lo.Must(flags.GetString("title"))
	)

	contentType, err := builder.ParseContentType(typeName)
	if err != nil {
		return err
	}

	p := config.LoadPlayback()
	CheckDependencies(p.Backend)

	if title == "" {
		title = source.LastPathSegment(locator)
	}

	opts := controller.Options{
		Builder: builder.Options{
			UserAgent:    p.UserAgent,
			SegmentSize:  p.SegmentSize,
			SegmentCount: p.SegmentCount,
			HWDec:        p.HWDec,
		},
		PlayWhenReady: p.PlayWhenReady && !paused,
		SeekForward:   p.SeekForward,
		SeekBackward:  p.SeekBackward,
		StartPosition: position,
	}
	if p.Resume {
		opts.Store = resume.Store{}
	}

	surface := mo.None[renderer.Surface]()
	if !noVideo {
		surface = mo.Some(renderer.Surface{ID: "main", Title: title})
	}

	newEngine := func(handler looper.Poster) engine.Engine {
		return engine.NewMPV(handler, engine.Params{
			RendererCount: int(renderer.TrackTypeCount),
			MinBuffer:     p.MinBuffer,
			MinRebuffer:   p.MinRebuffer,
		}, engine.MPVOptions{
			Binary:    p.Backend,
			UserAgent: p.UserAgent,
			Title:     title,
		})
	}

	var (
		loop  = looper.New()
		media = controller.Media{Locator: locator, Type: contentType, Extension: extension}
	)

	if headless || !viper.GetBool(key.CliTUI) || !util.IsTerminal() {
		view := newHeadlessView(cmd.OutOrStdout(), loop)
		c := controller.New(loop, media, opts, view, controller.SurveyRequester{}, newEngine)
		return view.run(cmd.Context(), c, surface)
	}

	bubble := tui.New(loop, &tui.Options{Title: title, Surface: surface})
	c := controller.New(loop, media, opts, bubble, nil, newEngine)
	return bubble.Run(c)
}
