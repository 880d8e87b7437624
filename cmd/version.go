package cmd

import (
	"os"
	"runtime"
	"strings"
	"text/template"

	"github.com/ringplayer/ringplayer/color"
	"github.com/ringplayer/ringplayer/constant"
	"github.com/ringplayer/ringplayer/style"
	"github.com/ringplayer/ringplayer/version"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.SetOut(os.Stdout)
	versionCmd.Flags().BoolP("short", "s", false, "Print the version string only")
}

var versionTemplate = template.Must(template.New("version").Funcs(map[string]any{
	"faint":   style.Faint,
	"bold":    style.Bold,
	"magenta": style.Fg(color.Purple),
}).Parse(`{{ magenta .App }} {{ bold .Version }}

  {{ faint "revision" }}  {{ .Revision }}
  {{ faint "built at" }}  {{ .BuiltAt }}
  {{ faint "built by" }}  {{ .BuiltBy }}
  {{ faint "platform" }}  {{ .OS }}/{{ .Arch }}
`))

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(constant.Version)
			return
		}

		defer version.Notify()

		handleErr(versionTemplate.Execute(cmd.OutOrStdout(), struct {
			App, Version, Revision, BuiltAt, BuiltBy, OS, Arch string
		}{
			App:      constant.Ringplayer,
			Version:  constant.Version,
			Revision: constant.Revision,
			BuiltAt:  strings.TrimSpace(constant.BuiltAt),
			BuiltBy:  constant.BuiltBy,
			OS:       runtime.GOOS,
			Arch:     runtime.GOARCH,
		}))
	},
}
