package where

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ringplayer/ringplayer/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Path functions", t, func() {
		Convey("Config() honours the override variable", func() {
			custom := filepath.Join(os.TempDir(), "ringplayer-test-config")
			t.Setenv(EnvConfigPath, custom)

			So(Config(), ShouldEqual, custom)
			So(lo.Must(filesystem.API().IsDir(custom)), ShouldBeTrue)
		})

		Convey("Logs() lives under Config()", func() {
			So(filepath.Dir(Logs()), ShouldEqual, Config())
			So(lo.Must(filesystem.API().IsDir(Logs())), ShouldBeTrue)
		})

		Convey("Resume() is a file under Cache()", func() {
			So(filepath.Dir(Resume()), ShouldEqual, Cache())
			So(filepath.Ext(Resume()), ShouldEqual, ".json")
		})

		Convey("Temp() exists", func() {
			So(lo.Must(filesystem.API().IsDir(Temp())), ShouldBeTrue)
		})
	})
}
