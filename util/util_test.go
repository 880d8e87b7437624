package util

import (
	"testing"
	"time"

	"github.com/ringplayer/ringplayer/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func TestQuantify(t *testing.T) {
	Convey("Quantify", t, func() {
		So(Quantify(1, "track", "tracks"), ShouldEqual, "1 track")
		So(Quantify(2, "track", "tracks"), ShouldEqual, "2 tracks")
	})
}

func TestCapitalize(t *testing.T) {
	Convey("Capitalize", t, func() {
		So(Capitalize("ready"), ShouldEqual, "Ready")
		So(Capitalize(""), ShouldEqual, "")
	})
}

func TestClamp(t *testing.T) {
	Convey("Clamp", t, func() {
		So(Clamp(5, 0, 10), ShouldEqual, 5)
		So(Clamp(-3, 0, 10), ShouldEqual, 0)
		So(Clamp(42, 0, 10), ShouldEqual, 10)
		So(Clamp(-time.Second, 0, time.Minute), ShouldEqual, time.Duration(0))
	})
}

func TestFormatClock(t *testing.T) {
	Convey("FormatClock", t, func() {
		So(FormatClock(65*time.Second), ShouldEqual, "1:05")
		So(FormatClock(time.Hour+2*time.Minute+3*time.Second), ShouldEqual, "1:02:03")
		So(FormatClock(-1), ShouldEqual, "--:--")
	})
}

func TestDelete(t *testing.T) {
	Convey("Given a directory in memory", t, func() {
		filesystem.SetMemMapFs()
		fs := filesystem.API()
		So(fs.WriteFile("/cache/a/resume.json", []byte("{}"), 0o644), ShouldBeNil)

		Convey("Delete removes it recursively", func() {
			So(Delete("/cache/a"), ShouldBeNil)
			exists, _ := fs.Exists("/cache/a/resume.json")
			So(exists, ShouldBeFalse)
		})
	})
}
