package version

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ringplayer/ringplayer/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestCompare(t *testing.T) {
	Convey("Compare orders semantic versions", t, func() {
		for _, c := range []struct {
			a, b string
			want int
		}{
			{"1.0.0", "1.0.0", 0},
			{"v1.2.0", "1.1.9", 1},
			{"0.1.0", "0.1.1", -1},
			{"2.0.0", "10.0.0", -1},
			{"1.2", "1.2.0", 0},
			{"1.2.0-rc1", "1.2.0", -1},
			{"1.2.0", "1.2.0-rc1", 1},
		} {
			got, err := Compare(c.a, c.b)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, c.want)
		}

		_, err := Compare("latest", "1.0.0")
		So(err, ShouldNotBeNil)

		_, err = Compare("1.0.0.0", "1.0.0")
		So(err, ShouldNotBeNil)
	})
}

func TestLatest(t *testing.T) {
	Convey("Given a releases endpoint", t, func() {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			_, _ = w.Write([]byte(`{"tag_name":"v0.2.0"}`))
		}))
		defer server.Close()

		previous := ReleasesURL
		ReleasesURL = server.URL
		defer func() { ReleasesURL = previous }()
		So(versionCacher.Set(""), ShouldBeNil)

		Convey("Latest strips the prefix and caches the answer", func() {
			v, err := Latest()
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "0.2.0")

			v, err = Latest()
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "0.2.0")
			So(calls, ShouldEqual, 1)
		})
	})
}
