package util

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type observer struct{ name string }

func TestCopyOnWrite(t *testing.T) {
	Convey("Given an empty registry", t, func() {
		var reg CopyOnWrite[*observer]
		a, b, c := &observer{"a"}, &observer{"b"}, &observer{"c"}

		Convey("Adding is idempotent", func() {
			reg.Add(a)
			reg.Add(a)
			So(reg.Len(), ShouldEqual, 1)
		})

		Convey("Remove reports presence", func() {
			reg.Add(a)
			So(reg.Remove(a), ShouldBeTrue)
			So(reg.Remove(a), ShouldBeFalse)
			So(reg.Len(), ShouldEqual, 0)
		})

		Convey("Adding during iteration does not disturb the snapshot", func() {
			reg.Add(a)
			reg.Add(b)

			var visited []string
			for _, o := range reg.Snapshot() {
				visited = append(visited, o.name)
				reg.Add(c)
			}

			So(visited, ShouldResemble, []string{"a", "b"})
			So(reg.Len(), ShouldEqual, 3)
		})

		Convey("Removing during iteration does not skip anything", func() {
			reg.Add(a)
			reg.Add(b)

			var visited []string
			for _, o := range reg.Snapshot() {
				visited = append(visited, o.name)
				reg.Remove(b)
			}

			So(visited, ShouldResemble, []string{"a", "b"})
			So(reg.Len(), ShouldEqual, 1)
		})
	})
}

type sink interface{ Name() string }

type byValue struct{ name string }

func (v byValue) Name() string { return v.name }

type withTags struct{ tags []string }

func (withTags) Name() string { return "tags" }

func TestCopyOnWriteInterfaces(t *testing.T) {
	Convey("Given a registry of interface values", t, func() {
		var reg CopyOnWrite[sink]

		Convey("comparable values are deduplicated", func() {
			reg.Add(byValue{"a"})
			reg.Add(byValue{"a"})
			So(reg.Len(), ShouldEqual, 1)
			So(reg.Remove(byValue{"a"}), ShouldBeTrue)
		})

		Convey("a value that cannot be compared is rejected at registration", func() {
			reg.Add(byValue{"a"})
			So(func() { reg.Add(withTags{}) }, ShouldPanic)
			So(reg.Remove(withTags{}), ShouldBeFalse)
			So(reg.Len(), ShouldEqual, 1)
		})

		Convey("a pointer to the same type is fine", func() {
			w := &withTags{tags: []string{"x"}}
			reg.Add(w)
			reg.Add(w)
			So(reg.Len(), ShouldEqual, 1)
			So(reg.Remove(w), ShouldBeTrue)
		})
	})
}
