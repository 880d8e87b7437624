package controller

import (
	"errors"
	"io/fs"

	"github.com/AlecAivazis/survey/v2"
	"github.com/ringplayer/ringplayer/filesystem"
	"github.com/ringplayer/ringplayer/log"
	"github.com/ringplayer/ringplayer/looper"
	"github.com/ringplayer/ringplayer/source"
)

// ErrPermissionDenied is returned when a local file stays unreadable.
var ErrPermissionDenied = errors.New("read permission denied")

// PermissionRequester asks the user for read access to a local file.
// result may be called from any goroutine, at most once.
type PermissionRequester interface {
	RequestReadPermission(path string, result func(granted bool))
}

// maybeRequestPermission starts a permission request and reports whether
// preparing has to wait for its result.
func (c *Controller) maybeRequestPermission() bool {
	path, ok := source.LocalPath(c.media.Locator)
	if !ok || !requiresPermission(path) {
		return false
	}

	if c.permissions == nil {
		c.view.Finish(ErrPermissionDenied)
		return true
	}

	log.Infof("requesting read permission for %s", path)
	c.awaiting = true
	c.permissions.RequestReadPermission(path, func(granted bool) {
		c.handler.Post(func() { c.OnPermissionResult(granted) })
	})
	return true
}

func requiresPermission(path string) bool {
	return errors.Is(filesystem.CheckReadable(path), fs.ErrPermission)
}

// SurveyRequester prompts on the terminal until the file becomes readable
// or the user gives up.
type SurveyRequester struct {
	// Handler, when set, receives the prompt so it runs off the caller's goroutine.
	Handler looper.Poster
}

func (s SurveyRequester) RequestReadPermission(path string, result func(granted bool)) {
	ask := func() {
		for {
			retry := false
			prompt := &survey.Confirm{
				Message: path + " is not readable. Fix its permissions and retry?",
				Default: true,
			}
			if err := survey.AskOne(prompt, &retry); err != nil || !retry {
				result(false)
				return
			}

			if !requiresPermission(path) {
				result(true)
				return
			}
		}
	}

	if s.Handler == nil {
		ask()
		return
	}
	s.Handler.Post(ask)
}
