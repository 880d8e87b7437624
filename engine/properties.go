package engine

import (
	"errors"
	"time"

	"github.com/samber/mo"
)

// onProperty folds an observed property into the playback state and forwards
// renderer events. It runs on the observer goroutine.
func (m *MPV) onProperty(gen int, name string, data any) {
	var after func()

	m.mu.Lock()
	if gen != m.generation || !m.prepared {
		m.mu.Unlock()
		return
	}
	set := m.renderers

	switch name {
	case "pause":
		// Echoes of our own pause commands are ignored; the rest come from
		// the user acting on the mpv window.
		if paused, ok := data.(bool); ok && m.pauseInFlight == 0 && m.playWhenReady == paused {
			m.playWhenReady = !paused
			m.broadcastStateLocked()
		}
	case "paused-for-cache":
		m.cachePaused = asBool(data)
	case "seeking":
		m.seeking = asBool(data)
	case "eof-reached":
		m.eof = asBool(data)
	case "time-pos":
		if secs, ok := asFloat(data); ok {
			m.position = seconds(secs)
		}
	case "duration":
		m.duration = -1
		if secs, ok := asFloat(data); ok {
			m.duration = seconds(secs)
		}
	case "demuxer-cache-time":
		if secs, ok := asFloat(data); ok {
			m.cacheTime = seconds(secs)
		}
	case "video-params":
		params, ok := data.(map[string]any)
		v, hasVideo := set.Video()
		if !ok || !hasVideo {
			break
		}
		w, h, rotate := asInt(params["w"]), asInt(params["h"]), asInt(params["rotate"])
		par, ok := asFloat(params["par"])
		if !ok || par <= 0 {
			par = 1
		}
		if w > 0 && h > 0 {
			after = func() { v.ReportVideoSize(w, h, rotate, par) }
		}
	case "frame-drop-count":
		count, ok := asFloat(data)
		if !ok {
			break
		}
		delta := int64(count) - m.dropped
		m.dropped = int64(count)
		if v, hasVideo := set.Video(); hasVideo && delta > 0 {
			after = func() { v.ReportDroppedFrames(int(delta)) }
		}
	case "estimated-frame-number":
		frame, ok := asFloat(data)
		if !ok {
			break
		}
		delta := int64(frame) - m.frames
		m.frames = int64(frame)
		if v, hasVideo := set.Video(); hasVideo && delta > 0 {
			after = func() { v.ReportRenderedFrames(int(delta)) }
		}
	case "video-codec":
		codec, _ := data.(string)
		if v, hasVideo := set.Video(); hasVideo && codec != "" {
			took := time.Since(m.prepareStart)
			after = func() { v.ReportDecoderInitialized(codec, took) }
		}
	case "audio-codec-name":
		codec, _ := data.(string)
		if a, hasAudio := set.Audio(); hasAudio && codec != "" {
			took := time.Since(m.prepareStart)
			after = func() { a.ReportDecoderInitialized(codec, took) }
		}
	case "cache-speed":
		now := time.Now()
		speed, ok := asFloat(data)
		if ok && speed > 0 && !m.speedAt.IsZero() {
			elapsed := now.Sub(m.speedAt)
			bytes := int64(speed * elapsed.Seconds())
			if src, hasSource := set.PrimarySource(); hasSource && bytes > 0 {
				after = func() { src.Transferred(bytes, elapsed) }
			}
		}
		m.speedAt = now
	}

	m.updateStateLocked()
	m.mu.Unlock()

	if after != nil {
		after()
	}
}

// onEvent handles mpv events other than property changes.
func (m *MPV) onEvent(gen int, msg ipcMessage) {
	switch msg.Event {
	case "playback-restart":
		m.mu.Lock()
		if gen != m.generation {
			m.mu.Unlock()
			return
		}
		m.loaded = true
		pending := m.pendingSeek
		m.pendingSeek = mo.None[time.Duration]()
		m.updateStateLocked()
		m.mu.Unlock()

		if at, ok := pending.Get(); ok {
			m.worker.Post(func() { m.seek(at) })
		}
	case "end-file":
		switch msg.Reason {
		case "error":
			reason := msg.FileError
			if reason == "" {
				reason = "playback ended with an error"
			}
			err := errors.New(reason)
			m.worker.Post(func() { m.fail(gen, err) })
		case "eof":
			m.mu.Lock()
			if gen == m.generation {
				m.eof = true
				m.updateStateLocked()
			}
			m.mu.Unlock()
		}
	case "file-loaded":
		m.log.Debug("file loaded")
	}
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func asInt(v any) int {
	f, _ := v.(float64)
	return int(f)
}

func seconds(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
