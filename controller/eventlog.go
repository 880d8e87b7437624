package controller

import (
	"time"

	"github.com/ringplayer/ringplayer/engine"
	"github.com/ringplayer/ringplayer/log"
	"github.com/ringplayer/ringplayer/renderer"
	"github.com/ringplayer/ringplayer/session"
	"github.com/sirupsen/logrus"
)

// eventLogger logs every session event with the time since the session started.
type eventLogger struct {
	entry   *logrus.Entry
	started time.Time
}

func newEventLogger(sessionID, locator string) *eventLogger {
	l := &eventLogger{
		entry:   log.WithFields(log.Fields{"session": sessionID, "locator": locator}),
		started: time.Now(),
	}
	l.entry.Info("start")
	return l
}

func (l *eventLogger) at() *logrus.Entry {
	return l.entry.WithField("t", time.Since(l.started).Round(time.Millisecond).String())
}

func (l *eventLogger) end(position time.Duration) {
	l.at().WithField("position", position).Info("end")
}

func (l *eventLogger) OnStateChanged(playWhenReady bool, state engine.State) {
	l.at().Info(session.StateText(playWhenReady, state))
}

func (l *eventLogger) OnError(err *session.Error) {
	l.at().WithError(err).Error("playerFailed")
}

func (l *eventLogger) OnVideoSizeChanged(width, height, _ int, pixelWidthHeightRatio float64) {
	l.at().Debugf("videoSizeChanged [%d, %d, %.2f]", width, height, pixelWidthHeightRatio)
}

func (l *eventLogger) OnVideoFormatEnabled(f renderer.Format) {
	l.at().Infof("videoFormat [%s]", f)
}

func (l *eventLogger) OnAudioFormatEnabled(f renderer.Format) {
	l.at().Infof("audioFormat [%s]", f)
}

func (l *eventLogger) OnDroppedFrames(count int, elapsed time.Duration) {
	l.at().Debugf("droppedFrames [%d, %s]", count, elapsed)
}

func (l *eventLogger) OnBandwidthSample(elapsed time.Duration, bytes int64, bitrateEstimate int64) {
	l.at().Tracef("bandwidth [%s, %d, %d]", elapsed, bytes, bitrateEstimate)
}

func (l *eventLogger) OnLoadStarted(sourceID int, length int64) {
	l.at().Debugf("loadStart [%d, %d]", sourceID, length)
}

func (l *eventLogger) OnLoadCompleted(sourceID int, bytesLoaded int64, loadDuration time.Duration) {
	l.at().Debugf("loadEnd [%d, %d, %s]", sourceID, bytesLoaded, loadDuration)
}

func (l *eventLogger) OnDecoderInitialized(decoderName string, _, initializationDuration time.Duration) {
	l.at().Infof("decoderInitialized [%s, %s]", decoderName, initializationDuration)
}

func (l *eventLogger) OnRendererInitializationError(err error) {
	l.at().WithError(err).Error("rendererInitError")
}

func (l *eventLogger) OnDecoderInitializationError(err *renderer.DecoderInitializationError) {
	l.at().WithError(err).Error("decoderInitializationError")
}

func (l *eventLogger) OnAudioTrackInitializationError(err *renderer.AudioTrackInitializationError) {
	l.at().WithError(err).Error("audioTrackInitializationError")
}

func (l *eventLogger) OnAudioTrackWriteError(err *renderer.AudioTrackWriteError) {
	l.at().WithError(err).Error("audioTrackWriteError")
}

func (l *eventLogger) OnAudioTrackUnderrun(bufferSize int, bufferDuration, elapsedSinceLastFeed time.Duration) {
	l.at().Warnf("audioTrackUnderrun [%d, %s, %s]", bufferSize, bufferDuration, elapsedSinceLastFeed)
}

func (l *eventLogger) OnCryptoError(err *renderer.CryptoError) {
	l.at().WithError(err).Error("cryptoError")
}

func (l *eventLogger) OnLoadError(sourceID int, err error) {
	l.at().WithError(err).WithField("source", sourceID).Error("loadError")
}
