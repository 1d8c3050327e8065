/*
Copyright © 2022 the bufclip authors.
This file is part of bufclip.

bufclip is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

bufclip is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with bufclip.  If not, see <http://www.gnu.org/licenses/>.
*/

package bufclip

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Feedback receives progress information from a running algorithm and
// tells it whether to stop early.
type Feedback interface {
	// IsCanceled returns true once the run should stop. It is checked
	// before each feature is processed.
	IsCanceled() bool

	// SetProgress reports the percentage of work completed, from 0 to 100.
	SetProgress(percent int)

	// PushInfo reports an informational message.
	PushInfo(msg string)
}

// LogFeedback is a Feedback that is canceled along with a context and
// writes progress to a logger.
type LogFeedback struct {
	ctx context.Context
	Log logrus.FieldLogger

	mu       sync.Mutex
	progress int
}

// NewFeedback returns a Feedback that reports canceled once ctx is done.
// If log is nil, the standard logrus logger is used.
func NewFeedback(ctx context.Context, log logrus.FieldLogger) *LogFeedback {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogFeedback{ctx: ctx, Log: log}
}

// IsCanceled implements Feedback.
func (f *LogFeedback) IsCanceled() bool {
	select {
	case <-f.ctx.Done():
		return true
	default:
		return false
	}
}

// SetProgress implements Feedback. Values are clamped to [0, 100] and
// progress never moves backwards.
func (f *LogFeedback) SetProgress(percent int) {
	percent = clampPercent(percent)
	f.mu.Lock()
	if percent <= f.progress {
		f.mu.Unlock()
		return
	}
	f.progress = percent
	f.mu.Unlock()
	f.Log.WithFields(logrus.Fields{"progress": percent}).Debug("bufclip: progress")
}

// Progress returns the last reported percentage.
func (f *LogFeedback) Progress() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress
}

// PushInfo implements Feedback.
func (f *LogFeedback) PushInfo(msg string) {
	f.Log.Info(msg)
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// progressPercent returns floor(i*100/count), or 0 if the count is not known.
func progressPercent(i, count int) int {
	if count <= 0 {
		return 0
	}
	return clampPercent(i * 100 / count)
}

type nopFeedback struct{}

func (nopFeedback) IsCanceled() bool { return false }
func (nopFeedback) SetProgress(int)  {}
func (nopFeedback) PushInfo(string)  {}
