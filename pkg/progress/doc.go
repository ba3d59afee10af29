// Package progress holds the arithmetic behind the warm-up progress bar: the
// scheduled phase plan used while the backend is presumed cold, and the
// fast-forward interpolation used once it is confirmed warm. Nothing here
// owns a timer; the session drives both from its own clock.
package progress
