package limits

import "time"

// slidingWindow is a bucketed counter over a rolling time window. A
// fixed ring of buckets at bucketSize granularity keeps memory bounded
// while avoiding the boundary spike of fixed windows.
//
// The window carries no lock and no clock; the caller serializes
// access and supplies the time, which keeps quota checks on two
// windows atomic and makes tests deterministic.
type slidingWindow struct {
	window     time.Duration
	bucketSize time.Duration
	buckets    []windowBucket
	head       int
}

type windowBucket struct {
	timestamp time.Time
	value     int64
}

func newSlidingWindow(window, bucketSize time.Duration) *slidingWindow {
	numBuckets := int(window / bucketSize)
	if numBuckets == 0 {
		numBuckets = 1
	}
	return &slidingWindow{
		window:     window,
		bucketSize: bucketSize,
		buckets:    make([]windowBucket, numBuckets),
	}
}

// add increments the bucket covering now.
func (w *slidingWindow) add(now time.Time, value int64) {
	w.prune(now)
	bucket := w.findOrCreate(now)
	bucket.value += value
}

// sum returns the total count inside the window.
func (w *slidingWindow) sum(now time.Time) int64 {
	w.prune(now)

	var sum int64
	for i := range w.buckets {
		if !w.buckets[i].timestamp.IsZero() {
			sum += w.buckets[i].value
		}
	}
	return sum
}

// oldest returns the timestamp of the earliest live bucket. The
// second return is false when the window is empty.
func (w *slidingWindow) oldest(now time.Time) (time.Time, bool) {
	w.prune(now)

	var (
		earliest time.Time
		found    bool
	)
	for i := range w.buckets {
		ts := w.buckets[i].timestamp
		if ts.IsZero() || w.buckets[i].value == 0 {
			continue
		}
		if !found || ts.Before(earliest) {
			earliest = ts
			found = true
		}
	}
	return earliest, found
}

// snapshot returns the live buckets for persistence.
func (w *slidingWindow) snapshot() []windowBucket {
	var out []windowBucket
	for i := range w.buckets {
		if !w.buckets[i].timestamp.IsZero() && w.buckets[i].value > 0 {
			out = append(out, w.buckets[i])
		}
	}
	return out
}

// restore loads persisted buckets, dropping any outside the window.
func (w *slidingWindow) restore(now time.Time, buckets []windowBucket) {
	cutoff := now.Add(-w.window)
	for _, b := range buckets {
		if b.timestamp.IsZero() || b.timestamp.Before(cutoff) {
			continue
		}
		slot := w.findOrCreate(b.timestamp)
		slot.value += b.value
	}
}

// prune clears buckets older than the window.
func (w *slidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	for i := range w.buckets {
		if !w.buckets[i].timestamp.IsZero() && w.buckets[i].timestamp.Before(cutoff) {
			w.buckets[i] = windowBucket{}
		}
	}
}

// findOrCreate returns the bucket for the given time, reusing an
// empty slot or displacing the oldest bucket when the ring is full.
func (w *slidingWindow) findOrCreate(at time.Time) *windowBucket {
	bucketTime := at.Truncate(w.bucketSize)

	if w.buckets[w.head].timestamp.Equal(bucketTime) {
		return &w.buckets[w.head]
	}
	for i := range w.buckets {
		if w.buckets[i].timestamp.Equal(bucketTime) {
			return &w.buckets[i]
		}
	}

	target := -1
	for i := range w.buckets {
		if w.buckets[i].timestamp.IsZero() {
			target = i
			break
		}
	}
	if target == -1 {
		oldest := 0
		for i := 1; i < len(w.buckets); i++ {
			if w.buckets[i].timestamp.Before(w.buckets[oldest].timestamp) {
				oldest = i
			}
		}
		target = oldest
	}

	w.buckets[target] = windowBucket{timestamp: bucketTime}
	w.head = target
	return &w.buckets[target]
}
