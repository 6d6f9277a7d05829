package registry

import "sync/atomic"

// Stats tracks the fetcher's observable counters, per spec §4.3:
// requests issued, bytes received, disk-cache hits. Grounded on the
// teacher's metrics.go, generalized to atomic counters safe under the
// concurrent fetch pattern mandated by spec §4.3.
type Stats struct {
	requestsIssued int64
	bytesReceived  int64
	diskCacheHits  int64
}

func (s *Stats) addRequest()            { atomic.AddInt64(&s.requestsIssued, 1) }
func (s *Stats) addBytes(n int64)       { atomic.AddInt64(&s.bytesReceived, n) }
func (s *Stats) addCacheHit()           { atomic.AddInt64(&s.diskCacheHits, 1) }
func (s *Stats) RequestsIssued() int64  { return atomic.LoadInt64(&s.requestsIssued) }
func (s *Stats) BytesReceived() int64   { return atomic.LoadInt64(&s.bytesReceived) }
func (s *Stats) DiskCacheHits() int64   { return atomic.LoadInt64(&s.diskCacheHits) }
