package mqtt

import (
	"context"
	"sort"
	"time"

	"github.com/robotalks/cobslink/pkg/l1/msgs"
)

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Discover collects retained device status messages until the timeout.
// The Queue must be connected.
func Discover(ctx context.Context, q *Queue, timeout time.Duration) ([]*msgs.DeviceStatus, error) {
	resCh := make(chan *msgs.DeviceStatus, 1)
	sub := q.SubStatus(func(status *msgs.DeviceStatus) {
		select {
		case resCh <- status:
		case <-time.After(time.Second):
		}
	})
	defer sub.Close()

	if timeout == 0 {
		timeout = DefaultDiscoverTimeout
	}
	found := make(map[string]*msgs.DeviceStatus)
	collect := func() []*msgs.DeviceStatus {
		res := make([]*msgs.DeviceStatus, 0, len(found))
		for _, status := range found {
			res = append(res, status)
		}
		sort.Slice(res, func(i, j int) bool { return res[i].DeviceID < res[j].DeviceID })
		return res
	}
	expire := time.After(timeout)
	for {
		select {
		case status := <-resCh:
			found[status.DeviceID] = status
		case <-expire:
			return collect(), nil
		case <-ctx.Done():
			return collect(), ctx.Err()
		}
	}
}
