package comm

import (
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/cobslink/pkg/framework"
)

// Broadcaster fans packets out to attached writers.
// A writer failing a write is detached.
type Broadcaster struct {
	writers map[uint64]PacketWriter
	nextID  uint64
	lock    sync.Mutex
}

// Attach adds a writer and returns the func to detach it.
func (b *Broadcaster) Attach(w PacketWriter) (detach func()) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.writers == nil {
		b.writers = make(map[uint64]PacketWriter)
	}
	b.nextID++
	id := b.nextID
	b.writers[id] = w
	return func() { b.detach(id) }
}

// Len returns the number of attached writers.
func (b *Broadcaster) Len() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.writers)
}

// WritePacket implements PacketWriter. Writers are called outside the
// lock, so a slow writer delays the packet but never Attach or detach.
func (b *Broadcaster) WritePacket(pkt []byte) error {
	b.lock.Lock()
	writers := make(map[uint64]PacketWriter, len(b.writers))
	for id, w := range b.writers {
		writers[id] = w
	}
	b.lock.Unlock()

	var errs fx.AggregatedError
	for id, w := range writers {
		if err := w.WritePacket(pkt); err != nil {
			glog.V(1).Infof("detach writer %d: %v", id, err)
			b.detach(id)
			errs.Add(err)
		}
	}
	return errs.Aggregate()
}

func (b *Broadcaster) detach(id uint64) {
	b.lock.Lock()
	delete(b.writers, id)
	b.lock.Unlock()
}

// Serve attaches rw and blocks until reading from it fails, which is
// how a closed peer is detected. Incoming packets are ignored.
func (b *Broadcaster) Serve(rw PacketReadWriter) error {
	detach := b.Attach(rw)
	defer detach()
	for {
		if _, err := rw.ReadPacket(); err != nil {
			return err
		}
	}
}
