package comm

import (
	"container/list"
	"context"
	"sync"
)

// Result is the result of a command using Do.
type Result struct {
	Err  error
	Code byte
	Data []byte
}

// Client provides client side operations over FIFO.
type Client struct {
	fifo    *FIFO
	eventCh chan *Packet
	stateCh chan LinkState

	pending list.List
	lock    sync.Mutex
}

// Command represents a pending command waiting for reply.
type Command struct {
	requestSeq PacketSeq
	resultCh   chan Result
}

// RequestSeq returns the request packet seq.
func (c *Command) RequestSeq() PacketSeq {
	return c.requestSeq
}

// ResultChan returns the chan to retrieve result.
func (c *Command) ResultChan() <-chan Result {
	return c.resultCh
}

// Wait waits for the result or the context to be done.
func (c *Command) Wait(ctx context.Context) Result {
	select {
	case r := <-c.resultCh:
		return r
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

// DefaultEventQueueSize is the number of events buffered by Client.
const DefaultEventQueueSize = 16

// NewClient creates client and wraps the fifo.
func NewClient(fifo *FIFO) *Client {
	c := &Client{
		fifo:    fifo,
		eventCh: make(chan *Packet, DefaultEventQueueSize),
		stateCh: make(chan LinkState, 1),
	}
	c.fifo.Handler = c
	c.fifo.Notifier = StateChangedFunc(c.stateChanged)
	return c
}

// FIFO gets wrapped FIFO.
func (c *Client) FIFO() *FIFO {
	return c.fifo
}

// StateChan retrieves the state reporting chan.
func (c *Client) StateChan() <-chan LinkState {
	return c.stateCh
}

// EventChan retrieves the event reporting chan.
func (c *Client) EventChan() <-chan *Packet {
	return c.eventCh
}

// DoWith sends a command and expects a result in the provided chan.
// The chan must be able to buffer at least one result.
func (c *Client) DoWith(pkt *Packet, ch chan Result) *Command {
	cmd := &Command{resultCh: ch}

	c.lock.Lock()
	defer c.lock.Unlock()
	err := c.fifo.Send(pkt)
	cmd.requestSeq = pkt.Seq
	if err != nil {
		cmd.resultCh <- Result{Err: err}
		return cmd
	}
	c.pending.PushBack(cmd)
	return cmd
}

// Do sends a command and returns a Command for result.
func (c *Client) Do(pkt *Packet) *Command {
	return c.DoWith(pkt, make(chan Result, 1))
}

// HandlePacket implements PacketHandler.
func (c *Client) HandlePacket(ctx context.Context, pkt *Packet) {
	if pkt.IsEvent() {
		select {
		case c.eventCh <- pkt:
		case <-ctx.Done():
		}
		return
	}
	if len(pkt.Data) == 0 {
		// invalid response packet.
		return
	}
	seq := PacketSeq(pkt.Data[0])
	if !seq.IsValid() {
		return
	}

	// Commands sent before the replied one never get a reply.
	var skipped []*Command
	var cmd *Command
	c.lock.Lock()
	for elm := c.pending.Front(); elm != nil; elm = c.pending.Front() {
		c.pending.Remove(elm)
		if curr := elm.Value.(*Command); curr.requestSeq == seq {
			cmd = curr
			break
		} else {
			skipped = append(skipped, curr)
		}
	}
	if cmd == nil {
		// unknown seq, restore the pending list.
		for _, curr := range skipped {
			c.pending.PushBack(curr)
		}
		skipped = nil
	}
	c.lock.Unlock()

	if cmd == nil {
		return
	}
	for _, curr := range skipped {
		curr.resultCh <- Result{Err: ErrNoReply}
	}
	code := pkt.Code &^ (CodeEvent | CodeError)
	if pkt.Code&CodeError != 0 {
		cmd.resultCh <- Result{Err: &CommandError{Code: code}}
	} else {
		cmd.resultCh <- Result{Code: code, Data: pkt.Data[1:]}
	}
}

func (c *Client) stateChanged(ctx context.Context, state LinkState) {
	if !state.IsReady() {
		c.failPending(ErrNotReady)
	}
	select {
	case c.stateCh <- state:
	default:
		// drop the stale state and report the latest.
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- state
	}
}

func (c *Client) failPending(err error) {
	c.lock.Lock()
	var cmds []*Command
	for elm := c.pending.Front(); elm != nil; elm = elm.Next() {
		cmds = append(cmds, elm.Value.(*Command))
	}
	c.pending.Init()
	c.lock.Unlock()
	for _, cmd := range cmds {
		cmd.resultCh <- Result{Err: err}
	}
}

// Run wraps FIFO.Run to implement Runnable.
func (c *Client) Run(ctx context.Context) error {
	return c.fifo.Run(ctx)
}
