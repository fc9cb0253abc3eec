package comm

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type clientTestEnv struct {
	t        *testing.T
	rw       *chanReadWriter
	client   *Client
	commands []*Command
}

func newClientTestEnv(t *testing.T) *clientTestEnv {
	env := &clientTestEnv{t: t, rw: newChanReadWriter()}
	clientFIFO := NewFIFO(env.rw)
	clientFIFO.seq = PacketSeq(1)
	env.client = NewClient(clientFIFO)
	return env
}

func (e *clientTestEnv) wrapFn(name string, fn func(string)) {
	e.t.Logf("START %s", name)
	fn(name)
	e.t.Logf("STOP %s", name)
}

func (e *clientTestEnv) run(fns ...func(string)) {
	ctx, cancel := context.WithCancel(context.TODO())
	defer cancel()
	go e.client.Run(ctx)
	e.wrapFn("start", e.stateChange(LinkUp))
	for n, fn := range fns {
		e.wrapFn(fmt.Sprintf("step-%d", n), fn)
	}
}

func (e *clientTestEnv) sequential(fns ...func(string)) func(string) {
	return func(name string) {
		for n, fn := range fns {
			e.wrapFn(name+fmt.Sprintf(".%d", n), fn)
		}
	}
}

func (e *clientTestEnv) parallel(fns ...func(string)) func(string) {
	return func(name string) {
		var wg sync.WaitGroup
		for n, fn := range fns {
			wg.Add(1)
			go func(name string, fn func(string)) {
				defer wg.Done()
				e.wrapFn(name, fn)
			}(name+fmt.Sprintf(".%d", n), fn)
		}
		wg.Wait()
	}
}

// expect waits for a frame carrying the packet bytes.
func (e *clientTestEnv) expect(pkt ...byte) func(string) {
	return func(name string) {
		select {
		case p := <-e.rw.writeCh:
			require.Equalf(e.t, frameOf(pkt...), p, "%s frame mismatch", name)
		case <-time.After(500 * time.Millisecond):
			e.t.Fatalf("%s: timeout", name)
		}
	}
}

// inject feeds a frame carrying the packet bytes.
func (e *clientTestEnv) inject(pkt ...byte) func(string) {
	return func(name string) {
		e.rw.inject(frameOf(pkt...))
	}
}

func (e *clientTestEnv) injectRaw(bs ...byte) func(string) {
	return func(name string) {
		e.rw.inject(bs)
	}
}

func (e *clientTestEnv) closeLink() func(string) {
	return func(name string) {
		close(e.rw.readCh)
	}
}

func (e *clientTestEnv) stateChange(states ...LinkState) func(string) {
	return func(name string) {
		for i, state := range states {
			select {
			case s := <-e.client.StateChan():
				require.Equalf(e.t, state, s, "%s.state[%d] mismatch", name, i)
			case <-time.After(500 * time.Millisecond):
				e.t.Fatalf("%s.state[%d]: timeout", name, i)
			}
		}
	}
}

func (e *clientTestEnv) clientDo(code byte, data ...byte) func(string) {
	return func(name string) {
		e.commands = append(e.commands, e.client.Do(&Packet{Code: code, Data: data}))
	}
}

func (e *clientTestEnv) nextResult(name string) (r Result) {
	require.NotEmptyf(e.t, e.commands, "%s commands empty", name)
	cmd := e.commands[0]
	e.commands = e.commands[1:]
	ctx, cancel := context.WithTimeout(context.TODO(), 500*time.Millisecond)
	defer cancel()
	r = cmd.Wait(ctx)
	require.NotEqualf(e.t, context.DeadlineExceeded, r.Err, "%s: timeout", name)
	return
}

func (e *clientTestEnv) clientResult(code byte, data ...byte) func(string) {
	return func(name string) {
		r := e.nextResult(name)
		require.NoErrorf(e.t, r.Err, "%s unexpected err", name)
		require.Equalf(e.t, code, r.Code, "%s code mismatch", name)
		if len(data) == 0 {
			require.Emptyf(e.t, r.Data, "%s data not empty", name)
		} else {
			require.Equalf(e.t, data, r.Data, "%s data mismatch", name)
		}
	}
}

func (e *clientTestEnv) clientResultErr(err error) func(string) {
	return func(name string) {
		r := e.nextResult(name)
		require.Equalf(e.t, err, r.Err, "%s mismatch", name)
	}
}

func (e *clientTestEnv) clientEvent(code byte, data ...byte) func(string) {
	return func(name string) {
		select {
		case pkt := <-e.client.EventChan():
			require.Equalf(e.t, code, pkt.Code, "%s code mismatch", name)
			if len(data) == 0 {
				require.Emptyf(e.t, pkt.Data, "%s data not empty", name)
			} else {
				require.Equalf(e.t, data, pkt.Data, "%s data mismatch", name)
			}
		case <-time.After(500 * time.Millisecond):
			e.t.Fatalf("%s timeout", name)
		}
	}
}

func TestClient(t *testing.T) {
	testCases := []struct {
		name  string
		logic func(*clientTestEnv)
	}{
		{
			"simple command",
			func(env *clientTestEnv) {
				env.run(
					env.parallel(
						env.clientDo(0x02, 0x0a, 0x00),
						env.expect(1, 0x02, 0x0a, 0x00),
					),
					env.inject(1, 0x02, 1),
					env.clientResult(0x02),
				)
			},
		},
		{
			"no reply",
			func(env *clientTestEnv) {
				env.run(
					env.parallel(
						env.sequential(
							env.clientDo(0x02),
							env.clientDo(0x04),
						),
						env.sequential(
							env.expect(1, 0x02),
							env.expect(2, 0x04),
						),
					),
					env.inject(1, 0x04, 2, 3),
					env.clientResultErr(ErrNoReply),
					env.clientResult(0x04, 3),
				)
			},
		},
		{
			"unknown reply keeps pending",
			func(env *clientTestEnv) {
				env.run(
					env.parallel(
						env.clientDo(0x02),
						env.expect(1, 0x02),
					),
					env.inject(1, 0x02, 9),
					env.inject(2, 0x02, 1, 7),
					env.clientResult(0x02, 7),
				)
			},
		},
		{
			"command error",
			func(env *clientTestEnv) {
				env.run(
					env.parallel(
						env.clientDo(0x04),
						env.expect(1, 0x04),
					),
					env.inject(1, 0x05, 1),
					func(name string) {
						r := env.nextResult(name)
						require.Equal(t, &CommandError{Code: 0x04}, r.Err)
					},
				)
			},
		},
		{
			"event",
			func(env *clientTestEnv) {
				env.run(
					env.inject(1, 0x81, 2, 0, 1, 0),
					env.clientEvent(0x81, 2, 0, 1, 0),
				)
			},
		},
		{
			"event and command",
			func(env *clientTestEnv) {
				env.run(
					env.parallel(
						env.clientDo(0x02),
						env.expect(1, 0x02),
					),
					env.inject(1, 0x81, 2),
					env.clientEvent(0x81, 2),
					env.inject(2, 0x02, 1, 4),
					env.clientResult(0x02, 4),
				)
			},
		},
		{
			"recover after malformed frame",
			func(env *clientTestEnv) {
				env.run(
					env.parallel(
						env.clientDo(0x02),
						env.expect(1, 0x02),
					),
					env.injectRaw(0x06, 0x01, 0x02, 0x00),
					env.inject(1, 0x02, 1),
					env.clientResult(0x02),
				)
			},
		},
		{
			"link down fails pending",
			func(env *clientTestEnv) {
				env.run(
					env.parallel(
						env.clientDo(0x02),
						env.expect(1, 0x02),
					),
					env.closeLink(),
					env.clientResultErr(ErrNotReady),
					env.stateChange(LinkDown),
					env.clientDo(0x02),
					env.clientResultErr(ErrNotReady),
				)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newClientTestEnv(t)
			tc.logic(env)
		})
	}
}

func TestClientRunStopsOnEOF(t *testing.T) {
	env := newClientTestEnv(t)
	close(env.rw.readCh)
	require.Equal(t, io.EOF, env.client.Run(context.TODO()))
	require.Equal(t, LinkDown, env.client.FIFO().State())
}
