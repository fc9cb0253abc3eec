package stream

import (
	"context"
	"net"

	"github.com/golang/glog"

	fx "github.com/robotalks/cobslink/pkg/framework"
	"github.com/robotalks/cobslink/pkg/l1/comm"
)

// Server accepts TCP connections and attaches each of them to
// a Broadcaster.
type Server struct {
	Listener    net.Listener
	Broadcaster *comm.Broadcaster
}

// Listen creates a Server listening on addr.
func Listen(addr string, b *comm.Broadcaster) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{Listener: ln, Broadcaster: b}, nil
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, s.Listener, func() error {
		for {
			conn, err := s.Listener.Accept()
			if err != nil {
				return err
			}
			go s.serve(conn)
		}
	})
}

func (s *Server) serve(conn net.Conn) {
	glog.Infof("stream client %s connected", conn.RemoteAddr())
	rw := New(conn)
	defer rw.Close()
	err := s.Broadcaster.Serve(rw)
	glog.Infof("stream client %s disconnected: %v", conn.RemoteAddr(), err)
}
