package fins

import (
	"context"
	"net"
	"time"
)

const READ_BUFFER_SIZE = 2048

// Socket is the datagram transport a Client sends frames on and receives
// replies from.
type Socket interface {
	Send(ctx context.Context, payload []byte, dst *net.UDPAddr) error
	Recv(ctx context.Context) ([]byte, *net.UDPAddr, error)
	Close() error
	LocalAddr() net.Addr
}

// SocketFactory opens a Socket bound to local (nil = any address).
type SocketFactory func(local *net.UDPAddr) (Socket, error)

// udpSocket is a thin wrapper around an unconnected net.UDPConn, so replies
// are accepted from whichever host answers.
type udpSocket struct {
	conn *net.UDPConn
}

// NewUDPSocket opens an IPv4 UDP socket bound to local.
func NewUDPSocket(local *net.UDPAddr) (Socket, error) {
	conn, err := net.ListenUDP("udp4", local)
	if err != nil {
		return nil, err
	}
	return &udpSocket{conn: conn}, nil
}

func (s *udpSocket) Send(ctx context.Context, payload []byte, dst *net.UDPAddr) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.conn.WriteToUDP(payload, dst)
	return err
}

func (s *udpSocket) Recv(ctx context.Context) ([]byte, *net.UDPAddr, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(deadline)
	} else {
		_ = s.conn.SetReadDeadline(time.Time{})
	}

	buf := make([]byte, READ_BUFFER_SIZE)
	n, from, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		// If the context expired, surface that instead of a timeout error.
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, err
	}
	return buf[:n], from, nil
}

func (s *udpSocket) Close() error {
	return s.conn.Close()
}

func (s *udpSocket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}
