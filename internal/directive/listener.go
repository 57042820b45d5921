// internal/directive/listener.go

package directive

import (
	"context"
	"errors"
	"fmt"
	"net"

	"flightsup/internal/logging"
)

// ChannelConfig mirrors the channel section of config.yaml.
type ChannelConfig struct {
	Listen     string `yaml:"listen"`      // UDP address; empty disables the network channel
	Codec      string `yaml:"codec"`       // json | msgpack
	ReadBuffer int    `yaml:"read_buffer"` // max datagram size in bytes
}

func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{Codec: "json", ReadBuffer: 2048}
}

// Listener accepts one encoded directive per UDP datagram and replies to
// the sender with "ok" or "error: <reason>".
type Listener struct {
	conn   *net.UDPConn
	codec  Codec
	target Target
	bufLen int
	log    *logging.Logger
}

// Listen binds the UDP socket.
func Listen(cfg ChannelConfig, target Target, log *logging.Logger) (*Listener, error) {
	codec, err := CodecFor(cfg.Codec)
	if err != nil {
		return nil, err
	}
	addr, err := net.ResolveUDPAddr("udp", cfg.Listen)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}

	bufLen := cfg.ReadBuffer
	if bufLen <= 0 {
		bufLen = 2048
	}
	return &Listener{
		conn:   conn,
		codec:  codec,
		target: target,
		bufLen: bufLen,
		log:    log.With("component", "channel", "codec", codec.Name()),
	}, nil
}

func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }

// Serve reads datagrams until ctx ends. Malformed directives are rejected
// and reported; they never stop the listener.
func (l *Listener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = l.conn.Close() })
	defer stop()
	defer l.conn.Close()

	l.log.Info("directive channel listening", "addr", l.Addr().String())
	buf := make([]byte, l.bufLen)
	for {
		n, peer, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.log.Warn("directive read failed", "error", err)
			continue
		}

		reply := "ok"
		if err := l.handle(buf[:n]); err != nil {
			l.log.Warn("directive rejected", "peer", peer.String(), "error", err)
			reply = fmt.Sprintf("error: %v", err)
		}
		if _, err := l.conn.WriteToUDP([]byte(reply), peer); err != nil {
			l.log.Debug("reply failed", "peer", peer.String(), "error", err)
		}
	}
}

func (l *Listener) handle(payload []byte) error {
	d, err := l.codec.Decode(payload)
	if err != nil {
		return err
	}
	if err := Apply(d, l.target); err != nil {
		return err
	}
	l.log.Info("directive accepted", "command", d.Command, "priority", d.Priority)
	return nil
}
