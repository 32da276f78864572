// Package observability mirrors live game state to an external process over
// a pair of Unix-domain sockets, for tooling that wants to observe a run
// (test harnesses, TAS input generators) without instrumenting the emulator
// core itself.
package observability

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"
)

const (
	// DefaultTxSocket is dialed to push GameState snapshots out.
	DefaultTxSocket = "/tmp/gba_tx.sock"
	// DefaultRxSocket is listened on for inbound control connections.
	DefaultRxSocket = "/tmp/gba_rx.sock"

	// defaultSnapshotStride is how often (in frames) Tick pushes a snapshot.
	defaultSnapshotStride uint64 = 50
	// defaultErrorLogStride rate-limits consecutive tx failures to one log
	// line per this many errors, so ⌈errors/stride⌉ lines are emitted total.
	defaultErrorLogStride = 30
	// defaultWriteDeadline bounds both the non-blocking connect and the tx
	// write so a stalled consumer can never gate emulator progress.
	defaultWriteDeadline = 100 * time.Microsecond
)

// Config is the sidecar's configuration record. TxPath/RxPath fall back to
// the GBA_TX_SOCKET_NAME/GBA_RX_SOCKET_NAME environment variables, read once
// at construction and never consulted again.
type Config struct {
	TxPath         string
	RxPath         string
	SnapshotStride uint64
	ErrorLogStride int
	WriteDeadline  time.Duration
}

// DefaultConfig returns the default sidecar configuration, with TxPath/RxPath
// taken from the environment if set.
func DefaultConfig() Config {
	return Config{
		TxPath:         envOr("GBA_TX_SOCKET_NAME", DefaultTxSocket),
		RxPath:         envOr("GBA_RX_SOCKET_NAME", DefaultRxSocket),
		SnapshotStride: defaultSnapshotStride,
		ErrorLogStride: defaultErrorLogStride,
		WriteDeadline:  defaultWriteDeadline,
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// GameState is the payload pushed to the tx socket on each notify.
type GameState struct {
	IWRAM []byte
	EWRAM []byte
	Time  uint64
}

// encode lays GameState out per the wire format: a little-endian u32 byte
// count covering everything that follows, then IWRAM, then EWRAM, then a
// little-endian u64 frame time.
func (g GameState) encode() []byte {
	payloadLen := len(g.IWRAM) + len(g.EWRAM) + 8
	buf := make([]byte, 4+payloadLen)

	binary.LittleEndian.PutUint32(buf[0:4], uint32(payloadLen))
	offset := 4
	offset += copy(buf[offset:], g.IWRAM)
	offset += copy(buf[offset:], g.EWRAM)
	binary.LittleEndian.PutUint64(buf[offset:], g.Time)

	return buf
}

// Sidecar owns the tx (outbound) and rx (inbound) Unix sockets. The tx side
// is dial-and-retry: if nothing is listening, Notify logs the failure
// (rate-limited) and keeps going rather than blocking emulation.
type Sidecar struct {
	cfg Config
	tx  net.Conn
	rx  net.Listener

	errCount int
	log      *slog.Logger
}

// New binds the rx listener and attempts an initial non-blocking tx dial. A
// failed tx dial is not an error: Notify retries it lazily on every call.
func New(cfg Config) (*Sidecar, error) {
	if cfg.TxPath == "" {
		cfg.TxPath = DefaultTxSocket
	}
	if cfg.RxPath == "" {
		cfg.RxPath = DefaultRxSocket
	}
	if cfg.SnapshotStride == 0 {
		cfg.SnapshotStride = defaultSnapshotStride
	}
	if cfg.ErrorLogStride <= 0 {
		cfg.ErrorLogStride = defaultErrorLogStride
	}
	if cfg.WriteDeadline <= 0 {
		cfg.WriteDeadline = defaultWriteDeadline
	}

	if _, err := os.Stat(cfg.RxPath); err == nil {
		if err := os.Remove(cfg.RxPath); err != nil {
			return nil, fmt.Errorf("observability: removing stale rx socket: %w", err)
		}
	}

	rx, err := net.Listen("unix", cfg.RxPath)
	if err != nil {
		return nil, fmt.Errorf("observability: listening on rx socket: %w", err)
	}

	s := &Sidecar{
		cfg: cfg,
		rx:  rx,
		log: slog.Default().With("component", "observability"),
	}

	if conn, err := net.DialTimeout("unix", cfg.TxPath, cfg.WriteDeadline); err == nil {
		s.tx = conn
	} else {
		s.log.Debug("tx socket not yet available, will retry on notify", "path", cfg.TxPath, "error", err)
	}

	go s.acceptLoop()

	s.log.Info("observability sidecar listening", "rx", cfg.RxPath, "tx", cfg.TxPath)
	return s, nil
}

// acceptLoop drains inbound connections on the rx socket. The sidecar has no
// inbound control protocol of its own yet; connections are accepted and
// closed so a peer's dial doesn't hang, and logged at debug level.
func (s *Sidecar) acceptLoop() {
	for {
		conn, err := s.rx.Accept()
		if err != nil {
			return
		}
		s.log.Debug("observability rx connection", "remote", conn.RemoteAddr())
		conn.Close()
	}
}

// Tick is called once per frame; it pushes a snapshot every SnapshotStride
// frames and is a no-op otherwise.
func (s *Sidecar) Tick(frameCount uint64, state GameState) {
	if frameCount%s.cfg.SnapshotStride == 0 {
		s.Notify(state)
	}
}

// Notify encodes state per the binary wire format and writes it to the tx
// socket, (re)dialing lazily if no connection is currently open. Both the
// connect and the write are bounded by WriteDeadline so a stalled or absent
// consumer never gates emulator progress.
func (s *Sidecar) Notify(state GameState) {
	if s.tx == nil {
		conn, err := net.DialTimeout("unix", s.cfg.TxPath, s.cfg.WriteDeadline)
		if err != nil {
			s.logError(err)
			return
		}
		s.tx = conn
	}

	if err := s.tx.SetWriteDeadline(time.Now().Add(s.cfg.WriteDeadline)); err != nil {
		s.logError(err)
		return
	}

	if _, err := s.tx.Write(state.encode()); err != nil {
		s.logError(err)
		s.tx.Close()
		s.tx = nil
	}
}

// logError rate-limits consecutive tx failures to one log line per
// ErrorLogStride errors, so a run with N total failures emits exactly
// ceil(N/ErrorLogStride) lines instead of one per failed frame.
func (s *Sidecar) logError(err error) {
	s.errCount++
	if (s.errCount-1)%s.cfg.ErrorLogStride == 0 {
		s.log.Warn("observability: tx socket error", "path", s.cfg.TxPath, "error", err, "count", s.errCount)
	}
}

// Close releases both sockets.
func (s *Sidecar) Close() error {
	if s.tx != nil {
		s.tx.Close()
	}
	return s.rx.Close()
}
