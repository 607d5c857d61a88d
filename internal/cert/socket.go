package cert

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"net"
	"strings"

	"github.com/yasu-a/manaba-clone/internal/logger"
)

// SocketManager is the client side of the credential server: it connects
// to host:port, sends a domain request, and decodes the gob-encoded
// LoginPair reply.
type SocketManager struct {
	Addr string
}

// NewSocketManager builds a SocketManager dialing addr (host:port).
func NewSocketManager(addr string) *SocketManager {
	return &SocketManager{Addr: addr}
}

// Request opens one connection per request: connect, send the domain,
// read the length-prefixed gob reply, close.
func (s *SocketManager) Request(domain string) (LoginPair, error) {
	conn, err := net.Dial("tcp", s.Addr)
	if err != nil {
		return LoginPair{}, fmt.Errorf("dial cert server: %w", err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "%s\n", domain); err != nil {
		return LoginPair{}, fmt.Errorf("send domain request: %w", err)
	}

	pair, err := readPair(conn)
	if err != nil {
		return LoginPair{}, fmt.Errorf("read cert reply: %w", err)
	}
	if pair.UID == "" && pair.Password == "" {
		return LoginPair{}, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
	}
	return pair, nil
}

var _ Manager = (*SocketManager)(nil)

// Serve listens on addr and serves credential requests from pairs until
// accepting a connection fails, returning that error.
// One connection per request: read a UTF-8 newline-terminated domain,
// reply with the length-prefixed gob encoding of the matching LoginPair
// (or its zero value when the domain is unknown), then close.
func Serve(addr string, pairs map[string]LoginPair, log logger.Interface) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer listener.Close()

	log.Info("serve forever", "addr", addr)
	for {
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("accept connection: %w", err)
		}
		go handleConn(conn, pairs, log)
	}
}

func handleConn(conn net.Conn, pairs map[string]LoginPair, log logger.Interface) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	domain, err := reader.ReadString('\n')
	if err != nil {
		log.Warn("read domain request failed", "error", err)
		return
	}
	domain = strings.TrimSpace(domain)
	log.Info("accepted request", "domain", domain)

	pair := pairs[domain] // zero value when unknown

	if err := writePair(conn, pair); err != nil {
		log.Warn("write cert reply failed", "error", err)
	}
}

func writePair(conn net.Conn, pair LoginPair) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(pair); err != nil {
		return fmt.Errorf("encode pair: %w", err)
	}

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(buf.Len()))
	if _, err := conn.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := conn.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

func readPair(conn net.Conn) (LoginPair, error) {
	var lenPrefix [4]byte
	if _, err := fullRead(conn, lenPrefix[:]); err != nil {
		return LoginPair{}, fmt.Errorf("read length prefix: %w", err)
	}
	size := binary.BigEndian.Uint32(lenPrefix[:])

	payload := make([]byte, size)
	if _, err := fullRead(conn, payload); err != nil {
		return LoginPair{}, fmt.Errorf("read payload: %w", err)
	}

	var pair LoginPair
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&pair); err != nil {
		return LoginPair{}, fmt.Errorf("decode pair: %w", err)
	}
	return pair, nil
}

func fullRead(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
