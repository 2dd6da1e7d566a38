// Package ctlsocksrv implements the read-only status socket that
// cmd/securestore's "serve" subcommand listens on (its --sock flag names
// the socket path). Unlike a mount
// control socket that translates paths, this one reports the commit
// counter, logical length, and open-handle count of whichever stores the
// process currently has open, so operators can poll status without
// interrupting the object's own read/write traffic.
package ctlsocksrv

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/extimsu/securestore/internal/ctlsock"
	"github.com/extimsu/securestore/internal/tlog"
)

// Registry is implemented by whatever is tracking open stores
// (pkg/securestore registers a store on Open/Create and deregisters it on
// Close).
type Registry interface {
	// Status returns a snapshot for the store named "name", or for every
	// open store if name is empty.
	Status(name string) ([]ctlsock.StoreStatus, error)
}

type ctlSockHandler struct {
	reg    Registry
	socket *net.UnixListener
	// Rate limiting
	rateLimiter map[string]*rateLimitEntry
	rateMutex   sync.RWMutex
}

type rateLimitEntry struct {
	lastRequest  time.Time
	requestCount int
}

// Rate limiting constants
const (
	maxRequestsPerMinute = 60
	rateLimitWindow      = time.Minute
	connectionTimeout    = 30 * time.Second
	readTimeout          = 5 * time.Second
)

// Serve serves incoming connections on "sock". This call blocks so you
// probably want to run it in a new goroutine. It never touches a store's
// read/write/commit path directly, only Registry.Status, which takes its
// own snapshot under the store's bookkeeping lock.
func Serve(sock net.Listener, reg Registry) {
	handler := ctlSockHandler{
		reg:         reg,
		socket:      sock.(*net.UnixListener),
		rateLimiter: make(map[string]*rateLimitEntry),
	}
	handler.acceptLoop()
}

func (ch *ctlSockHandler) acceptLoop() {
	for {
		conn, err := ch.socket.Accept()
		if err != nil {
			// This can trigger on program exit with "use of closed network connection".
			tlog.Info.Printf("ctlsock: Accept error: %v", err)
			break
		}
		go ch.handleConnection(conn.(*net.UnixConn))
	}
}

// checkPeerCredentials verifies that the connecting peer has the same UID as the server
func (ch *ctlSockHandler) checkPeerCredentials(conn *net.UnixConn) error {
	cred, err := getPeerCredentials(conn)
	if err != nil {
		return fmt.Errorf("failed to get peer credentials: %v", err)
	}
	ourUID := os.Getuid()
	if cred.UID != ourUID {
		return fmt.Errorf("peer UID %d does not match server UID %d", cred.UID, ourUID)
	}
	return nil
}

// checkRateLimit verifies that the client is not exceeding rate limits
func (ch *ctlSockHandler) checkRateLimit(clientID string) error {
	ch.rateMutex.Lock()
	defer ch.rateMutex.Unlock()

	now := time.Now()
	entry, exists := ch.rateLimiter[clientID]

	if !exists {
		ch.rateLimiter[clientID] = &rateLimitEntry{lastRequest: now, requestCount: 1}
		return nil
	}

	if now.Sub(entry.lastRequest) > rateLimitWindow {
		entry.lastRequest = now
		entry.requestCount = 1
		return nil
	}

	if entry.requestCount >= maxRequestsPerMinute {
		return fmt.Errorf("rate limit exceeded: %d requests per minute", maxRequestsPerMinute)
	}

	entry.requestCount++
	entry.lastRequest = now
	return nil
}

// ReadBufSize is the size of the request read buffer. A store name is
// bounded well below this; we abort the connection if a request exceeds it.
const ReadBufSize = 1024

// handleConnection reads and parses JSON requests from "conn"
func (ch *ctlSockHandler) handleConnection(conn *net.UnixConn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connectionTimeout))

	if err := ch.checkPeerCredentials(conn); err != nil {
		tlog.Warn.Printf("ctlsock: peer credential check failed: %v", err)
		return
	}

	clientID := getClientIdentifier(conn)

	buf := make([]byte, ReadBufSize)
	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		n, err := conn.Read(buf)
		if err == io.EOF {
			return
		} else if err != nil {
			tlog.Warn.Printf("ctlsock: Read error: %#v", err)
			return
		}
		if n == ReadBufSize {
			tlog.Warn.Printf("ctlsock: request too big (max = %d bytes)", ReadBufSize-1)
			return
		}

		if err := ch.checkRateLimit(clientID); err != nil {
			tlog.Warn.Printf("ctlsock: rate limit exceeded for client %s: %v", clientID, err)
			sendResponse(conn, err, nil, "")
			return
		}

		data := buf[:n]
		var in ctlsock.RequestStruct
		if err := json.Unmarshal(data, &in); err != nil {
			tlog.Warn.Printf("ctlsock: JSON Unmarshal error: %#v", err)
			sendResponse(conn, errors.New("JSON Unmarshal error: "+err.Error()), nil, "")
			continue
		}
		ch.handleRequest(&in, conn)
	}
}

// handleRequest handles an already-unmarshaled JSON request
func (ch *ctlSockHandler) handleRequest(in *ctlsock.RequestStruct, conn *net.UnixConn) {
	stores, err := ch.reg.Status(in.StoreName)
	var warnText string
	if err == nil && in.StoreName != "" && len(stores) == 0 {
		warnText = fmt.Sprintf("no open store named %q", in.StoreName)
	}
	sendResponse(conn, err, stores, warnText)
}

// sendResponse sends a JSON response message
func sendResponse(conn *net.UnixConn, err error, stores []ctlsock.StoreStatus, warnText string) {
	msg := ctlsock.ResponseStruct{
		Stores:   stores,
		WarnText: warnText,
	}
	if err != nil {
		msg.ErrText = err.Error()
		msg.ErrNo = -1
		if pe, ok := err.(*os.PathError); ok {
			if se, ok := pe.Err.(syscall.Errno); ok {
				msg.ErrNo = int32(se)
			}
		}
	}
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		tlog.Warn.Printf("ctlsock: Marshal failed: %v", err)
		return
	}
	jsonMsg = append(jsonMsg, '\n')
	if _, err := conn.Write(jsonMsg); err != nil {
		tlog.Warn.Printf("ctlsock: Write failed: %v", err)
	}
}

// PeerCredentials represents the credentials of a Unix socket peer
type PeerCredentials struct {
	UID int
	GID int
	PID int
}

// getPeerCredentials is implemented in platform-specific files:
// - peer_credentials_linux.go for Linux
// - peer_credentials_darwin.go for macOS
// - peer_credentials_other.go for other platforms

// getClientIdentifier returns a unique identifier for the client connection
func getClientIdentifier(conn *net.UnixConn) string {
	remoteAddr := conn.RemoteAddr()
	if remoteAddr != nil {
		return remoteAddr.String()
	}
	return "unknown"
}
