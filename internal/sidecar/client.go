// Package sidecar is the TCP/JSON request-response client to the
// external hologram scoring process: id-correlated replies over a
// newline-delimited frame protocol, a timeout plus single retry, and a
// tiered query that degrades to persisted pressure scores and then to
// bare recency when the sidecar is unreachable.
package sidecar

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"claudex/internal/claudexerr"
	"claudex/internal/logging"
)

const defaultTimeout = 2000 * time.Millisecond

// Request is the outgoing envelope; id correlates it with a Response.
type Request struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Response is the incoming envelope.
type Response struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// QueryPayload is the payload shape for type="query".
type QueryPayload struct {
	Prompt      string   `json:"prompt"`
	Session     string   `json:"session"`
	RecentFiles []string `json:"recent_files"`
	Project     string   `json:"project,omitempty"`
	ProjectDir  string   `json:"project_dir,omitempty"`
	BoostFiles  []string `json:"boost_files,omitempty"`
}

// ScoredFile is one scored path in a query response.
type ScoredFile struct {
	Path           string  `json:"path"`
	RawPressure    float64 `json:"raw_pressure"`
	Temperature    string  `json:"temperature"`
	SystemBucket   string  `json:"system_bucket,omitempty"`
	PressureBucket string  `json:"pressure_bucket,omitempty"`
}

// QueryResult is the payload shape for a successful query response.
type QueryResult struct {
	Hot    []ScoredFile `json:"hot"`
	Warm   []ScoredFile `json:"warm"`
	Cold   []ScoredFile `json:"cold"`
	Source string       `json:"source"`
}

// Client is a loopback TCP client to the sidecar, discovered from a
// filesystem port marker.
type Client struct {
	Timeout time.Duration
}

// New returns a Client with the default 2000ms timeout.
func New() *Client {
	return &Client{Timeout: defaultTimeout}
}

// ReadPort reads the sidecar's listening port from portFile. Returns 0
// and a non-nil error if the marker is missing, empty, or malformed —
// callers treat that as "sidecar unreachable" and degrade.
func ReadPort(portFile string) (int, error) {
	data, err := os.ReadFile(portFile)
	if err != nil {
		return 0, claudexerr.New(claudexerr.KindSidecarUnreachable, "sidecar.ReadPort", err)
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, claudexerr.New(claudexerr.KindSidecarProtocolError, "sidecar.ReadPort", err)
	}
	return port, nil
}

// Query sends a single query request and waits for the matching reply,
// correlating by id and discarding anything else it reads. It retries
// once on a transient transport error (connection refused/reset); a
// timeout on either attempt surfaces as KindSidecarTimeout and the
// caller is expected to degrade to the next fallback tier. A reply that
// arrives after the deadline is simply never read — closing the
// connection drops it.
func (c *Client) Query(port int, req Request) (*Response, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	resp, err := c.attempt(port, req, timeout)
	if err == nil {
		return resp, nil
	}
	if claudexerr.Is(err, claudexerr.KindSidecarTimeout) || claudexerr.Is(err, claudexerr.KindSidecarProtocolError) {
		return nil, err
	}

	logging.Get(logging.CategorySidecar).Warn("sidecar query failed, retrying once: %v", err)
	return c.attempt(port, req, timeout)
}

func (c *Client) attempt(port int, req Request, timeout time.Duration) (*Response, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, claudexerr.New(claudexerr.KindSidecarUnreachable, "sidecar.Query", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, claudexerr.New(claudexerr.KindSidecarUnreachable, "sidecar.Query", err)
	}

	encoded, err := json.Marshal(req)
	if err != nil {
		return nil, claudexerr.New(claudexerr.KindSidecarProtocolError, "sidecar.Query", err)
	}
	if _, err := conn.Write(append(encoded, '\n')); err != nil {
		return nil, translateNetErr(err)
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, translateNetErr(err)
		}
		var resp Response
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &resp); err != nil {
			continue
		}
		if resp.ID != req.ID {
			// a reply for a different, already-abandoned request; discard
			continue
		}
		if resp.Error != "" {
			return nil, claudexerr.New(claudexerr.KindSidecarProtocolError, "sidecar.Query", fmt.Errorf("%s", resp.Error))
		}
		return &resp, nil
	}
}

func translateNetErr(err error) error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return claudexerr.New(claudexerr.KindSidecarTimeout, "sidecar.Query", err)
	}
	return claudexerr.New(claudexerr.KindSidecarUnreachable, "sidecar.Query", err)
}
