package uhslc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/textproto"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/ngmaloney/tide-terminal/internal/logging"
)

// DefaultHost is the UHSLC anonymous FTP server.
const DefaultHost = "ftp.soest.hawaii.edu:21"

// ErrNotFound is returned when the server has no file at the requested path.
var ErrNotFound = errors.New("file not found on server")

// Fetcher retrieves whole files by server path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// FTPClient implements Fetcher over anonymous FTP with a fresh connection per
// attempt.
type FTPClient struct {
	addr    string
	timeout time.Duration
	retries int
	backoff time.Duration
	log     *slog.Logger

	// fetchOnce performs a single attempt; replaced in tests.
	fetchOnce func(ctx context.Context, path string) ([]byte, error)
}

// NewFTPClient creates a client for addr (host:port). retries is the number
// of extra attempts made after a transient failure.
func NewFTPClient(addr string, timeout time.Duration, retries int, logger *slog.Logger) *FTPClient {
	if addr == "" {
		addr = DefaultHost
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Discard()
	}
	c := &FTPClient{
		addr:    addr,
		timeout: timeout,
		retries: retries,
		backoff: time.Second,
		log:     logger.With("component", "uhslc-ftp"),
	}
	c.fetchOnce = c.retrieve
	return c
}

// Fetch downloads path, retrying transient failures with a linear backoff.
func (c *FTPClient) Fetch(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.log.Info("retrying ftp request", "path", path, "attempt", attempt+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetching %s: %w", path, ctx.Err())
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}

		data, err := c.fetchOnce(ctx, path)
		if err == nil {
			c.log.Debug("ftp request complete", "path", path, "bytes", len(data))
			return data, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, fmt.Errorf("fetching %s: %w", path, err)
		}
	}
	return nil, fmt.Errorf("fetching %s after %d attempts: %w", path, c.retries+1, lastErr)
}

func (c *FTPClient) retrieve(ctx context.Context, path string) ([]byte, error) {
	conn, err := ftp.Dial(c.addr, ftp.DialWithTimeout(c.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.addr, err)
	}
	defer func() {
		if quitErr := conn.Quit(); quitErr != nil {
			c.log.Debug("ftp quit failed", "error", quitErr)
		}
	}()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}

	resp, err := conn.Retr(path)
	if err != nil {
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("retrieving: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}
	return data, nil
}

// isTransient reports whether err is worth another attempt: network
// failures and FTP 4xx replies.
func isTransient(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
		return false
	}
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code >= 400 && tpErr.Code < 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded)
}
