// Package remotefile provides a read-only daicon file backend over HTTP
// range requests. Writes and inserts report ErrNotSupported.
package remotefile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goware/urlx"
	"k8s.io/klog/v2"

	"github.com/open-mv-sandbox/daicon-go/fileproto"
	"github.com/open-mv-sandbox/daicon-go/metrics"
	rangecache "github.com/open-mv-sandbox/daicon-go/range-cache"
)

const mailboxSize = 128

// RemoteFile is a read-only file backend over a single remote HTTP file.
type RemoteFile struct {
	mailbox chan fileproto.Message
	done    chan struct{}

	url           string
	contentLength int64
	client        *http.Client
	cache         *rangecache.RangeCache
}

// Open validates the URL, discovers the remote file size, and starts the
// backend goroutine.
func Open(ctx context.Context, url string) (*RemoteFile, error) {
	if _, err := urlx.Parse(url); err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", url, err)
	}

	client := NewHTTPClient()
	contentLength, err := getContentSize(ctx, client, url)
	if err != nil {
		return nil, err
	}
	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length/Content-Range header, or file is empty")
	}

	f := &RemoteFile{
		mailbox:       make(chan fileproto.Message, mailboxSize),
		done:          make(chan struct{}),
		url:           url,
		contentLength: contentLength,
		client:        client,
	}
	f.cache = rangecache.New(contentLength, url, func(p []byte, off int64) (int, error) {
		return remoteReadAt(f.client, f.url, p, off)
	}, 0)

	go f.serve()
	return f, nil
}

// Sender returns the handle for submitting requests to this backend.
func (f *RemoteFile) Sender() fileproto.Sender {
	return f.mailbox
}

// Size returns the size of the remote file.
func (f *RemoteFile) Size() int64 {
	return f.contentLength
}

// Close drains all queued requests and releases connections. The caller must
// guarantee no further sends on the mailbox.
func (f *RemoteFile) Close() error {
	close(f.mailbox)
	<-f.done
	f.client.CloseIdleConnections()
	return f.cache.Close()
}

func (f *RemoteFile) serve() {
	defer close(f.done)
	for msg := range f.mailbox {
		f.handle(msg)
	}
}

func (f *RemoteFile) handle(msg fileproto.Message) {
	switch action := msg.Action.(type) {
	case fileproto.ReadAction:
		metrics.FileRequestsTotal.WithLabelValues("remote", "read").Inc()
		data, err := f.read(action.Offset, action.Size)
		if err != nil {
			metrics.FileRequestErrorsTotal.WithLabelValues("remote", "read").Inc()
		}
		action.OnResult(fileproto.ReadResponse{ID: msg.ID, Offset: action.Offset, Data: data, Err: err})

	case fileproto.WriteAction:
		metrics.FileRequestsTotal.WithLabelValues("remote", "write").Inc()
		action.OnResult(fileproto.WriteResponse{ID: msg.ID, Offset: action.Offset, Err: fileproto.ErrNotSupported})

	case fileproto.InsertAction:
		metrics.FileRequestsTotal.WithLabelValues("remote", "insert").Inc()
		action.OnResult(fileproto.InsertResponse{ID: msg.ID, Err: fileproto.ErrNotSupported})
	}
}

// read fetches the requested range through the cache. Reads past the end of
// the file return a truncated buffer.
func (f *RemoteFile) read(offset, size uint64) ([]byte, error) {
	if offset >= uint64(f.contentLength) {
		return nil, nil
	}
	end := offset + size
	if end > uint64(f.contentLength) {
		end = uint64(f.contentLength)
	}
	klog.V(3).Infof("remote read offset=%d size=%d", offset, end-offset)
	return f.cache.GetRange(context.Background(), int64(offset), int64(end-offset))
}

func retryExponentialBackoff(
	ctx context.Context,
	startDuration time.Duration,
	maxRetries int,
	fn func() error,
) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(startDuration):
			startDuration *= 2
		}
	}
	return fmt.Errorf("failed after %d retries; last error: %w", maxRetries, err)
}

func remoteReadAt(client *http.Client, url string, p []byte, off int64) (n int, err error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Keep-Alive", "timeout=600")

	// Range is inclusive. To read len(p) bytes starting at off, we request
	// off to off+len(p)-1.
	end := off + int64(len(p)) - 1
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))

	var resp *http.Response
	err = retryExponentialBackoff(
		context.Background(),
		100*time.Millisecond,
		3,
		func() error {
			resp, err = client.Do(req)
			code := "error"
			if err == nil {
				code = strconv.Itoa(resp.StatusCode)
			}
			metrics.RemoteFileHttpRequestsTotal.WithLabelValues("GET", code).Inc()

			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				return fmt.Errorf("unexpected status code for %q: %d", url, resp.StatusCode)
			}
			return nil
		})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return io.ReadFull(resp.Body, p)
}

// getContentSize determines the size of the remote file using HEAD or a
// single-byte Range GET.
func getContentSize(ctx context.Context, client *http.Client, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, "HEAD", url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	code := "error"
	if err == nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	metrics.RemoteFileHttpRequestsTotal.WithLabelValues("HEAD", code).Inc()

	if err == nil && resp.StatusCode == http.StatusOK && resp.ContentLength > 0 {
		resp.Body.Close()
		return resp.ContentLength, nil
	}
	if resp != nil {
		resp.Body.Close()
	}

	// Fallback: GET with Range: bytes=0-0.
	req, err = http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err = client.Do(req)
	code = "error"
	if err == nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	metrics.RemoteFileHttpRequestsTotal.WithLabelValues("GET", code).Inc()

	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		// If the server ignored the range and sent 200 OK, use the full
		// ContentLength.
		if resp.StatusCode == http.StatusOK {
			return resp.ContentLength, nil
		}
		return 0, fmt.Errorf("unexpected status code during size check for %q: %d", url, resp.StatusCode)
	}

	// Parse Content-Range: bytes 0-0/1234; only the total matters.
	contentRange := resp.Header.Get("Content-Range")
	if contentRange == "" {
		return 0, fmt.Errorf("missing Content-Range header for %q", url)
	}
	slashIdx := -1
	for i := len(contentRange) - 1; i >= 0; i-- {
		if contentRange[i] == '/' {
			slashIdx = i
			break
		}
	}
	if slashIdx < 0 || slashIdx == len(contentRange)-1 {
		return 0, fmt.Errorf("invalid Content-Range format for %q: %q", url, contentRange)
	}
	totalSize, err := strconv.ParseInt(contentRange[slashIdx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse total size from Content-Range for %q: %q", url, contentRange)
	}
	return totalSize, nil
}
