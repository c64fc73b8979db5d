package xfer

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestList_Entries(t *testing.T) {
	c, link, _ := newTestClient(t)

	link.enqueueLine("LIST:/logs/a.txt:10")
	link.enqueueLine("LIST:/logs/b.txt:20")
	link.enqueueLine("LIST:/logs/c.txt:30")
	link.enqueueLine("DONE")

	files, err := c.RequestList(context.Background())
	require.NoError(t, err)

	require.Len(t, files, 3)
	assert.Equal(t, RemoteFile{Path: "/logs/a.txt", Size: 10}, files[0])
	assert.Equal(t, RemoteFile{Path: "/logs/b.txt", Size: 20}, files[1])
	assert.Equal(t, RemoteFile{Path: "/logs/c.txt", Size: 30}, files[2])

	assert.Equal(t, "#LIST\r\n", link.wrote.String())
}

func TestRequestList_ColonInPath(t *testing.T) {
	c, link, _ := newTestClient(t)

	link.enqueueLine("LIST:/logs/a:b.txt:42")
	link.enqueueLine("DONE")

	files, err := c.RequestList(context.Background())
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "/logs/a:b.txt", files[0].Path)
	assert.Equal(t, int64(42), files[0].Size)
}

func TestRequestList_MalformedEntrySkipped(t *testing.T) {
	c, link, _ := newTestClient(t)

	link.enqueueLine("LIST:/logs/a.txt:10")
	link.enqueueLine("LIST:/logs/bad.txt:notanumber")
	link.enqueueLine("LIST:/logs/c.txt:30")
	link.enqueueLine("DONE")

	files, err := c.RequestList(context.Background())
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, "/logs/a.txt", files[0].Path)
	assert.Equal(t, "/logs/c.txt", files[1].Path)

	assert.Equal(t, uint64(1), c.Metrics().ProtocolErrCount.Load())
}

func TestRequestList_DeviceErrorTerminates(t *testing.T) {
	c, link, _ := newTestClient(t)

	link.enqueueLine("LIST:/logs/a.txt:10")
	link.enqueueLine("ERR:fs unavailable")
	link.enqueueLine("LIST:/logs/never.txt:1")

	files, err := c.RequestList(context.Background())

	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, "fs unavailable", devErr.Message)

	// Entries collected before the error are still returned.
	require.Len(t, files, 1)
	assert.Equal(t, "/logs/a.txt", files[0].Path)
}

func TestRequestList_EmptyAfterGrace(t *testing.T) {
	c, _, _ := newTestClient(t)

	start := time.Now()
	files, err := c.RequestList(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)

	// The grace period must have been honored before giving up.
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestRequestList_DuplicatesKept(t *testing.T) {
	c, link, _ := newTestClient(t)

	link.enqueueLine("LIST:/logs/a.txt:10")
	link.enqueueLine("LIST:/logs/a.txt:10")
	link.enqueueLine("DONE")

	files, err := c.RequestList(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestDownload_Success(t *testing.T) {
	c, link, fs := newTestClient(t)

	payload := []byte("hello, embedded world\n")
	enqueueFile(link, "/logs/test.txt", payload)

	res, err := c.Download(context.Background(), "/logs/test.txt")
	require.NoError(t, err)
	require.True(t, res.Success())

	assert.Equal(t, int64(len(payload)), res.Size)
	assert.Equal(t, int64(len(payload)), res.BytesWritten)

	got, err := afero.ReadFile(fs, res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	assert.Equal(t, "#GET /logs/test.txt\r\n", link.wrote.String())
}

func TestDownload_ShortRead(t *testing.T) {
	c, link, fs := newTestClient(t)

	link.enqueueLine("FILEBEGIN /logs/test.txt 12")
	link.enqueue([]byte("only 11 byt")) // one byte short, then silence

	res, err := c.Download(context.Background(), "/logs/test.txt")

	var shortErr *ShortReadError
	require.ErrorAs(t, err, &shortErr)
	assert.Equal(t, int64(12), shortErr.Expected)
	assert.Equal(t, int64(11), shortErr.Received)

	// The partial file remains on disk with exactly the received bytes.
	got, ferr := afero.ReadFile(fs, res.OutputPath)
	require.NoError(t, ferr)
	assert.Equal(t, []byte("only 11 byt"), got)
}

func TestDownload_MissingFooter(t *testing.T) {
	c, link, _ := newTestClient(t)

	link.enqueueLine("FILEBEGIN /logs/test.txt 5")
	link.enqueue([]byte("12345"))
	// No footer follows.

	res, err := c.Download(context.Background(), "/logs/test.txt")

	var footErr *FooterError
	require.ErrorAs(t, err, &footErr)
	assert.Empty(t, footErr.Line)

	// The byte count matched, but the download still fails.
	assert.Equal(t, int64(5), res.BytesWritten)
	assert.False(t, res.Success())
}

func TestDownload_BadFooter(t *testing.T) {
	c, link, _ := newTestClient(t)

	link.enqueueLine("FILEBEGIN /logs/test.txt 5")
	link.enqueue([]byte("12345"))
	link.enqueueLine("GARBAGE")

	_, err := c.Download(context.Background(), "/logs/test.txt")

	var footErr *FooterError
	require.ErrorAs(t, err, &footErr)
	assert.Equal(t, "GARBAGE", footErr.Line)
}

func TestDownload_DeviceError(t *testing.T) {
	c, link, _ := newTestClient(t)

	link.enqueueLine("ERR:disk read failed")

	_, err := c.Download(context.Background(), "/logs/test.txt")

	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, "disk read failed", devErr.Message)
}

func TestDownload_HeaderTimeout(t *testing.T) {
	c, _, _ := newTestClient(t)

	_, err := c.Download(context.Background(), "/logs/test.txt")
	require.ErrorIs(t, err, ErrHeaderTimeout)
}

func TestDownload_UnexpectedHeader(t *testing.T) {
	c, link, _ := newTestClient(t)

	link.enqueueLine("HELLO there")

	_, err := c.Download(context.Background(), "/logs/test.txt")
	require.ErrorIs(t, err, ErrUnexpectedHeader)
}

func TestDownload_MalformedHeaderSize(t *testing.T) {
	c, link, _ := newTestClient(t)

	link.enqueueLine("FILEBEGIN /logs/test.txt twelve")

	_, err := c.Download(context.Background(), "/logs/test.txt")
	require.ErrorIs(t, err, ErrSizeNotNumeric)
}

func TestDownload_PathTraversalConfined(t *testing.T) {
	c, link, fs := newTestClient(t, WithOutputDir("/out"))

	enqueueFile(link, "../../etc/passwd", []byte("evil"))

	res, err := c.Download(context.Background(), "/logs/whatever.txt")
	require.NoError(t, err)

	// The write lands inside the output directory regardless of the
	// announced path.
	assert.Equal(t, "/out/passwd", res.OutputPath)

	exists, _ := afero.Exists(fs, "/out/passwd")
	assert.True(t, exists)

	escaped, _ := afero.Exists(fs, "/etc/passwd")
	assert.False(t, escaped)
}

func TestDownload_Idempotent(t *testing.T) {
	c, link, fs := newTestClient(t)

	payload := []byte("same content both times")
	enqueueFile(link, "/logs/test.txt", payload)
	enqueueFile(link, "/logs/test.txt", payload)

	res1, err := c.Download(context.Background(), "/logs/test.txt")
	require.NoError(t, err)

	res2, err := c.Download(context.Background(), "/logs/test.txt")
	require.NoError(t, err)

	got1, _ := afero.ReadFile(fs, res1.OutputPath)
	got2, _ := afero.ReadFile(fs, res2.OutputPath)
	assert.Equal(t, payload, got1)
	assert.Equal(t, got1, got2)
}

func TestDownloadAll_ContinuesPastFailure(t *testing.T) {
	var seen []*DownloadResult

	c, link, _ := newTestClient(t, WithDownloadCallback(func(r *DownloadResult) {
		seen = append(seen, r)
	}))

	link.enqueueLine("ERR:disk read failed")
	enqueueFile(link, "/logs/b.txt", []byte("second file ok"))

	files := []RemoteFile{
		{Path: "/logs/a.txt", Size: 10},
		{Path: "/logs/b.txt", Size: 14},
	}

	summary := c.DownloadAll(context.Background(), files)

	assert.Equal(t, 2, summary.Total())
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	require.Len(t, summary.Results, 2)
	assert.False(t, summary.Results[0].Success())
	assert.True(t, summary.Results[1].Success())

	// Callback fired once per file, in order.
	require.Len(t, seen, 2)
	assert.Equal(t, "/logs/a.txt", seen[0].Path)
	assert.Equal(t, "/logs/b.txt", seen[1].Path)
}

func TestDownloadAll_CancelledContextStopsBatch(t *testing.T) {
	c, _, _ := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := []RemoteFile{
		{Path: "/logs/a.txt", Size: 1},
		{Path: "/logs/b.txt", Size: 1},
	}

	summary := c.DownloadAll(ctx, files)

	// The first attempt fails on the cancelled context and the batch stops.
	assert.Equal(t, 1, summary.Total())
	assert.Equal(t, 1, summary.Failed)
}

func TestDownload_Metrics(t *testing.T) {
	c, link, _ := newTestClient(t)

	payload := []byte("0123456789")
	enqueueFile(link, "/logs/ok.txt", payload)
	link.enqueueLine("ERR:nope")

	_, err := c.Download(context.Background(), "/logs/ok.txt")
	require.NoError(t, err)

	_, err = c.Download(context.Background(), "/logs/fail.txt")
	require.Error(t, err)

	m := c.Metrics()
	assert.Equal(t, uint64(2), m.FileReqCount.Load())
	assert.Equal(t, uint64(1), m.FileOKCount.Load())
	assert.Equal(t, uint64(1), m.FileFailCount.Load())
	assert.Equal(t, uint64(1), m.DeviceErrCount.Load())
	assert.Equal(t, uint64(len(payload)), m.BytesRecvCount.Load())
}

func TestClient_Close(t *testing.T) {
	c, link, _ := newTestClient(t)

	require.NoError(t, c.Close())
	assert.True(t, link.closed)
}
