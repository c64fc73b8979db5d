package xfer

import "fmt"

// RemoteFile describes one file on the device filesystem as reported by a
// listing response.
type RemoteFile struct {
	// Path is the device-side path, e.g. "/logs/atlog_20251218_112345.txt".
	Path string
	// Size is the announced file size in bytes.
	Size int64
}

func (f RemoteFile) String() string {
	return fmt.Sprintf("%s (%d bytes)", f.Path, f.Size)
}

// DownloadResult records the outcome of one file download.
type DownloadResult struct {
	// Path is the requested device-side path.
	Path string
	// Size is the size announced by the file header, or 0 when no header
	// was parsed.
	Size int64
	// BytesWritten is the number of payload bytes written to the output
	// file. On a short read this is less than Size and the partial file
	// remains on disk.
	BytesWritten int64
	// OutputPath is the local destination file, when one was created.
	OutputPath string
	// Err is nil on success and carries the failure classification otherwise.
	Err error
}

// Success reports whether the download completed with the exact announced
// byte count and a valid footer.
func (r *DownloadResult) Success() bool {
	return r.Err == nil
}

// SessionSummary aggregates the download results of one batch.
type SessionSummary struct {
	Results   []*DownloadResult
	Succeeded int
	Failed    int
}

func (s *SessionSummary) add(r *DownloadResult) {
	s.Results = append(s.Results, r)
	if r.Success() {
		s.Succeeded++
	} else {
		s.Failed++
	}
}

// Total returns the number of downloads attempted.
func (s *SessionSummary) Total() int {
	return len(s.Results)
}

func (s *SessionSummary) String() string {
	return fmt.Sprintf("%d/%d files downloaded", s.Succeeded, s.Total())
}
