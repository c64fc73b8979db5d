package xfer

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Protocol literals, fixed by the device firmware.
const (
	cmdList = "#LIST"
	cmdGet  = "#GET"

	listPrefix   = "LIST:"
	errPrefix    = "ERR:"
	headerPrefix = "FILEBEGIN "
	footerPrefix = "FILEEND"
)

// parseListLine parses one "LIST:<path>:<size>" entry.
//
// The path may itself contain colons; the size field never does, so the
// split is on the last colon of the remainder.
func parseListLine(line string) (RemoteFile, error) {
	rest := strings.TrimPrefix(line, listPrefix)

	idx := strings.LastIndexByte(rest, ':')
	if idx < 0 {
		return RemoteFile{}, fmt.Errorf("%w: no size separator in %q", ErrListLineMalformed, line)
	}

	filePath := strings.TrimSpace(rest[:idx])
	if filePath == "" {
		return RemoteFile{}, fmt.Errorf("%w: %q", ErrPathEmpty, line)
	}

	size, err := parseSize(rest[idx+1:])
	if err != nil {
		return RemoteFile{}, fmt.Errorf("%w: %q", err, line)
	}

	return RemoteFile{Path: filePath, Size: size}, nil
}

// parseFileHeader parses a "FILEBEGIN <path> <size>" header line.
//
// The size is separated on the last space so a path containing spaces does
// not shift the size field.
func parseFileHeader(line string) (RemoteFile, error) {
	rest := strings.TrimPrefix(line, headerPrefix)

	idx := strings.LastIndexByte(rest, ' ')
	if idx < 0 {
		return RemoteFile{}, fmt.Errorf("%w: no size field in %q", ErrHeaderMalformed, line)
	}

	filePath := strings.TrimSpace(rest[:idx])
	if filePath == "" {
		return RemoteFile{}, fmt.Errorf("%w: %q", ErrPathEmpty, line)
	}

	size, err := parseSize(rest[idx+1:])
	if err != nil {
		return RemoteFile{}, fmt.Errorf("%w: %q", err, line)
	}

	return RemoteFile{Path: filePath, Size: size}, nil
}

func parseSize(field string) (int64, error) {
	size, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil || size < 0 {
		return 0, ErrSizeNotNumeric
	}

	return size, nil
}

// outputBaseName derives the local file name from the final component of the
// announced device path.
//
// Only the base name is ever used, so a malicious or buggy device response
// cannot direct a write outside the configured output directory.
func outputBaseName(announced string) (string, error) {
	base := path.Base(strings.TrimSpace(announced))

	// Device paths use forward slashes, but strip backslash components too
	// in case the client runs against a misbehaving device on Windows.
	if i := strings.LastIndexByte(base, '\\'); i >= 0 {
		base = base[i+1:]
	}

	if base == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("%w: no usable file name in %q", ErrPathEmpty, announced)
	}

	return base, nil
}
