package storage

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ajitpratap0/rowstream/pkg/compression"
)

// sniffLen is how much of a stream content detection may inspect.
const sniffLen = 3072

var byExtension = map[string]string{
	".csv":     "text/csv",
	".tsv":     "text/tab-separated-values",
	".tab":     "text/tab-separated-values",
	".json":    "application/json",
	".ndjson":  "application/x-ndjson",
	".jsonl":   "application/x-ndjson",
	".bson":    "application/bson",
	".avro":    "application/avro",
	".arrow":   "application/vnd.apache.arrow.stream",
	".arrows":  "application/vnd.apache.arrow.stream",
	".msgpack": "application/x-msgpack",
	".mpk":     "application/x-msgpack",
}

// MimeFromName maps a file name to a MIME type by extension, ignoring a
// trailing compression extension. It returns "" when nothing matches.
func MimeFromName(name string) string {
	_, base := compression.FromPath(name)
	return byExtension[strings.ToLower(path.Ext(base))]
}

// ExtensionFor returns the preferred file extension for mime, or "".
func ExtensionFor(mime string) string {
	best := ""
	for ext, m := range byExtension {
		if m == mime && (best == "" || len(ext) < len(best) || (len(ext) == len(best) && ext < best)) {
			best = ext
		}
	}
	return best
}

var extendOnce sync.Once

// registerDetectors teaches mimetype the binary row formats it does not
// know about.
func registerDetectors() {
	extendOnce.Do(func() {
		mimetype.Extend(isBSON, "application/bson", ".bson")
		mimetype.Extend(isArrowStream, "application/vnd.apache.arrow.stream", ".arrows")
		mimetype.Extend(isAvroContainer, "application/avro", ".avro")
	})
}

func isAvroContainer(raw []byte, _ uint32) bool {
	return bytes.HasPrefix(raw, []byte{'O', 'b', 'j', 0x01})
}

// isArrowStream matches the continuation marker that opens every IPC
// stream message.
func isArrowStream(raw []byte, _ uint32) bool {
	return len(raw) >= 8 && bytes.HasPrefix(raw, []byte{0xFF, 0xFF, 0xFF, 0xFF}) &&
		binary.LittleEndian.Uint32(raw[4:8]) > 0
}

// isBSON matches a plausible leading document: a sane length, a known
// element type and a zero terminator when the whole document is visible.
func isBSON(raw []byte, _ uint32) bool {
	if len(raw) < 5 {
		return false
	}
	n := binary.LittleEndian.Uint32(raw[:4])
	if n < 5 || n > 16*1024*1024 {
		return false
	}
	if int(n) <= len(raw) && raw[n-1] != 0x00 {
		return false
	}
	if n == 5 {
		return true
	}
	t := raw[4]
	return (t >= 0x01 && t <= 0x13) || t == 0x7F || t == 0xFF
}

// Sniff detects the MIME type of r's leading bytes. The returned reader
// yields the full stream, detected bytes included.
func Sniff(r io.Reader) (string, io.Reader, error) {
	registerDetectors()

	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", br, err
	}
	if len(head) == 0 {
		return "", br, nil
	}
	mt := mimetype.Detect(head)
	for m := mt; m != nil; m = m.Parent() {
		if mimetypeKnown(m.String()) {
			return m.String(), br, nil
		}
	}
	return mt.String(), br, nil
}

func mimetypeKnown(mime string) bool {
	for _, m := range byExtension {
		if m == mime {
			return true
		}
	}
	return false
}

// SniffReadCloser is Sniff for a handle. Closing the returned handle
// closes rc.
func SniffReadCloser(rc io.ReadCloser) (string, io.ReadCloser, error) {
	mime, r, err := Sniff(rc)
	return mime, readCloser{Reader: r, Closer: rc}, err
}

type readCloser struct {
	io.Reader
	io.Closer
}
