package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"
)

// Entry is one member of a test archive.
type Entry struct {
	Name     string
	Body     string
	Mode     int64
	Type     byte // tar.TypeReg when zero
	Linkname string
}

// File is a regular file entry.
func File(name, body string, mode int64) Entry {
	return Entry{Name: name, Body: body, Mode: mode, Type: tar.TypeReg}
}

// Dir is a directory entry.
func Dir(name string) Entry {
	return Entry{Name: name, Mode: 0o755, Type: tar.TypeDir}
}

// Symlink is a symbolic link entry.
func Symlink(name, target string) Entry {
	return Entry{Name: name, Mode: 0o777, Type: tar.TypeSymlink, Linkname: target}
}

// TarGz builds an in-memory gzip-compressed tar archive.
func TarGz(t testing.TB, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	for _, e := range entries {
		typ := e.Type
		if typ == 0 {
			typ = tar.TypeReg
		}
		hdr := &tar.Header{
			Name:     e.Name,
			Mode:     e.Mode,
			Typeflag: typ,
			Linkname: e.Linkname,
		}
		if typ == tar.TypeReg {
			hdr.Size = int64(len(e.Body))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header %s: %v", e.Name, err)
		}
		if typ == tar.TypeReg {
			if _, err := tw.Write([]byte(e.Body)); err != nil {
				t.Fatalf("write tar body %s: %v", e.Name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
	return buf.Bytes()
}
