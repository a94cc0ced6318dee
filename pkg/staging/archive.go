package staging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/consts"
)

// unzip extracts the archive at src into dst. Entries that would land outside
// dst are rejected.
func unzip(src, dst string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open archive %s", src)
	}
	defer func() { _ = r.Close() }()

	root := filepath.Clean(dst)
	if err := os.MkdirAll(root, consts.ModeDir); err != nil {
		return err
	}

	for _, f := range r.File {
		target := filepath.Join(root, f.Name)
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return errors.Errorf("illegal path in archive: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, consts.ModeDir); err != nil {
				return err
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			return errors.Wrapf(err, "failed to extract %s", f.Name)
		}
	}

	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), consts.ModeDir); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, consts.ModeFile)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
