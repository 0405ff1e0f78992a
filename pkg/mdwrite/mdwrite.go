// Copyright (c) Jeff Berkowitz 2024. All rights reserved.

// Package mdwrite writes Markdown files with a guaranteed UTF-8 encoding.
//
// Editors on Chinese-locale Windows default to the GBK code page, which
// silently mangles emoji and mixed-script text in the project docs. This
// package writes only bytes it has validated as UTF-8, never adds a byte
// order mark, strips one the input may carry, and verifies the write by
// reading the file back.
package mdwrite

import (
	"bytes"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

var log = logging.MustGetLogger("fontkit")

// Write stores content at path as UTF-8 without a BOM, creating parent
// directories as needed. The file on disk is read back and compared so a
// short or mangled write cannot pass silently.
func Write(path string, content []byte) error {
	if !utf8.Valid(content) {
		return errors.Errorf("%s: content is not valid UTF-8", path)
	}
	clean, err := stripBOM(content)
	if err != nil {
		return errors.Wrapf(err, "%s: strip BOM", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "create parent directory")
		}
	}
	if err := os.WriteFile(path, clean, 0644); err != nil {
		return errors.Wrap(err, "write")
	}

	readBack, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "verify")
	}
	if !bytes.Equal(readBack, clean) {
		return errors.Errorf("%s: verify failed, file differs from content", path)
	}
	log.Infof("wrote %s (%d bytes, UTF-8 no BOM)", path, len(clean))
	return nil
}

// stripBOM removes a single leading UTF-8 byte order mark. Content with
// no BOM passes through unchanged.
func stripBOM(content []byte) ([]byte, error) {
	return unicode.UTF8BOM.NewDecoder().Bytes(content)
}
