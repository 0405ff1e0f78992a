// Copyright (c) Jeff Berkowitz 2024, 2025. All rights reserved.

// Package gbconv converts UTF-8 C sources to GB2312 in place.
//
// The board's vendor toolchain runs on Chinese-locale Windows and reads
// sources as GB2312, but files touched by modern editors drift to UTF-8
// and their comments turn to mojibake in the IDE. The converter walks a
// tree, picks out the .c and .h files that look UTF-8, skips anything
// already readable as GB2312, and rewrites the rest.
//
// Detection is deliberately narrow: a file counts as UTF-8 only when it
// carries a BOM or a 0xE4 byte (the lead byte of the common CJK range)
// and validates as UTF-8. Pure-ASCII files read identically in both
// encodings and are never touched.
//
// GB2312 is handled as its GBK superset throughout: every GB2312
// sequence is valid GBK, and no standalone GB2312 codec ships with
// x/text.
package gbconv

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

var log = logging.MustGetLogger("fontkit")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TargetExts lists the file extensions the scanner considers.
var TargetExts = []string{".c", ".h"}

// Candidate is a source file scheduled for conversion.
type Candidate struct {
	Path string // absolute or root-relative path usable for I/O
	Rel  string // path relative to the scan root, for display
}

// Summary tallies one conversion run.
type Summary struct {
	Scanned   int // candidates found
	Converted int
	Failed    int
	Canceled  bool
}

// Scan walks root and returns the target-extension files that need
// converting, in walk order.
func Scan(root string) ([]Candidate, error) {
	var found []Candidate
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isTargetExt(path) {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "scan")
		}
		if !NeedsConversion(raw) {
			return nil
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			rel = path
		}
		found = append(found, Candidate{Path: path, Rel: rel})
		return nil
	})
	return found, err
}

// NeedsConversion reports whether raw should be rewritten: it must look
// UTF-8, and unless it carries the definitive BOM it must not also read
// as GB2312. An ambiguous file is left alone rather than corrupted.
func NeedsConversion(raw []byte) bool {
	if !LooksUTF8(raw) {
		return false
	}
	if bytes.HasPrefix(raw, utf8BOM) {
		return true
	}
	return !LooksGB2312(raw)
}

// LooksUTF8 reports whether raw is worth converting: valid UTF-8 that
// actually carries a BOM or CJK text. Plain ASCII is not worth a rewrite.
func LooksUTF8(raw []byte) bool {
	if !bytes.HasPrefix(raw, utf8BOM) && bytes.IndexByte(raw, 0xE4) < 0 {
		return false
	}
	return utf8.Valid(raw)
}

// LooksGB2312 reports whether raw already reads as GB2312 text with at
// least one symbol or hanzi pair. A GBK decode alone is too forgiving a
// test: GBK assigns lead rows and user-defined zones GB2312 never used,
// and misaligned UTF-8 lands on them constantly. So every high byte must
// open a byte pair inside the GB2312 EUC ranges, and then the GBK decode
// (the closest codec x/text ships) gets the final word on whether the
// pairs mean anything.
func LooksGB2312(raw []byte) bool {
	pairs := 0
	for i := 0; i < len(raw); i++ {
		lead := raw[i]
		if lead < 0x80 {
			continue
		}
		symbolRow := lead >= 0xA1 && lead <= 0xA9
		hanziRow := lead >= 0xB0 && lead <= 0xF7
		if !symbolRow && !hanziRow {
			return false
		}
		i++
		if i == len(raw) {
			return false
		}
		if trail := raw[i]; trail < 0xA1 || trail > 0xFE {
			return false
		}
		pairs++
	}
	if pairs == 0 {
		return false
	}
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
	return err == nil && !bytes.ContainsRune(decoded, utf8.RuneError)
}

// Convert rewrites path from UTF-8 to GB2312 in place, preserving the
// file mode. A leading BOM is dropped. Runes with no GB2312 mapping
// become the encoding's replacement character instead of failing the
// whole file.
func Convert(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "convert")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "convert")
	}
	clean, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
	if err != nil {
		return errors.Wrap(err, "strip BOM")
	}
	enc := encoding.ReplaceUnsupported(simplifiedchinese.GBK.NewEncoder())
	converted, err := enc.Bytes(clean)
	if err != nil {
		return errors.Wrap(err, "encode GB2312")
	}
	if err := os.WriteFile(path, converted, info.Mode().Perm()); err != nil {
		return errors.Wrap(err, "convert")
	}
	return nil
}

// Run scans root, asks confirm once with the full candidate list, then
// converts everything. A nil confirm converts unconditionally. One file
// failing does not stop the rest; failures are counted and logged.
func Run(root string, confirm func([]Candidate) bool) (Summary, error) {
	var sum Summary
	candidates, err := Scan(root)
	if err != nil {
		return sum, err
	}
	sum.Scanned = len(candidates)
	if len(candidates) == 0 {
		return sum, nil
	}
	if confirm != nil && !confirm(candidates) {
		sum.Canceled = true
		return sum, nil
	}
	for _, c := range candidates {
		if err := Convert(c.Path); err != nil {
			log.Errorf("convert %s: %v", c.Rel, err)
			sum.Failed++
			continue
		}
		log.Infof("converted %s", c.Rel)
		sum.Converted++
	}
	return sum, nil
}

func isTargetExt(path string) bool {
	ext := filepath.Ext(path)
	for _, want := range TargetExts {
		if ext == want {
			return true
		}
	}
	return false
}
