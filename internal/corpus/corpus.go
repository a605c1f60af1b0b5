// Package corpus reads a word-aligned parallel corpus from three parallel
// files: source sentences, target sentences, and Moses-style "i-j"
// alignment lines.
package corpus

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/chagge/phrasal/pkg/phrasal/align"
)

const maxLine = 1024 * 1024

// Load reads the three files in lockstep and returns one SentencePair per
// line. The files must have the same number of lines.
func Load(sourcePath, targetPath, alignPath string) ([]align.SentencePair, error) {
	srcFile, err := os.Open(sourcePath)
	if err != nil {
		return nil, err
	}
	defer srcFile.Close()

	tgtFile, err := os.Open(targetPath)
	if err != nil {
		return nil, err
	}
	defer tgtFile.Close()

	alnFile, err := os.Open(alignPath)
	if err != nil {
		return nil, err
	}
	defer alnFile.Close()

	src := newScanner(srcFile)
	tgt := newScanner(tgtFile)
	aln := newScanner(alnFile)

	var pairs []align.SentencePair
	lineNo := 0
	for src.Scan() {
		lineNo++
		if !tgt.Scan() {
			return nil, fmt.Errorf("%s: ends before line %d of %s", targetPath, lineNo, sourcePath)
		}
		if !aln.Scan() {
			return nil, fmt.Errorf("%s: ends before line %d of %s", alignPath, lineNo, sourcePath)
		}

		links, err := align.ParseLinks(aln.Text())
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", alignPath, lineNo, err)
		}
		sp, err := align.NewSentencePair(strings.Fields(src.Text()), strings.Fields(tgt.Text()), links)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		pairs = append(pairs, sp)
	}
	if err := src.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", sourcePath, err)
	}
	if tgt.Scan() {
		return nil, fmt.Errorf("%s: longer than %s (%d lines)", targetPath, sourcePath, lineNo)
	}
	if aln.Scan() {
		return nil, fmt.Errorf("%s: longer than %s (%d lines)", alignPath, sourcePath, lineNo)
	}
	return pairs, nil
}

func newScanner(f *os.File) *bufio.Scanner {
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), maxLine)
	return s
}
