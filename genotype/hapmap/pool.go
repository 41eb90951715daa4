// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package hapmap

import (
	"bufio"
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/genomatrix/encoding/bgzf"
	htsbgzf "github.com/grailbio/hts/bgzf"
)

// reader is one open handle on the data file. A reader is used by one
// goroutine at a time.
type reader struct {
	f    file.File
	bg   *htsbgzf.Reader
	br   *bufio.Reader
	line []byte
}

// seek positions r at a virtual offset.
func (r *reader) seek(voffset uint64) error {
	coff, uoff := bgzf.SplitVOffset(voffset)
	if err := r.bg.Seek(htsbgzf.Offset{File: coff, Block: uint16(uoff)}); err != nil {
		return err
	}
	r.br.Reset(r.bg)
	return nil
}

// readLine returns the next non-empty line without its terminator. The
// result is valid until the next call.
func (r *reader) readLine() ([]byte, error) {
	for {
		r.line = r.line[:0]
		for {
			chunk, err := r.br.ReadSlice('\n')
			r.line = append(r.line, chunk...)
			if err == bufio.ErrBufferFull {
				continue
			}
			if err == io.EOF && len(r.line) > 0 {
				break
			}
			if err != nil {
				return nil, err
			}
			break
		}
		line := r.line
		if n := len(line); n > 0 && line[n-1] == '\n' {
			line = line[:n-1]
		}
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		if len(line) > 0 {
			return line, nil
		}
	}
}

func (r *reader) close(ctx context.Context) error {
	err := r.bg.Close()
	if cerr := r.f.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

// readerPool hands out readers, opening a new one when none is idle.
type readerPool struct {
	ctx  context.Context
	path string

	mu     sync.Mutex
	idle   []*reader
	closed bool

	opened atomic.Int64
}

func (p *readerPool) get() (*reader, error) {
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		r := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return r, nil
	}
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, errors.E(errors.Precondition, "hapmap: "+p.path+" is closed")
	}
	f, err := file.Open(p.ctx, p.path)
	if err != nil {
		return nil, errors.E(err, "hapmap: opening "+p.path)
	}
	bg, err := htsbgzf.NewReader(f.Reader(p.ctx), 1)
	if err != nil {
		f.Close(p.ctx) // nolint: errcheck
		return nil, errors.E(errors.Integrity, "hapmap: "+p.path+" is not BGZF compressed", err)
	}
	p.opened.Add(1)
	log.Debug.Printf("hapmap: opened reader %d on %s", p.opened.Load(), p.path)
	return &reader{f: f, bg: bg, br: bufio.NewReaderSize(bg, 1<<16)}, nil
}

// put returns r to the pool. A reader that failed mid-read must be
// discarded instead; its position is unknown.
func (p *readerPool) put(r *reader) {
	p.mu.Lock()
	if !p.closed {
		p.idle = append(p.idle, r)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.discard(r)
}

func (p *readerPool) discard(r *reader) {
	if err := r.close(p.ctx); err != nil {
		log.Error.Printf("hapmap: closing %s: %v", p.path, err)
	}
}

func (p *readerPool) close() error {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()
	var err error
	for _, r := range idle {
		if cerr := r.close(p.ctx); err == nil {
			err = cerr
		}
	}
	return err
}
