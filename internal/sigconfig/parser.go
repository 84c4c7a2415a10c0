// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package sigconfig

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dmc-trials/sigtrack/internal/rangeset"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrConfigRejected is returned by Parse when one or more signature
// blocks failed to parse. The CLI host is expected to abort the run
// with a distinct exit code when this is returned; any signatures that
// parsed cleanly before the first error are discarded too, since a
// partial configuration is not a safe thing to run an audit trail
// against.
var ErrConfigRejected = errors.New("signature configuration rejected")

// header holds a signature block's shared fields while its plate
// bodies are being parsed. Its storage is released once every
// plateDefn has copied out of it; header itself is never retained past
// parseSignature.
type header struct {
	name       string
	sigPlate   int64
	visits     rangeset.Set
	sigFields  rangeset.Set
	nSigFields int64
}

type parser struct {
	lex     *lexer
	tok     token
	log     *log.Logger
	errors  int
	serial  int
	records []*Config
}

// Parse reads the signature-definition DSL from r and returns the flat,
// ordered list of per-plate Config records. If any signature block
// fails to parse, Parse returns ErrConfigRejected and a nil slice; the
// caller should abort the run.
func Parse(r io.Reader, filename string, logger *log.Logger) ([]*Config, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	p := &parser{lex: newLexer(r, filename), log: logger}
	p.advance()

	for p.tok.kind != tokEOF {
		p.parseSignature()
	}

	if p.lex.err != nil {
		p.errors++
		p.log.WithError(p.lex.err).Error("lexical error in signature configuration")
	}

	if p.errors > 0 {
		return nil, ErrConfigRejected
	}
	return p.records, nil
}

func (p *parser) advance() {
	p.tok = p.lex.next()
}

func (p *parser) errf(format string, args ...interface{}) {
	p.errors++
	msg := fmt.Sprintf(format, args...)
	p.log.Errorf("%d: %s", p.tok.line, msg)
}

// synchronize discards tokens up to and including the next "}", or
// EOF, so parsing of later signature blocks can resume after an error.
func (p *parser) synchronize() {
	for p.tok.kind != tokRBrace && p.tok.kind != tokEOF {
		p.advance()
	}
	if p.tok.kind == tokRBrace {
		p.advance()
	}
}

func (p *parser) expectIdent(word string) bool {
	if p.tok.kind != tokIdent || p.tok.text != word {
		p.errf("expected %q, got %q", word, p.tok.text)
		return false
	}
	p.advance()
	return true
}

func (p *parser) expectNumber() (int64, bool) {
	if p.tok.kind != tokNumber {
		p.errf("expected a number, got %q", p.tok.text)
		return 0, false
	}
	v, err := strconv.ParseInt(p.tok.text, 10, 64)
	if err != nil {
		p.errf("malformed number %q", p.tok.text)
		return 0, false
	}
	p.advance()
	return v, true
}

func (p *parser) expectString() (string, bool) {
	if p.tok.kind != tokString {
		p.errf("expected a quoted string, got %q", p.tok.text)
		return "", false
	}
	s := p.tok.text
	p.advance()
	return s, true
}

// parseSignature parses one "signature" block. On any syntax error, it
// resynchronises to the next "}" and discards the whole block: no
// per-plate records are emitted for a malformed block, even ones that
// parsed cleanly before the error.
func (p *parser) parseSignature() {
	if ok := p.expectIdent("signature"); !ok {
		p.synchronize()
		return
	}

	var hdr header
	var ok bool

	if hdr.name, ok = p.expectString(); !ok {
		p.synchronize()
		return
	}
	if ok = p.expectIdent("plate"); !ok {
		p.synchronize()
		return
	}
	if hdr.sigPlate, ok = p.expectNumber(); !ok {
		p.synchronize()
		return
	}
	if ok = p.expectIdent("visit"); !ok {
		p.synchronize()
		return
	}
	if hdr.visits, ok = p.parseVisitRange(); !ok {
		p.synchronize()
		return
	}
	if ok = p.expectIdent("fields"); !ok {
		p.synchronize()
		return
	}
	if hdr.sigFields, ok = p.parseRange(); !ok {
		p.synchronize()
		return
	}
	hdr.nSigFields = hdr.sigFields.Width()

	if p.tok.kind != tokLBrace {
		p.errf("expected '{', got %q", p.tok.text)
		p.synchronize()
		return
	}
	p.advance()

	// Plate records are buffered locally and only committed to
	// p.records once the whole block parses cleanly: a syntax error
	// anywhere in a signature block discards every sibling plateDefn
	// already parsed within this same block, not just the failing one.
	var pending []*Config
	for p.tok.kind != tokRBrace {
		if p.tok.kind == tokEOF {
			p.errf("unexpected end of file inside signature %q", hdr.name)
			return
		}
		rec, ok := p.parsePlateDefn(&hdr)
		if !ok {
			p.synchronize()
			return
		}
		pending = append(pending, rec)
	}
	p.advance() // consume '}'

	if len(pending) == 0 {
		p.errf("signature %q declares no covered plates", hdr.name)
		return
	}

	for _, rec := range pending {
		p.serial++
		rec.Serial = p.serial
		p.records = append(p.records, rec)
	}
}

// parsePlateDefn parses one "plate N [ignore fields range] ;" entry
// and, on success, returns a new Config record carrying a deep copy of
// the enclosing header's RangeSets, so siblings never share backing
// storage. The Serial field is left unset; parseSignature assigns it
// once the whole enclosing block has parsed cleanly.
func (p *parser) parsePlateDefn(hdr *header) (*Config, bool) {
	if ok := p.expectIdent("plate"); !ok {
		return nil, false
	}
	plate, ok := p.expectNumber()
	if !ok {
		return nil, false
	}

	var ignore rangeset.Set
	if p.tok.kind == tokIdent && p.tok.text == "ignore" {
		p.advance()
		if ok = p.expectIdent("fields"); !ok {
			return nil, false
		}
		if ignore, ok = p.parseRange(); !ok {
			return nil, false
		}
	}

	if p.tok.kind != tokSemi {
		p.errf("expected ';', got %q", p.tok.text)
		return nil, false
	}
	p.advance()

	return &Config{
		Name:         hdr.name,
		SigPlate:     hdr.sigPlate,
		Visits:       hdr.visits.Duplicate(),
		SigFields:    hdr.sigFields.Duplicate(),
		NSigFields:   hdr.nSigFields,
		Plate:        plate,
		IgnoreFields: ignore,
	}, true
}

// parseVisitRange parses "*" | range.
func (p *parser) parseVisitRange() (rangeset.Set, bool) {
	if p.tok.kind == tokStar {
		p.advance()
		var s rangeset.Set
		return s.Prepend(0, 1<<31-1), true
	}
	return p.parseRange()
}

// parseRange parses element ("," element)*, element := N | N "-" N.
func (p *parser) parseRange() (rangeset.Set, bool) {
	var elems []struct{ min, max int64 }

	for {
		min, ok := p.expectNumber()
		if !ok {
			return rangeset.Set{}, false
		}
		max := min
		if p.tok.kind == tokDash {
			p.advance()
			max, ok = p.expectNumber()
			if !ok {
				return rangeset.Set{}, false
			}
		}
		elems = append(elems, struct{ min, max int64 }{min, max})

		if p.tok.kind != tokComma {
			break
		}
		p.advance()
	}

	var s rangeset.Set
	for i := len(elems) - 1; i >= 0; i-- {
		s = s.Prepend(elems[i].min, elems[i].max)
	}
	return s, true
}
