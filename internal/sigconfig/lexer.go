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

// Package sigconfig parses the signature-definition DSL into a flat,
// ordered list of per-plate configuration records.
//
// There is no third-party lexer-generator or parser-combinator library
// in the reference corpus suited to a dozen-production grammar like
// this one; the lexer below is a thin, hand-rolled wrapper over the
// standard library's text/scanner, which already tokenises idents,
// quoted strings, and integers the way this grammar needs. See
// DESIGN.md for the standard-library justification.
package sigconfig

import (
	"fmt"
	"io"
	"strconv"
	"text/scanner"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokLBrace
	tokRBrace
	tokSemi
	tokComma
	tokDash
	tokStar
)

type token struct {
	kind tokenKind
	text string
	line int
}

// lexer turns DSL source text into a stream of tokens. It is a single
// pass, forward-only wrapper over text/scanner.Scanner.
type lexer struct {
	s   scanner.Scanner
	err error
}

func newLexer(r io.Reader, filename string) *lexer {
	l := &lexer{}
	l.s.Init(r)
	l.s.Filename = filename
	l.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	l.s.Error = func(_ *scanner.Scanner, msg string) {
		if l.err == nil {
			l.err = fmt.Errorf("%s:%d: %s", filename, l.s.Line, msg)
		}
	}
	return l
}

// next returns the next token in the stream.
func (l *lexer) next() token {
	r := l.s.Scan()
	line := l.s.Line
	switch r {
	case scanner.EOF:
		return token{kind: tokEOF, line: line}
	case scanner.Ident:
		return token{kind: tokIdent, text: l.s.TokenText(), line: line}
	case scanner.Int:
		return token{kind: tokNumber, text: l.s.TokenText(), line: line}
	case scanner.String:
		text, err := strconv.Unquote(l.s.TokenText())
		if err != nil {
			text = l.s.TokenText()
		}
		return token{kind: tokString, text: text, line: line}
	case '{':
		return token{kind: tokLBrace, line: line}
	case '}':
		return token{kind: tokRBrace, line: line}
	case ';':
		return token{kind: tokSemi, line: line}
	case ',':
		return token{kind: tokComma, line: line}
	case '-':
		return token{kind: tokDash, line: line}
	case '*':
		return token{kind: tokStar, line: line}
	default:
		return token{kind: tokIdent, text: string(r), line: line}
	}
}
