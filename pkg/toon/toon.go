// Crosstown Protocol
// Copyright (C) 2026 Crosstown Project
//
// This file is part of Crosstown.
//
// Crosstown is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Crosstown is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Crosstown. If not, see <https://www.gnu.org/licenses/>.

// Package toon implements the deterministic, self-describing text encoding
// of a signed event used to embed it byte-for-byte in an ILP packet
// payload: each field on its own line as "key:value", tags expanded as
// "tags[i]:<json-array-of-strings>", strings JSON-quoted so that NIP-44
// base64 ciphertext survives the round trip unchanged.
package toon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/event"
)

// ToonDecodeError reports a structural or type violation while decoding.
type ToonDecodeError struct {
	Reason string
}

func (e *ToonDecodeError) Error() string {
	return fmt.Sprintf("toon decode error: %s", e.Reason)
}

func decodeErr(format string, args ...interface{}) error {
	return &ToonDecodeError{Reason: fmt.Sprintf(format, args...)}
}

var (
	hex64Pattern  = regexp.MustCompile(`^[0-9a-f]{64}$`)
	hex128Pattern = regexp.MustCompile(`^[0-9a-f]{128}$`)
	tagKeyPattern = regexp.MustCompile(`^tags\[(\d+)\]$`)
)

// Encode produces the deterministic line-based TOON encoding of e.
func Encode(e *event.SignedEvent) ([]byte, error) {
	var buf bytes.Buffer

	writeField := func(key, value string) {
		buf.WriteString(key)
		buf.WriteByte(':')
		buf.WriteString(value)
		buf.WriteByte('\n')
	}

	writeField("id", quoteString(e.ID))
	writeField("pubkey", quoteString(e.Pubkey))
	writeField("kind", strconv.Itoa(e.Kind))
	writeField("createdAt", strconv.FormatInt(e.CreatedAt, 10))

	for i, tag := range e.Tags {
		arr, err := encodeTagArray(tag)
		if err != nil {
			return nil, fmt.Errorf("encode tags[%d]: %w", i, err)
		}
		writeField(fmt.Sprintf("tags[%d]", i), arr)
	}

	writeField("content", quoteString(e.Content))
	writeField("sig", quoteString(e.Sig))

	out := buf.Bytes()
	if !isASCII(out) {
		return nil, fmt.Errorf("toon encoding produced non-ASCII output")
	}
	return out, nil
}

// Decode parses a TOON byte stream back into a SignedEvent, validating
// every field's format. Fails with *ToonDecodeError on any structural or
// type violation.
func Decode(data []byte) (*event.SignedEvent, error) {
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	fields := map[string]string{}
	tagValues := map[int]event.Tag{}
	maxTagIndex := -1

	for lineNo, line := range lines {
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return nil, decodeErr("line %d missing ':' separator", lineNo+1)
		}
		key := line[:idx]
		value := line[idx+1:]

		if m := tagKeyPattern.FindStringSubmatch(key); m != nil {
			tagIdx, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, decodeErr("malformed tag index in key %q", key)
			}
			tag, err := decodeTagArray(value)
			if err != nil {
				return nil, decodeErr("tags[%d]: %v", tagIdx, err)
			}
			tagValues[tagIdx] = tag
			if tagIdx > maxTagIndex {
				maxTagIndex = tagIdx
			}
			continue
		}
		fields[key] = value
	}

	ev := &event.SignedEvent{}

	id, err := decodeQuotedField(fields, "id")
	if err != nil {
		return nil, err
	}
	if !hex64Pattern.MatchString(id) {
		return nil, decodeErr("id is not 64-hex: %q", id)
	}
	ev.ID = id

	pubkey, err := decodeQuotedField(fields, "pubkey")
	if err != nil {
		return nil, err
	}
	if !hex64Pattern.MatchString(pubkey) {
		return nil, decodeErr("pubkey is not 64-hex: %q", pubkey)
	}
	ev.Pubkey = pubkey

	kindStr, ok := fields["kind"]
	if !ok {
		return nil, decodeErr("missing required field %q", "kind")
	}
	kind, err := strconv.Atoi(kindStr)
	if err != nil || kind < 0 {
		return nil, decodeErr("kind is not a non-negative integer: %q", kindStr)
	}
	ev.Kind = kind

	createdAtStr, ok := fields["createdAt"]
	if !ok {
		return nil, decodeErr("missing required field %q", "createdAt")
	}
	createdAt, err := strconv.ParseInt(createdAtStr, 10, 64)
	if err != nil {
		return nil, decodeErr("createdAt is not an integer: %q", createdAtStr)
	}
	ev.CreatedAt = createdAt

	content, err := decodeQuotedField(fields, "content")
	if err != nil {
		return nil, err
	}
	ev.Content = content

	sig, err := decodeQuotedField(fields, "sig")
	if err != nil {
		return nil, err
	}
	if !hex128Pattern.MatchString(sig) {
		return nil, decodeErr("sig is not 128-hex: %q", sig)
	}
	ev.Sig = sig

	if maxTagIndex >= 0 {
		tags := make([]event.Tag, maxTagIndex+1)
		for i := 0; i <= maxTagIndex; i++ {
			tag, ok := tagValues[i]
			if !ok {
				return nil, decodeErr("tags[%d] missing, indices must be contiguous from 0", i)
			}
			tags[i] = tag
		}
		ev.Tags = tags
	}

	return ev, nil
}

func decodeQuotedField(fields map[string]string, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", decodeErr("missing required field %q", key)
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return "", decodeErr("field %q is not a valid JSON string: %v", key, err)
	}
	return s, nil
}

func encodeTagArray(tag event.Tag) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, s := range tag {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(quoteString(s))
	}
	buf.WriteByte(']')
	return buf.String(), nil
}

func decodeTagArray(value string) (event.Tag, error) {
	var strs []string
	if err := json.Unmarshal([]byte(value), &strs); err != nil {
		return nil, fmt.Errorf("not a valid JSON string array: %w", err)
	}
	return event.Tag(strs), nil
}

// quoteString JSON-quotes s from scratch (rather than post-processing
// encoding/json's output, which would double-escape already-escaped
// backslashes), preserving every byte of a base64 NIP-44 ciphertext
// unchanged while escaping non-ASCII and non-printable runes as \uXXXX,
// per the locked-down TOON tag-value rule. The result is always valid
// JSON and always 7-bit-clean ASCII.
func quoteString(s string) string {
	var buf bytes.Buffer
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(&buf, `\u%04x`, r)
		case r > 0x7e:
			if r > 0xffff {
				r1, r2 := utf16Surrogates(r)
				fmt.Fprintf(&buf, `\u%04x\u%04x`, r1, r2)
			} else {
				fmt.Fprintf(&buf, `\u%04x`, r)
			}
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
	return buf.String()
}

func utf16Surrogates(r rune) (rune, rune) {
	r -= 0x10000
	hi := 0xd800 + (r >> 10)
	lo := 0xdc00 + (r & 0x3ff)
	return hi, lo
}

func isASCII(b []byte) bool {
	for i := 0; i < len(b); i++ {
		if b[i] >= 0x80 {
			return false
		}
	}
	return true
}
