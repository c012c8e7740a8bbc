// Copyright 2025 Kadir Pekel
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

package chunking

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// LengthFunc measures a piece of text.
type LengthFunc func(string) int

// RecursiveSplitter splits on the coarsest separator that occurs in the
// text and recurses into pieces that are still too long. Adjacent small
// pieces are merged back up to Size, with up to Overlap of trailing content
// repeated at the start of the next chunk. Separators stay attached to the
// start of the piece that follows them.
type RecursiveSplitter struct {
	config     ChunkerConfig
	separators []string
	length     LengthFunc
}

// NewRecursiveSplitter creates a splitter. A nil length counts runes.
func NewRecursiveSplitter(config ChunkerConfig, length LengthFunc) *RecursiveSplitter {
	if length == nil {
		length = utf8.RuneCountInString
	}
	return &RecursiveSplitter{
		config:     config,
		separators: DefaultSeparators,
		length:     length,
	}
}

func (s *RecursiveSplitter) Config() ChunkerConfig {
	return s.config
}

// Split returns the chunks of text. Chunks are whitespace-trimmed and never empty.
func (s *RecursiveSplitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if s.length(piece) < s.config.Size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge packs pieces into chunks of at most Size, carrying an overlap window.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)

	for _, piece := range pieces {
		n := s.length(piece)
		if total+n > s.config.Size && len(current) > 0 {
			if chunk := joinTrimmed(current); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.config.Overlap || (total+n > s.config.Size && total > 0) {
				total -= s.length(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if chunk := joinTrimmed(current); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func joinTrimmed(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

// splitKeepingSeparator splits text on sep and prefixes every piece after
// the first with sep. An empty sep splits into runes. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}
