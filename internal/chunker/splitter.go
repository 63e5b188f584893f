// Package chunker splits raw page text into overlapping word-bounded chunks
// and tags each chunk with coarse category metadata.
package chunker

import "strings"

// DefaultMaxWords is the default number of words per chunk.
const DefaultMaxWords = 500

// DefaultOverlapWords is the default number of words shared between
// consecutive chunks.
const DefaultOverlapWords = 100

// Splitter produces overlapping word-bounded chunks from page text.
type Splitter struct {
	maxWords     int
	overlapWords int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithMaxWords sets the chunk size in words.
func WithMaxWords(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.maxWords = n
		}
	}
}

// WithOverlap sets the overlap between chunks in words.
func WithOverlap(n int) Option {
	return func(s *Splitter) {
		if n >= 0 {
			s.overlapWords = n
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		maxWords:     DefaultMaxWords,
		overlapWords: DefaultOverlapWords,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap stays below chunk size
	if s.overlapWords >= s.maxWords {
		s.overlapWords = s.maxWords / 4
	}

	return s
}

// Split cuts text into chunks of up to maxWords whitespace-delimited words,
// emitting a new chunk every maxWords-overlapWords words. Consecutive chunks
// share overlapWords words so that concepts spanning a chunk boundary are
// not lost. Empty and whitespace-only chunks are dropped.
func (s *Splitter) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := s.maxWords - s.overlapWords
	chunks := make([]string, 0, len(words)/step+1)

	for start := 0; start < len(words); start += step {
		end := start + s.maxWords
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[start:end], " ")
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(words) {
			break
		}
	}

	return chunks
}
