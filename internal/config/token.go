package config

import (
	"errors"

	"github.com/RPI-HPC/runover/internal/accum"
)

// ErrUnterminated is returned when input ends inside a quoted word.
var ErrUnterminated = errors.New("unterminated quoted string")

type tokenState int

const (
	tokSkip tokenState = iota
	tokWord
	tokDouble
	tokSingle
	tokComment
)

// SplitWords splits s into whitespace-separated words. Double and single
// quotes group characters into a word without appearing in it, and '#'
// outside quotes starts a comment running to end of input.
func SplitWords(s string) ([]string, error) {
	var words []string
	var tok accum.Accum
	st := tokSkip

	emit := func() {
		words = append(words, tok.Finalize())
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch st {
		case tokSkip:
			switch {
			case c == ' ' || c == '\t' || c == '\n':
			case c == '"':
				st = tokDouble
			case c == '\'':
				st = tokSingle
			case c == '#':
				st = tokComment
			default:
				tok.AppendByte(c)
				st = tokWord
			}
		case tokWord:
			switch {
			case c == ' ' || c == '\t' || c == '\n':
				emit()
				st = tokSkip
			case c == '"':
				st = tokDouble
			case c == '\'':
				st = tokSingle
			case c == '#':
				emit()
				st = tokComment
			default:
				tok.AppendByte(c)
			}
		case tokDouble:
			if c == '"' {
				st = tokWord
			} else {
				tok.AppendByte(c)
			}
		case tokSingle:
			if c == '\'' {
				st = tokWord
			} else {
				tok.AppendByte(c)
			}
		case tokComment:
		}
	}

	switch st {
	case tokDouble, tokSingle:
		return nil, ErrUnterminated
	case tokWord:
		emit()
	}
	return words, nil
}
