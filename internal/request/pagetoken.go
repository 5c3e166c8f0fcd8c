package request

import (
	"fmt"
	"strconv"

	"github.com/perch-health/healthstore/pkg/types"
)

// PageToken is the decoded form of the opaque paging cursor. The encoded
// token is a single non-negative int64 rendered in decimal:
//
//	bit 0        ordering (1 = ascending)
//	bits 1..18   offset: rows already consumed at TimeMillis
//	bits 19..62  TimeMillis: record-time boundary of the next page
//
// The offset disambiguates pages that split a run of rows sharing one
// timestamp.
type PageToken struct {
	Ascending  bool
	TimeMillis int64
	Offset     int64
}

const (
	pageTokenOffsetBits = 18
	pageTokenMaxOffset  = 1<<pageTokenOffsetBits - 1
	pageTokenTimeBits   = 44
	pageTokenMaxTime    = 1<<pageTokenTimeBits - 1
)

// Encode renders the token as an opaque string.
func (p PageToken) Encode() (string, error) {
	if p.TimeMillis < 0 || p.TimeMillis > pageTokenMaxTime {
		return "", fmt.Errorf("%w: time %d out of range", types.ErrInvalidPageToken, p.TimeMillis)
	}
	if p.Offset < 0 || p.Offset > pageTokenMaxOffset {
		return "", fmt.Errorf("%w: offset %d out of range", types.ErrInvalidPageToken, p.Offset)
	}
	token := p.TimeMillis<<(pageTokenOffsetBits+1) | p.Offset<<1
	if p.Ascending {
		token |= 1
	}
	return strconv.FormatInt(token, 10), nil
}

// DecodePageToken parses an encoded token. Returns a wrapped
// types.ErrInvalidPageToken on malformed input.
func DecodePageToken(s string) (*PageToken, error) {
	token, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidPageToken, s)
	}
	if token < 0 {
		return nil, fmt.Errorf("%w: negative token", types.ErrInvalidPageToken)
	}
	return &PageToken{
		Ascending:  token&1 == 1,
		Offset:     token >> 1 & pageTokenMaxOffset,
		TimeMillis: token >> (pageTokenOffsetBits + 1),
	}, nil
}
