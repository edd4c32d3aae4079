package ingest

import "strings"

// RangePolicy decides how free-text reference ranges are split.
//
// SplitFirstHyphen cuts at the first '-' only, so "-5 - 5" yields low "" and
// high "5 - 5". Text without a hyphen (such as "<5.0" or "negative") produces
// no bounds at all.
type RangePolicy int

const (
	SplitFirstHyphen RangePolicy = iota
)

// Bounds is the result of splitting a reference range. Both sides are kept as
// text; Present is false when the input had nothing to split on.
type Bounds struct {
	Low     string
	High    string
	Present bool
}

// SplitRange applies the default policy.
func SplitRange(text string) Bounds {
	return SplitFirstHyphen.Split(text)
}

func (p RangePolicy) Split(text string) Bounds {
	i := strings.IndexByte(text, '-')
	if i < 0 {
		return Bounds{}
	}
	return Bounds{
		Low:     strings.TrimSpace(text[:i]),
		High:    strings.TrimSpace(text[i+1:]),
		Present: true,
	}
}

// Pointers returns nil bounds when nothing was split.
func (b Bounds) Pointers() (low, high *string) {
	if !b.Present {
		return nil, nil
	}
	l, h := b.Low, b.High
	return &l, &h
}
