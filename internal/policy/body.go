package policy

import "github.com/tuncerburak97/munzi/internal/bytesize"

type BodyMode int

const (
	ModeRaw BodyMode = iota
	ModeSizeOnly
	ModeSecret
	ModeUnavailable
)

func (m BodyMode) String() string {
	switch m {
	case ModeRaw:
		return "raw"
	case ModeSizeOnly:
		return "size_only"
	case ModeSecret:
		return "secret"
	default:
		return "unavailable"
	}
}

// Body is how a request or response body shows up in a log line.
type Body struct {
	Mode BodyMode
	Text string
	Size int64
}

func Raw(text string) Body { return Body{Mode: ModeRaw, Text: text, Size: int64(len(text))} }
func SizeOnly(n int64) Body { return Body{Mode: ModeSizeOnly, Size: n} }
func Secret(n int64) Body { return Body{Mode: ModeSecret, Size: n} }
func Unavailable() Body { return Body{Mode: ModeUnavailable} }

func (b Body) String() string {
	switch b.Mode {
	case ModeRaw:
		return b.Text
	case ModeSizeOnly:
		return "[" + bytesize.Format(b.Size) + "]"
	case ModeSecret:
		return "[secret! " + bytesize.Format(b.Size) + "]"
	default:
		return "{}"
	}
}
