package frame

// Kind is the frame type reported by the encoder. Audio frames carry no type.
type Kind uint8

const (
	KindAudio Kind = 0
	KindKey   Kind = 1
	KindDelta Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "AUDIO"
	case KindKey:
		return "KEY"
	case KindDelta:
		return "DELTA"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k <= KindDelta }

// HeaderLen returns how many leading payload bytes stay unencrypted.
// See RFC 6386 section 9.1 for the VP8 keyframe header and RFC 6716
// section 3.1 for the Opus TOC byte.
func (k Kind) HeaderLen() int {
	switch k {
	case KindKey:
		return 10
	case KindDelta:
		return 3
	default:
		return 1
	}
}
