package device

import "strconv"

// OptionsBag holds parsed (key, value?) option pairs for backend-specific
// adapter tuning. Keys are the literal option names; values are the raw
// strings (parsing to int/bool is done on demand by the typed accessors).
// Unknown keys are kept but never consulted, so device-specific options
// are silently ignored by sinks that don't recognize them.
type OptionsBag struct {
	pairs map[string]string
}

// ParseOptions builds an OptionsBag from a flat list of (key, value) string
// pairs. A bare flag with no value (e.g. "fast", "listdevices") is recorded
// with an empty string value.
func ParseOptions(pairs [][2]string) OptionsBag {
	b := OptionsBag{pairs: make(map[string]string, len(pairs))}
	for _, p := range pairs {
		b.pairs[p[0]] = p[1]
	}
	return b
}

// Has reports whether key was present at all (bare flags included).
func (b OptionsBag) Has(key string) bool {
	_, ok := b.pairs[key]
	return ok
}

// String returns key's raw value, or def if key is absent.
func (b OptionsBag) String(key, def string) string {
	if v, ok := b.pairs[key]; ok {
		return v
	}
	return def
}

// Int returns key's value parsed as an integer, or def if absent or
// unparseable.
func (b OptionsBag) Int(key string, def int) int {
	v, ok := b.pairs[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Well-known option keys consumed by the adapters.
const (
	OptEnd         = "end"         // "big" | "little": byte order of 16-bit output
	OptBufferSize  = "buffersize"  // frames per device buffer
	OptBufferCount = "buffercount" // ring depth
	OptPeriodSize  = "periodsize"  // ALSA-style period hint, informational here
	OptHWBuffer    = "hwbuffer"    // alias for periodsize
	OptTime        = "time"        // run for N seconds then stop
	OptQuality     = "quality"     // "fast" | "best", informational
	OptABR         = "abr"         // informational bitrate hint (unused, no codec in this sink)
	OptFast        = "fast"        // bare flag, alias for quality=fast
	OptHaste       = "haste"       // informational
	OptTitle       = "title"       // stream/session title
	OptConnect     = "connect"     // remote sink address, unused by the local adapters
	OptListDevices = "listdevices" // bare flag: print devices and exit
)

// BigEndian reports whether end=big was requested; def applies when the
// key is absent or has an unrecognized value.
func (b OptionsBag) BigEndian(def bool) bool {
	switch b.String(OptEnd, "") {
	case "big":
		return true
	case "little":
		return false
	}
	return def
}

// BufferSize returns the requested frames-per-buffer, falling back to def.
func (b OptionsBag) BufferSize(def int) int { return b.Int(OptBufferSize, def) }

// BufferCount returns the requested ring depth, falling back to def.
func (b OptionsBag) BufferCount(def int) int { return b.Int(OptBufferCount, def) }

// RunSeconds returns the requested time= run length, or 0 if unset.
func (b OptionsBag) RunSeconds() int { return b.Int(OptTime, 0) }

// WantsListDevices reports whether the bare listdevices flag was passed.
func (b OptionsBag) WantsListDevices() bool { return b.Has(OptListDevices) }
