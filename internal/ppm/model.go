/*
Package ppm implements the adaptive PPM order-2 entropy codec behind the
pep container payload.

The model is an array of 256 order-2 contexts selected by the low byte of a
rolling symbol history, each holding 257 frequency counts: one per possible
packed-index byte plus a reserved escape symbol. A context that cannot
predict the next symbol escapes to a shared order-0 table that always can.
All state lives in the Encoder or Decoder value, so concurrent calls on
different images never alias.
*/
package ppm

const (
	// numFreq counts the symbols a context can code: 256 byte values
	// plus the escape symbol at index 256.
	numFreq    = 257
	escapeSym  = numFreq - 1
	numContext = numFreq - 1

	// initialFreqMax is the starting rescale threshold. It grows as the
	// model adapts; small palettes grow it faster, tolerating deeper
	// frequency accumulation before a rescale.
	initialFreqMax = numFreq >> 1
)

// context is one frequency table. sum caches the total of freq. update
// rescales once sum reaches probMax, but the escape bookkeeping for a
// symbol new to the context adds to sum without a rescale, so sum can sit
// slightly above probMax until the next update.
type context struct {
	freq [numFreq]uint16
	sum  uint32
}

// interval returns the cumulative frequency interval of symbol within ctx.
func (ctx *context) interval(symbol int) prob {
	p := prob{scale: ctx.sum}
	for i := 0; i < symbol; i++ {
		p.low += uint32(ctx.freq[i])
	}
	p.high = p.low + uint32(ctx.freq[symbol])
	return p
}

// find walks the table accumulating counts until it passes target,
// yielding the symbol the encoder placed there and its interval.
func (ctx *context) find(target uint32) (int, prob) {
	symbol := 0
	freq := uint32(0)
	for ; symbol < numFreq; symbol++ {
		freq += uint32(ctx.freq[symbol])
		if freq > target {
			break
		}
	}
	if symbol == numFreq {
		// Corrupt input can push target past the table sum; pin the
		// scan to the escape symbol rather than walk off the table.
		symbol = escapeSym
		freq = ctx.sum
	}
	return symbol, prob{
		low:   freq - uint32(ctx.freq[symbol]),
		high:  freq,
		scale: ctx.sum,
	}
}

// model holds the per-image adaptive state shared by the encode and decode
// halves.
type model struct {
	contexts    [numContext]context
	order0      context
	contextID   uint64
	freqMax     uint16
	paletteSize int
}

func newModel(paletteSize int) *model {
	m := &model{
		freqMax:     initialFreqMax,
		paletteSize: paletteSize,
	}
	for i := range m.order0.freq {
		m.order0.freq[i] = 1
	}
	m.order0.sum = numFreq
	return m
}

func (m *model) current() *context {
	return &m.contexts[m.contextID%numContext]
}

func (m *model) shift(symbol int) {
	m.contextID = m.contextID<<8 | uint64(symbol)
}

// update bumps the symbol's count and rescales once either the count hits
// the adaptive ceiling or the sum reaches the coder's probability limit.
// The ceiling itself then grows by half the unused palette range, so
// simpler images rescale less often as they accumulate statistics.
func (m *model) update(ctx *context, symbol int) {
	ctx.freq[symbol] += 2
	ctx.sum += 2
	if uint32(ctx.freq[symbol]) < uint32(m.freqMax) && ctx.sum < probMax {
		return
	}

	m.freqMax += uint16(numContext-m.paletteSize) >> 1
	ctx.sum = 0
	for i, f := range ctx.freq {
		if f == 0 {
			continue
		}
		scaled := (f + 1) >> 1
		ctx.freq[i] = scaled
		ctx.sum += uint32(scaled)
	}
}

// Encoder compresses a stream of packed-index bytes into an arithmetic
// coded payload. It is single use: feed every symbol to Encode, then call
// Flush exactly once.
type Encoder struct {
	model *model
	rc    *rangeEncoder
}

// NewEncoder returns an encoder for an image with the given palette size.
// capacity is a hint for the output buffer, typically the packed size of
// the image.
func NewEncoder(paletteSize, capacity int) *Encoder {
	return &Encoder{
		model: newModel(paletteSize),
		rc:    newRangeEncoder(capacity + 4),
	}
}

// Encode codes one packed-index byte.
func (e *Encoder) Encode(symbol byte) {
	s := int(symbol)
	m := e.model
	ctx := m.current()

	if ctx.sum != 0 && ctx.freq[s] != 0 {
		e.rc.encode(ctx.interval(s))
		m.update(ctx, s)
	} else {
		firstVisit := ctx.sum == 0
		if !firstVisit {
			e.rc.encode(ctx.interval(escapeSym))
			e.rc.normalize()
			ctx.freq[escapeSym]++
			ctx.sum++
		}

		e.rc.encode(m.order0.interval(s))

		if firstVisit {
			ctx.freq[escapeSym] = 1
			ctx.sum = 1
		}
		ctx.freq[s] = 1
		ctx.sum++
		m.update(&m.order0, s)
	}

	e.rc.normalize()
	m.shift(s)
}

// Flush terminates the stream and returns the payload.
func (e *Encoder) Flush() []byte {
	return e.rc.flush()
}

// Decoder is the inverse of Encoder. Reads past the end of the payload
// yield zero bytes, so truncated input produces garbage symbols but never
// an out of bounds access.
type Decoder struct {
	model *model
	rc    *rangeDecoder
}

// NewDecoder returns a decoder over payload for an image with the given
// palette size.
func NewDecoder(payload []byte, paletteSize int) *Decoder {
	return &Decoder{
		model: newModel(paletteSize),
		rc:    newRangeDecoder(payload),
	}
}

// Decode returns the next packed-index byte.
func (d *Decoder) Decode() byte {
	m := d.model
	ctx := m.current()

	symbol := escapeSym
	if ctx.sum != 0 {
		target := d.rc.currentFreq(ctx.sum)
		s, p := ctx.find(target)
		d.rc.update(p)
		symbol = s

		if symbol != escapeSym {
			m.update(ctx, symbol)
		} else {
			ctx.freq[escapeSym]++
			ctx.sum++
		}
	}

	if symbol == escapeSym {
		firstVisit := ctx.sum == 0
		target := d.rc.currentFreq(m.order0.sum)
		s, p := m.order0.find(target)
		d.rc.update(p)
		symbol = s

		if firstVisit {
			ctx.freq[escapeSym] = 1
			ctx.sum = 1
		}
		ctx.freq[symbol] = 1
		ctx.sum++
		m.update(&m.order0, symbol)
	}

	m.shift(symbol)
	return byte(symbol)
}
