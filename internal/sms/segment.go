package sms

import (
	"strings"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
)

// Encoding classifies the character repertoire of a message, which in turn
// fixes the per-segment capacity.
type Encoding string

const (
	EncodingGSM7    Encoding = "GSM_7BIT"
	EncodingGSM7Ext Encoding = "GSM_7BIT_EX"
	EncodingUCS2    Encoding = "UCS2"
	// EncodingPlain is used for channels that bill on plain character
	// count and skip repertoire classification (WhatsApp).
	EncodingPlain Encoding = "PLAIN"
)

// Per-segment capacities per GSM 03.38 concatenation rules.
const (
	GSM7Single = 160
	GSM7Multi  = 153
	UCS2Single = 70
	UCS2Multi  = 67

	// WhatsAppUnit is the billable unit size for WhatsApp-style messages.
	WhatsAppUnit = 1000
)

// SegmentResult describes how a message text splits into provider-billable
// units.
type SegmentResult struct {
	Encoding   Encoding `json:"encoding"`
	Length     int      `json:"length"`
	Segments   int      `json:"segments"`
	Billable   int      `json:"billable"`
	PerSegment int      `json:"per_segment"`
	Remaining  int      `json:"remaining"`
}

// Count classifies text for the given channel and computes its segment
// split. Empty text yields zero segments; billing treats that as free.
func Count(text string, channel model.Channel) SegmentResult {
	if channel == model.ChannelWhatsApp {
		return countPlain(text)
	}
	return countSMS(text)
}

func countPlain(text string) SegmentResult {
	length := len([]rune(text))
	res := SegmentResult{
		Encoding:   EncodingPlain,
		Length:     length,
		PerSegment: WhatsAppUnit,
	}
	if length == 0 {
		return res
	}
	res.Segments = (length + WhatsAppUnit - 1) / WhatsAppUnit
	res.Billable = res.Segments
	res.Remaining = res.Segments*WhatsAppUnit - length
	return res
}

func countSMS(text string) SegmentResult {
	runes := []rune(text)
	if len(runes) == 0 {
		// Known special case: empty text is basic, zero segments, free.
		return SegmentResult{Encoding: EncodingGSM7, PerSegment: GSM7Single}
	}

	encoding := EncodingGSM7
	length := 0
	for _, r := range runes {
		switch {
		case IsGSMBasic(r):
			length++
		case IsGSMExtended(r):
			length += 2
			if encoding == EncodingGSM7 {
				encoding = EncodingGSM7Ext
			}
		default:
			encoding = EncodingUCS2
		}
	}

	if encoding == EncodingUCS2 {
		// UTF-16 length: astral code points occupy a surrogate pair.
		length = 0
		for _, r := range runes {
			length++
			if r >= 0x10000 {
				length++
			}
		}
	}

	single, multi := GSM7Single, GSM7Multi
	if encoding == EncodingUCS2 {
		single, multi = UCS2Single, UCS2Multi
	}

	res := SegmentResult{Encoding: encoding, Length: length, PerSegment: single}
	if length <= single {
		res.Segments = 1
	} else {
		res.PerSegment = multi
		res.Segments = (length + multi - 1) / multi
	}
	res.Billable = res.Segments
	res.Remaining = res.PerSegment*res.Segments - length
	return res
}

// Truncate returns the longest prefix of text (in whole characters) whose
// segment count still fits within maxSegments. Binary search over the
// prefix length; Count is monotonic in the prefix so this matches a linear
// scan.
func Truncate(text string, maxSegments int, channel model.Channel) string {
	if maxSegments <= 0 {
		return ""
	}
	runes := []rune(text)
	if Count(text, channel).Segments <= maxSegments {
		return text
	}

	lo, hi := 0, len(runes) // lo: known fit, hi: known overflow
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if Count(string(runes[:mid]), channel).Segments <= maxSegments {
			lo = mid
		} else {
			hi = mid
		}
	}
	return string(runes[:lo])
}

// Sanitize maps text onto the GSM repertoires for providers that only
// accept 7-bit content. Code points outside both tables are replaced with
// replacement, or dropped when replacement is empty.
func Sanitize(text, replacement string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if IsGSMBasic(r) || IsGSMExtended(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteString(replacement)
	}
	return b.String()
}
