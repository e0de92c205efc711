package sms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
)

func TestCountSMS(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		encoding   Encoding
		length     int
		segments   int
		perSegment int
	}{
		{"plain ascii", "Hello World", EncodingGSM7, 11, 1, 160},
		{"exactly one segment", strings.Repeat("A", 160), EncodingGSM7, 160, 1, 160},
		{"just over one segment", strings.Repeat("A", 161), EncodingGSM7, 161, 2, 153},
		{"two segments", strings.Repeat("A", 200), EncodingGSM7, 200, 2, 153},
		{"three segments", strings.Repeat("A", 307), EncodingGSM7, 307, 3, 153},
		{"extended char weighs two", "10 € off", EncodingGSM7Ext, 9, 1, 160},
		{"extended pushes over limit", strings.Repeat("A", 159) + "€", EncodingGSM7Ext, 161, 2, 153},
		{"ucs2 from emoji", "Hello 😀", EncodingUCS2, 8, 1, 70},
		{"ucs2 accented", "Zürich ist schön, Привет", EncodingUCS2, 24, 1, 70},
		{"ucs2 multi segment", strings.Repeat("П", 71), EncodingUCS2, 71, 2, 67},
		{"empty text", "", EncodingGSM7, 0, 0, 160},
		{"gsm specials", "@£$¥ ~[]{}", EncodingGSM7Ext, 15, 1, 160},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.text, model.ChannelSMS)
			assert.Equal(t, tt.encoding, got.Encoding)
			assert.Equal(t, tt.length, got.Length)
			assert.Equal(t, tt.segments, got.Segments)
			assert.Equal(t, tt.perSegment, got.PerSegment)
			assert.Equal(t, got.Segments, got.Billable)
			if got.Segments > 0 {
				assert.Equal(t, got.PerSegment*got.Segments-got.Length, got.Remaining)
			}
		})
	}
}

func TestCountWhatsApp(t *testing.T) {
	got := Count("Hello 😀", model.ChannelWhatsApp)
	assert.Equal(t, EncodingPlain, got.Encoding)
	assert.Equal(t, 7, got.Length) // rune count, no surrogate weighting
	assert.Equal(t, 1, got.Segments)

	long := strings.Repeat("x", 2500)
	got = Count(long, model.ChannelWhatsApp)
	assert.Equal(t, 3, got.Segments)
	assert.Equal(t, 500, got.Remaining)

	got = Count("", model.ChannelWhatsApp)
	assert.Equal(t, 0, got.Segments)
}

func TestEncodingMonotonic(t *testing.T) {
	base := strings.Repeat("A", 40)
	assert.Equal(t, EncodingGSM7, Count(base, model.ChannelSMS).Encoding)
	assert.Equal(t, EncodingUCS2, Count(base+"好", model.ChannelSMS).Encoding)
	assert.Equal(t, EncodingUCS2, Count("好"+base, model.ChannelSMS).Encoding)
}

func TestTruncate(t *testing.T) {
	text := strings.Repeat("A", 400)

	for _, n := range []int{1, 2, 3} {
		cut := Truncate(text, n, model.ChannelSMS)
		assert.LessOrEqual(t, Count(cut, model.ChannelSMS).Segments, n)
		// longest such prefix: one more character must overflow
		if len(cut) < len(text) {
			over := text[:len(cut)+1]
			assert.Greater(t, Count(over, model.ChannelSMS).Segments, n)
		}
	}

	// fits already: untouched
	assert.Equal(t, "short", Truncate("short", 1, model.ChannelSMS))

	// idempotent
	cut := Truncate(text, 2, model.ChannelSMS)
	assert.Equal(t, cut, Truncate(cut, 2, model.ChannelSMS))

	// never splits a surrogate-weighted character in half
	emoji := strings.Repeat("😀", 50)
	cut = Truncate(emoji, 1, model.ChannelSMS)
	res := Count(cut, model.ChannelSMS)
	assert.LessOrEqual(t, res.Segments, 1)
	assert.Equal(t, 70, res.Length) // 35 emoji at weight 2

	assert.Equal(t, "", Truncate(text, 0, model.ChannelSMS))
}

func TestTruncateMatchesLinearScan(t *testing.T) {
	text := strings.Repeat("A€", 150) // mixed weights exercise the search
	for _, n := range []int{1, 2, 3} {
		want := ""
		runes := []rune(text)
		for i := len(runes); i >= 0; i-- {
			if Count(string(runes[:i]), model.ChannelSMS).Segments <= n {
				want = string(runes[:i])
				break
			}
		}
		assert.Equal(t, want, Truncate(text, n, model.ChannelSMS), "maxSegments=%d", n)
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Hello ?", Sanitize("Hello 😀", "?"))
	assert.Equal(t, "Hello ", Sanitize("Hello 😀", ""))
	assert.Equal(t, "price: 5€", Sanitize("price: 5€", "?"))
	assert.Equal(t, EncodingGSM7Ext, Count(Sanitize("emoji 🎉 and €", "?"), model.ChannelSMS).Encoding)
}
