package sms

// GSM 03.38 default alphabet. Code points in the basic set weigh one
// septet; code points in the extension table are sent as an escape plus a
// septet and therefore weigh two.

var gsmBasic = map[rune]struct{}{}

var gsmExtended = map[rune]struct{}{}

const gsmBasicChars = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>?" +
	"¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑÜ§¿abcdefghijklmnopqrstuvwxyzäöñüà"

const gsmExtendedChars = "\f^{}\\[~]|€"

func init() {
	for _, r := range gsmBasicChars {
		gsmBasic[r] = struct{}{}
	}
	for _, r := range gsmExtendedChars {
		gsmExtended[r] = struct{}{}
	}
}

// IsGSMBasic reports whether r belongs to the GSM default alphabet.
func IsGSMBasic(r rune) bool {
	_, ok := gsmBasic[r]
	return ok
}

// IsGSMExtended reports whether r belongs to the GSM extension table.
func IsGSMExtended(r rune) bool {
	_, ok := gsmExtended[r]
	return ok
}
