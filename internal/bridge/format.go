package bridge

import (
	"strconv"
	"strings"

	"github.com/l5yth/potato-mesh/internal/models"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// FormatMessage returns the plain and HTML bodies for a relayed message. The
// prefix is rendered as inline code in both.
func FormatMessage(prefix, text string) (plain, rich string) {
	plain = "`" + prefix + "` " + text
	rich = "<code>" + htmlEscaper.Replace(prefix) + "</code> " + htmlEscaper.Replace(text)
	return plain, rich
}

// ModemPresetShort abbreviates a preset name: "LongFast" becomes "LF".
// Names without uppercase ASCII letters keep their first two characters.
func ModemPresetShort(preset string) string {
	var b strings.Builder
	for i := 0; i < len(preset); i++ {
		if c := preset[i]; c >= 'A' && c <= 'Z' {
			b.WriteByte(c)
		}
	}
	if b.Len() > 0 {
		return b.String()
	}
	runes := []rune(preset)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return string(runes)
}

// MessagePrefix builds "[freq][preset][channel]" for msg.
func MessagePrefix(msg *models.Message) string {
	return "[" + strconv.FormatUint(uint64(msg.LoraFreq), 10) + "]" +
		"[" + ModemPresetShort(msg.ModemPreset) + "]" +
		"[" + msg.ChannelName + "]"
}
