package entity

import "strings"

// Mode selects the compositing variant.
type Mode string

const (
	ModeColor             Mode = "color"
	ModeCustom            Mode = "custom"
	ModeBlur              Mode = "blur"
	ModeTransparent       Mode = "transparent"
	ModeExtractBackground Mode = "extract_background"
)

// ParseMode maps user input to a Mode. Unknown values fall back to ModeColor,
// "blur_bg" and "solid" are accepted as aliases.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "custom":
		return ModeCustom
	case "blur", "blur_bg":
		return ModeBlur
	case "transparent", "cutout":
		return ModeTransparent
	case "extract_background", "extract_bg":
		return ModeExtractBackground
	default:
		return ModeColor
	}
}

// HasAlpha reports whether the mode produces a 4-channel result.
func (m Mode) HasAlpha() bool {
	return m == ModeTransparent
}
