package parser

import (
	"strings"

	"MarketDigest/internal/model"
)

// Labels of the four-line cyclical format. AnchorLabel must be present for
// structured extraction to be attempted.
const (
	AnchorLabel   = "当前周期"
	PositionLabel = "周期位置"
	DurationLabel = "持续时间"
	BodyLabel     = "分析"
)

// Parse extracts the labeled fields from raw. Without the anchor label the
// whole text becomes the body and every field stays unset. Label matching is
// exact after markdown emphasis and list bullets are stripped; both ASCII and
// full-width colons are accepted. The last occurrence of a label wins.
func Parse(raw string) model.CycleFields {
	out := model.CycleFields{Body: raw}
	if !strings.Contains(raw, AnchorLabel) {
		return out
	}

	for _, line := range strings.Split(raw, "\n") {
		label, value, ok := splitLabel(line)
		if !ok {
			continue
		}
		v := value
		switch label {
		case AnchorLabel:
			out.Phase = &v
		case PositionLabel:
			out.Position = &v
		case DurationLabel:
			out.Duration = &v
		case BodyLabel:
			out.Body = v
		}
	}
	return out
}

func splitLabel(line string) (label, value string, ok bool) {
	clean := strings.TrimSpace(strings.ReplaceAll(line, "**", ""))
	clean = strings.TrimLeft(clean, "-*• \t")

	idx := strings.IndexAny(clean, ":：")
	if idx <= 0 {
		return "", "", false
	}
	label = strings.TrimSpace(clean[:idx])
	rest := clean[idx:]
	if strings.HasPrefix(rest, "：") {
		rest = rest[len("："):]
	} else {
		rest = rest[1:]
	}
	return label, strings.TrimSpace(rest), true
}
