package proposal

import (
	"strings"

	"github.com/rivo/uniseg"
)

const previewWidth = 50

// Truncate shortens s to at most width grapheme clusters, appending "..."
// when something was cut.
func Truncate(s string, width int) string {
	if width <= 0 || uniseg.GraphemeClusterCount(s) <= width {
		return s
	}

	var b strings.Builder
	state := -1
	remaining := s
	var cluster string
	for n := 0; n < width && len(remaining) > 0; n++ {
		cluster, remaining, _, state = uniseg.FirstGraphemeClusterInString(remaining, state)
		b.WriteString(cluster)
	}
	b.WriteString("...")
	return b.String()
}
