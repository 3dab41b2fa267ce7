package cli

import (
	"fmt"
	"strings"

	"github.com/drblury/resourcewatch/internal/runtime/grip"
)

// summarize renders grips roughly the way a console would print them.
func summarize(args []*grip.Grip) string {
	parts := make([]string, 0, len(args))
	for _, g := range args {
		parts = append(parts, describe(g))
	}
	return strings.Join(parts, " ")
}

func describe(g *grip.Grip) string {
	if g == nil {
		return "undefined"
	}
	switch g.Type {
	case grip.TypeNull, grip.TypeUndefined, grip.TypeNaN, grip.TypeInfinity, grip.TypeNegInf:
		return g.Type
	case grip.TypeObject:
		if g.Preview != nil && g.Preview.Kind == grip.PreviewArrayLike {
			return fmt.Sprintf("%s(%d)", g.Class, g.Preview.Length)
		}
		return g.Class
	default:
		return fmt.Sprint(g.Value)
	}
}
