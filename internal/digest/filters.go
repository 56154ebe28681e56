package digest

import (
	"fmt"
	"strconv"

	"github.com/osteele/liquid"
)

func newEngine() *liquid.Engine {
	engine := liquid.NewEngine()

	// {{ value | fixed: 2 }}
	engine.RegisterFilter("fixed", func(value any, digits int) string {
		f, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		return strconv.FormatFloat(f, 'f', digits, 64)
	})

	// {{ change | signed_percent }} -> +1.25%
	engine.RegisterFilter("signed_percent", func(value any) string {
		f, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		return fmt.Sprintf("%+.2f%%", f)
	})

	return engine
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
