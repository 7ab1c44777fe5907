package orders

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var numberPattern = regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{8}$`)

// NewNumber returns a display order number of the form ORD-YYYYMMDD-XXXXXXXX.
func NewNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "ORD-" + now.UTC().Format("20060102") + "-" + suffix
}

func ValidNumber(s string) bool {
	return numberPattern.MatchString(s)
}
