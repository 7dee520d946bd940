package snippet

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// newID returns a short opaque snippet identifier.
var newID = func() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
