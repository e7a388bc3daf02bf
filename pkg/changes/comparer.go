package changes

import (
	"github.com/ekaya-inc/history-engine/pkg/models"
)

// Compare orders audit items newest-first, the order history is displayed
// and the order the upstream API returns each stream in. Items without a
// timestamp sort last; the upstream always stamps entries, so this is
// defensive rather than load-bearing.
func Compare(a, b *models.AuditDetailItem) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	aZero, bZero := a.Timestamp.IsZero(), b.Timestamp.IsZero()
	switch {
	case aZero && bZero:
		return 0
	case aZero:
		return 1
	case bZero:
		return -1
	}

	return b.Timestamp.Compare(a.Timestamp)
}
