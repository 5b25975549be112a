package peers

import (
	"sort"

	"github.com/vpnhouse/console/internal/domain"
)

// MoreRecentlyUpdated is the ordering contract for the peer list: peers with
// a newer update timestamp come first, peers without one keep their relative
// position at the tail. Exposed as a pure function so the contract is
// directly testable.
func MoreRecentlyUpdated(a, b domain.Peer) bool {
	if a.Updated == nil || b.Updated == nil {
		return false
	}
	return a.Updated.After(*b.Updated)
}

// SortByUpdated sorts peers most-recently-updated first, stable for ties
// and for entries lacking a timestamp.
func SortByUpdated(list []domain.Peer) {
	sort.SliceStable(list, func(i, j int) bool {
		return MoreRecentlyUpdated(list[i], list[j])
	})
}
