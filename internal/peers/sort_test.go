package peers

import (
	"testing"
	"time"

	"github.com/vpnhouse/console/internal/domain"
)

func ts(t time.Time) *time.Time { return &t }

func TestMoreRecentlyUpdated(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	newer := domain.Peer{Updated: ts(base.Add(time.Hour))}
	older := domain.Peer{Updated: ts(base)}
	never := domain.Peer{}

	if !MoreRecentlyUpdated(newer, older) {
		t.Fatal("newer must order before older")
	}
	if MoreRecentlyUpdated(older, newer) {
		t.Fatal("older must not order before newer")
	}
	// Missing timestamps never reorder; stability keeps their position.
	if MoreRecentlyUpdated(never, older) || MoreRecentlyUpdated(older, never) {
		t.Fatal("entries without a timestamp must not reorder")
	}
}

func TestSortByUpdated(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	list := []domain.Peer{
		{ID: 1, Updated: ts(base)},
		{ID: 2, Updated: ts(base.Add(2 * time.Hour))},
		{ID: 3, Updated: ts(base.Add(time.Hour))},
	}
	SortByUpdated(list)

	got := []int64{list[0].ID, list[1].ID, list[2].ID}
	if list[0].ID != 2 || list[1].ID != 3 || list[2].ID != 1 {
		t.Fatalf("order %v, want [2 3 1]", got)
	}
}

func TestSortByUpdatedKeepsUntimestampedStable(t *testing.T) {
	t.Parallel()

	// Entries without a timestamp compare equal to everything, so a stable
	// sort leaves them exactly where they were.
	list := []domain.Peer{{ID: 10}, {ID: 11}, {ID: 12}}
	SortByUpdated(list)
	if list[0].ID != 10 || list[1].ID != 11 || list[2].ID != 12 {
		t.Fatalf("untimestamped entries reordered: %v", list)
	}
}
