package memory

import (
	"sort"

	"github.com/gatehouse/gatehouse/internal/gatehouse/store"
)

func sortNewestFirst(recs []store.AccessLogRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].LoggedAt.Equal(recs[j].LoggedAt) {
			return recs[i].ID > recs[j].ID
		}
		return recs[i].LoggedAt.After(recs[j].LoggedAt)
	})
}
