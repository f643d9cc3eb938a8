package user

import (
	"strconv"

	"golang.org/x/sync/singleflight"
)

// RowSync coalesces concurrent reads of the same id: while a read is in
// flight, later callers for that id wait for it instead of reading again.
// Nothing is retained once every waiter has its row.
type RowSync struct {
	group singleflight.Group
}

// Read returns the row for id, calling read at most once per set of
// concurrent callers. Each caller receives its own copy.
func (s *RowSync) Read(id int64, read func() (*Row, error)) (*Row, error) {
	v, err, _ := s.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		return read()
	})
	if err != nil {
		return nil, err
	}
	row, _ := v.(*Row)
	if row == nil {
		return nil, nil
	}
	return row.Copy(), nil
}
