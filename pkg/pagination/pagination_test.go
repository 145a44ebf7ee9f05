package pagination

import "testing"

func TestNewPageInfo(t *testing.T) {
	cases := []struct {
		name       string
		page       int
		pageSize   int
		total      int64
		totalPages int
		hasNext    bool
		hasPrev    bool
	}{
		{"first of three", 1, 10, 25, 3, true, false},
		{"middle page", 2, 10, 25, 3, true, true},
		{"last page", 3, 10, 25, 3, false, true},
		{"empty result", 1, 10, 0, 0, false, false},
		{"zero page size falls back", 1, 0, 25, 3, true, false},
	}
	for _, tc := range cases {
		info := NewPageInfo(tc.page, tc.pageSize, tc.total)
		if info.TotalPages != tc.totalPages {
			t.Errorf("%s: total pages %d, want %d", tc.name, info.TotalPages, tc.totalPages)
		}
		if info.HasNext != tc.hasNext || info.HasPrev != tc.hasPrev {
			t.Errorf("%s: has_next=%v has_prev=%v", tc.name, info.HasNext, info.HasPrev)
		}
	}
}

func TestPageParamsOffset(t *testing.T) {
	p := &PageParams{Page: 3, PageSize: 20}
	if p.GetOffset() != 40 {
		t.Errorf("offset %d, want 40", p.GetOffset())
	}
	if p.GetLimit() != 20 {
		t.Errorf("limit %d, want 20", p.GetLimit())
	}
}
