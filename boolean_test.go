package memo_test

import (
	"errors"
	"testing"

	"github.com/segmentio/memo"
)

func TestBooleanTable(t *testing.T) {
	table := memo.NewBooleanTable()

	for _, test := range []struct {
		null     bool
		value    bool
		index    int32
		inserted bool
	}{
		{value: true, index: 0, inserted: true},
		{null: true, index: 1, inserted: true},
		{value: true, index: 0, inserted: false},
		{value: false, index: 2, inserted: true},
		{null: true, index: 1, inserted: false},
		{value: false, index: 2, inserted: false},
	} {
		var index int32
		var inserted bool

		if test.null {
			var present bool
			index, present = table.GetOrInsertNull()
			inserted = !present
		} else {
			index, inserted, _ = table.GetOrInsert(test.value)
		}

		if index != test.index || inserted != test.inserted {
			t.Errorf("inserting (null=%t, value=%t): want=(%d,%t) got=(%d,%t)", test.null, test.value, test.index, test.inserted, index, inserted)
		}
	}

	if table.Size() != 3 {
		t.Errorf("wrong table size: want=3 got=%d", table.Size())
	}

	values := []bool{false, true, true}
	if err := table.WriteOut(values); err != nil {
		t.Fatal(err)
	}
	if values[0] != true || values[1] != true || values[2] != false {
		t.Errorf("wrong values written: %v", values)
	}

	subset := []bool{true}
	if err := table.WriteOutSubset(2, subset); err != nil {
		t.Fatal(err)
	}
	if subset[0] {
		t.Errorf("wrong value written at index 2")
	}

	if err := table.WriteOut(make([]bool, 2)); !errors.Is(err, memo.ErrRange) {
		t.Errorf("expected ErrRange, got %v", err)
	}

	if v, ok := table.Value(2); v || !ok {
		t.Errorf("wrong value at index 2: %t %t", v, ok)
	}
	if _, ok := table.Value(1); ok {
		t.Errorf("value found at the index of null")
	}

	table.Reset()
	if _, found := table.Get(true); found || table.Size() != 0 {
		t.Error("table not empty after reset")
	}
	if index, inserted, _ := table.GetOrInsert(false); index != 0 || !inserted {
		t.Errorf("wrong insertion after reset: index=%d inserted=%t", index, inserted)
	}
}

func TestBooleanTableInsert(t *testing.T) {
	table := memo.NewBooleanTable()
	table.GetOrInsertNull()

	values := []bool{true, true, false, true, false}
	indexes := make([]int32, len(values))
	if err := table.Insert(indexes, values); err != nil {
		t.Fatal(err)
	}

	want := []int32{1, 1, 2, 1, 2}
	for i := range want {
		if indexes[i] != want[i] {
			t.Errorf("wrong index at position %d: want=%d got=%d", i, want[i], indexes[i])
		}
	}
	if size := table.Size(); size != 3 {
		t.Errorf("wrong table size: want=3 got=%d", size)
	}
}

func TestBooleanTableMatchesMapTable(t *testing.T) {
	testMatchesMapTable(t, func() memo.Table[bool] { return memo.NewBooleanTable() }, identity[bool], nil)
}
