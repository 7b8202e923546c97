package qualityindex

import (
	"reflect"
	"sort"
	"testing"
)

func TestFindAboveThreshold(t *testing.T) {
	idx := New()
	idx.Add("a", 90)
	idx.Add("b", 60)
	idx.Add("c", 30)

	got := idx.FindAbove(60)
	sort.Strings(got)
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindAbove(60) = %v, want %v", got, want)
	}
}

func TestAddOverwrites(t *testing.T) {
	idx := New()
	idx.Add("a", 10)
	idx.Add("a", 90)

	got := idx.FindAbove(50)
	want := []string{"a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindAbove(50) = %v, want %v", got, want)
	}
}
