package cluster

import (
	"reflect"
	"testing"
)

func TestUnionFindGroups(t *testing.T) {
	b := NewBuilder(6)
	b.Union(0, 1)
	b.Union(1, 2)
	b.Union(4, 5)

	groups := b.Groups()
	want := [][]int{{0, 1, 2}, {3}, {4, 5}}
	if !reflect.DeepEqual(groups, want) {
		t.Fatalf("groups = %v, want %v", groups, want)
	}
}

func TestGroupIDsAscendingByLowestMember(t *testing.T) {
	b := NewBuilder(5)
	b.Union(3, 4)
	b.Union(0, 2)

	ids := b.GroupIDs()
	if ids[0] != ids[2] {
		t.Fatalf("expected rows 0 and 2 in the same group, got %v", ids)
	}
	if ids[3] != ids[4] {
		t.Fatalf("expected rows 3 and 4 in the same group, got %v", ids)
	}
	if ids[0] == ids[3] {
		t.Fatalf("expected distinct groups to get distinct ids, got %v", ids)
	}
	// group containing row 0 (the lowest index) must be assigned id 1.
	if ids[0] != 1 {
		t.Fatalf("expected the group with the lowest member index to get id 1, got %d", ids[0])
	}
}

func TestUnionIsIdempotentAndOrderIndependent(t *testing.T) {
	a := NewBuilder(4)
	a.Union(0, 1)
	a.Union(2, 3)
	a.Union(1, 2)

	b := NewBuilder(4)
	b.Union(2, 3)
	b.Union(1, 2)
	b.Union(0, 1)

	if !reflect.DeepEqual(a.GroupIDs(), b.GroupIDs()) {
		t.Fatalf("union order should not affect the final grouping: %v vs %v", a.GroupIDs(), b.GroupIDs())
	}
}

func TestFindWithoutUnionIsSingleton(t *testing.T) {
	b := NewBuilder(3)
	for i := 0; i < 3; i++ {
		if b.Find(i) != i {
			t.Fatalf("row %d should be its own root before any union", i)
		}
	}
}
