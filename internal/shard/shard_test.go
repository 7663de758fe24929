package shard

import "testing"

func TestVirtInRange(t *testing.T) {
	for _, imei := range []string{"64220297727231", "00000000000000", "ABCDEF1234", "99999999999999"} {
		v := Virt(imei)
		if v < 0 || v >= NumVirtualShards {
			t.Errorf("Virt(%q) = %d, out of [0,99]", imei, v)
		}
	}
}

func TestVirtIsPure(t *testing.T) {
	imei := "64220297727231"
	first := Virt(imei)
	for i := 0; i < 100; i++ {
		if got := Virt(imei); got != first {
			t.Fatalf("Virt(%q) not stable: %d != %d", imei, got, first)
		}
	}
}

func TestPartitionCoversWholeRange(t *testing.T) {
	for _, n := range []int{1, 4, 7, 100} {
		shards, err := Partition(n)
		if err != nil {
			t.Fatalf("Partition(%d): %v", n, err)
		}
		if len(shards) != n {
			t.Fatalf("Partition(%d) returned %d shards", n, len(shards))
		}
		seen := make(map[int]bool)
		for _, p := range shards {
			for v := p.Lo; v <= p.Hi; v++ {
				if seen[v] {
					t.Fatalf("virtual shard %d covered twice", v)
				}
				seen[v] = true
			}
		}
		if len(seen) != NumVirtualShards {
			t.Fatalf("Partition(%d) covers %d virtual shards, want %d", n, len(seen), NumVirtualShards)
		}
	}
}

func TestPartitionInvalid(t *testing.T) {
	if _, err := Partition(0); err == nil {
		t.Error("expected error for numPhysical=0")
	}
	if _, err := Partition(101); err == nil {
		t.Error("expected error for numPhysical=101")
	}
}

func TestChildTableName(t *testing.T) {
	got := ChildTableName("historic_stolen_list", Physical{Lo: 0, Hi: 24})
	want := "historic_stolen_list_0_24"
	if got != want {
		t.Errorf("ChildTableName() = %q, want %q", got, want)
	}
}
