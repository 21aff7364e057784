package storage

import (
	"reflect"
	"sort"
	"testing"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
)

func usageProject() domain.Project {
	p := testProject("Usage")
	p.Networks = append(p.Networks, domain.Network{
		Name:   "cifar",
		Target: domain.TargetPyTorch,
		Blocks: []domain.Block{
			{ID: "in", Type: "input"},
			{ID: "c1", Type: "conv2d"},
			{ID: "c2", Type: "conv2d"},
			{ID: "mystery", Type: "quantum_gate"},
		},
		Connections: []domain.Connection{{From: "in", To: "c1"}, {From: "c1", To: "c2"}},
	})
	return p
}

func TestBlockTypeUsage(t *testing.T) {
	counts := BlockTypeUsage(usageProject())
	want := map[string]int{"input": 2, "dense": 2, "conv2d": 2, "quantum_gate": 1}
	if !reflect.DeepEqual(counts, want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
}

func TestNetworksUsing(t *testing.T) {
	p := usageProject()
	if got := NetworksUsing(p, "input"); !reflect.DeepEqual(got, []string{"cifar", "mnist"}) {
		t.Fatalf("input used by %v", got)
	}
	if got := NetworksUsing(p, "conv2d"); !reflect.DeepEqual(got, []string{"cifar"}) {
		t.Fatalf("conv2d used by %v", got)
	}
	if got := NetworksUsing(p, "lstm"); len(got) != 0 {
		t.Fatalf("lstm used by %v", got)
	}
}

func TestUnusedAndUnknownTypes(t *testing.T) {
	cat, err := catalog.Builtin()
	if err != nil {
		t.Fatalf("Builtin error: %v", err)
	}
	p := usageProject()

	unused := UnusedTypes(cat, p)
	inUnused := func(typ string) bool {
		for _, u := range unused {
			if u == typ {
				return true
			}
		}
		return false
	}
	for _, typ := range []string{"input", "dense", "conv2d"} {
		if inUnused(typ) {
			t.Fatalf("%s reported unused", typ)
		}
	}
	if !inUnused("lstm") || !inUnused("flatten") {
		t.Fatalf("expected lstm and flatten in unused set: %v", unused)
	}
	if !sort.StringsAreSorted(unused) {
		t.Fatalf("unused not sorted: %v", unused)
	}

	unknown := UnknownTypes(cat, p)
	if !reflect.DeepEqual(unknown, []string{"quantum_gate"}) {
		t.Fatalf("unknown = %v", unknown)
	}
}
