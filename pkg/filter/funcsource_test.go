package filter

import (
	"errors"
	"math"
	"testing"
)

func TestResolveAliases(t *testing.T) {
	sample := []float64{3, 1, 4, 1, 5}

	cases := []struct {
		alias     string
		canonical string
		want      float64
	}{
		{"max", "amax", 5},
		{"min", "amin", 1},
	}
	for _, tc := range cases {
		aliased, err := Resolve(FuncSourceGonum, tc.alias)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", tc.alias, err)
		}
		direct, err := Resolve(FuncSourceGonum, tc.canonical)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", tc.canonical, err)
		}
		if got := aliased(sample); got != tc.want {
			t.Errorf("%q(sample) = %v, want %v", tc.alias, got, tc.want)
		}
		if aliased(sample) != direct(sample) {
			t.Errorf("alias %q and canonical %q disagree", tc.alias, tc.canonical)
		}
	}
}

func TestResolveVerbatimNames(t *testing.T) {
	sample := []float64{1, 2, 3, 4}

	cases := []struct {
		name string
		want float64
	}{
		{"mean", 2.5},
		{"sum", 10},
		{"prod", 24},
	}
	for _, tc := range cases {
		fn, err := Resolve(FuncSourceGonum, tc.name)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", tc.name, err)
		}
		if got := fn(sample); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("%q(sample) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestResolveUnknownFunction(t *testing.T) {
	_, err := Resolve(FuncSourceGonum, "quux")
	if !errors.Is(err, ErrUnknownFunction) {
		t.Errorf("Resolve(\"quux\") error = %v, want ErrUnknownFunction", err)
	}
}

func TestResolveUnknownSource(t *testing.T) {
	_, err := Resolve(FunctionSource("torch"), "max")
	if !errors.Is(err, ErrUnknownSource) {
		t.Errorf("Resolve with unknown source error = %v, want ErrUnknownSource", err)
	}
}

func TestFunctionsListing(t *testing.T) {
	names := Functions(FuncSourceGonum)
	if len(names) == 0 {
		t.Fatal("Functions returned an empty listing")
	}
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	for _, want := range []string{"amax", "amin", "mean", "median", "std", "sum", "prod"} {
		if !found[want] {
			t.Errorf("Functions listing is missing %q: %v", want, names)
		}
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Functions listing is not sorted: %v", names)
			break
		}
	}

	if Functions(FunctionSource("torch")) != nil {
		t.Error("Functions for an unknown source should return nil")
	}
}

func TestMedian(t *testing.T) {
	fn, err := Resolve(FuncSourceGonum, "median")
	if err != nil {
		t.Fatalf("Resolve(\"median\") failed: %v", err)
	}
	if got := fn([]float64{3, 1, 2}); got != 2 {
		t.Errorf("median of odd-length sample = %v, want 2", got)
	}

	// median must not reorder the caller's slice
	sample := []float64{3, 1, 2}
	fn(sample)
	if sample[0] != 3 || sample[1] != 1 || sample[2] != 2 {
		t.Errorf("median mutated its input: %v", sample)
	}
}
