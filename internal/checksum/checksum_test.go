package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("")
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestJSON_StableAcrossMapOrder(t *testing.T) {
	a := map[string]any{"b": 1, "a": map[string]any{"y": true, "x": "s"}}
	b := map[string]any{"a": map[string]any{"x": "s", "y": true}, "b": 1}

	_, sumA, err := JSON(a)
	if err != nil {
		t.Fatal(err)
	}
	_, sumB, err := JSON(b)
	if err != nil {
		t.Fatal(err)
	}
	if sumA != sumB {
		t.Errorf("digests differ: %s vs %s", sumA, sumB)
	}
}

func TestJSON_Unencodable(t *testing.T) {
	if _, _, err := JSON(map[string]any{"f": func() {}}); err == nil {
		t.Fatal("expected encode error")
	}
}
