package selfplay_test

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/sw965/omw/mathx/randx"
	"github.com/sw965/sushigo"
	"github.com/sw965/sushigo/selfplay"
)

func TestModelsPolicyValue(t *testing.T) {
	rngs, err := randx.NewPCGs(1)
	if err != nil {
		t.Fatal(err)
	}
	rng := rngs[0]

	models, err := selfplay.NewModels(2, 16, rng)
	if err != nil {
		t.Fatal(err)
	}

	state, err := sushigo.NewInitState(2, rng)
	if err != nil {
		t.Fatal(err)
	}

	legalMoves := sushigo.LegalMoves(state, 0)
	policy, value, err := models.PolicyValue(state, 0, legalMoves)
	if err != nil {
		t.Fatal(err)
	}

	if len(policy) != len(legalMoves) {
		t.Fatalf("want policy over %d legal moves, got %d", len(legalMoves), len(policy))
	}

	var sum float32
	for m, p := range policy {
		if p < 0.0 {
			t.Errorf("move %v: negative probability %f", m, p)
		}
		sum += p
	}
	if math32.Abs(sum-1.0) > 1e-4 {
		t.Errorf("masked policy must sum to 1, got %f", sum)
	}

	if value < 0.0 || value > 1.0 {
		t.Errorf("sigmoid value %f out of [0, 1]", value)
	}
}

func TestModelsSaveLoad(t *testing.T) {
	rngs, err := randx.NewPCGs(1)
	if err != nil {
		t.Fatal(err)
	}
	rng := rngs[0]

	models, err := selfplay.NewModels(2, 16, rng)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	if err := models.Save(dir); err != nil {
		t.Fatal(err)
	}

	other, err := selfplay.NewModels(2, 16, rng)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.LoadParameters(dir); err != nil {
		t.Fatal(err)
	}

	state, err := sushigo.NewInitState(2, rng)
	if err != nil {
		t.Fatal(err)
	}
	x, err := sushigo.Feature(state, 0)
	if err != nil {
		t.Fatal(err)
	}

	y1, err := models.Policy.Predict(x)
	if err != nil {
		t.Fatal(err)
	}
	y2, err := other.Policy.Predict(x)
	if err != nil {
		t.Fatal(err)
	}

	for i := range y1.Data {
		if y1.Data[i] != y2.Data[i] {
			t.Errorf("output %d: want %f, got %f", i, y1.Data[i], y2.Data[i])
		}
	}
}
