package emit

import (
	"errors"
	"strings"
	"testing"

	"github.com/xyproto/mulgen/internal/cost"
	"github.com/xyproto/mulgen/internal/search"
)

var sampleInputs = []int64{-7, -3, -1, 0, 1, 2, 3, 4, 5, 6, 1000, 12345}

func compile(t *testing.T, c int64) *Program {
	t.Helper()
	ctx := search.NewContext(cost.Default())
	plan, err := ctx.Multiply(c)
	if errors.Is(err, search.ErrNoImprovingSequence) {
		return Native(c, "n", plan.Baseline)
	}
	if err != nil {
		t.Fatalf("Multiply(%d) failed: %v", c, err)
	}
	p, err := Compile(ctx.Table(), plan, "n")
	if err != nil {
		t.Fatalf("Compile(%d) failed: %v", c, err)
	}
	return p
}

// TestCompileMinus82 checks the exact sequence of the reference output
func TestCompileMinus82(t *testing.T) {
	p := compile(t, -82)

	want := []string{
		"t1 = n << 3",
		"t2 = t1 - n",
		"t3 = t2 << 2",
		"t4 = t3 - t2",
		"t5 = t4 << 1",
		"t6 = n - t5",
		"t7 = t6 << 1",
	}
	if len(p.Steps) != len(want) {
		t.Fatalf("Expected %d steps, got %d:\n%s", len(want), len(p.Steps), p.Listing())
	}
	for i, w := range want {
		if got := p.Steps[i].String(); got != w {
			t.Errorf("step %d = %q, want %q", i, got, w)
		}
	}
	if p.Result.Name != "t7" {
		t.Errorf("Expected result t7, got %s", p.Result.Name)
	}
	if len(p.Temps) != 7 {
		t.Errorf("Expected 7 temporaries, got %v", p.Temps)
	}
	if p.Cost != 6 || p.Native {
		t.Errorf("Expected a cost 6 sequence, got cost %d native=%v", p.Cost, p.Native)
	}

	oracle := map[int64]int64{1: -82, 2: -164, 3: -246, 4: -328, 5: -410, 6: -492}
	for n, want := range oracle {
		if got := p.Eval(n); got != want {
			t.Errorf("multiply(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestCompileFive(t *testing.T) {
	p := compile(t, 5)
	if len(p.Steps) != 2 {
		t.Fatalf("Expected 2 steps for 5, got:\n%s", p.Listing())
	}
	if p.Steps[0].String() != "t1 = n << 2" || p.Steps[1].String() != "t2 = t1 + n" {
		t.Errorf("Expected (n<<2)+n, got:\n%s", p.Listing())
	}
	if p.Cost >= cost.Default().EstimateMultiply(5) {
		t.Errorf("Expected 5 to beat the multiply baseline, cost %d", p.Cost)
	}
}

func TestOddConstantsMultiplyCorrectly(t *testing.T) {
	for c := int64(-127); c <= 127; c += 2 {
		if c == 1 || c == -1 {
			continue
		}
		p := compile(t, c)
		if err := p.Check(sampleInputs...); err != nil {
			t.Errorf("%v\n%s", err, p.Listing())
		}
	}
}

func TestEvenConstantsMultiplyCorrectly(t *testing.T) {
	for c := int64(-128); c <= 128; c += 2 {
		if c == 0 {
			continue
		}
		p := compile(t, c)
		if err := p.Check(sampleInputs...); err != nil {
			t.Errorf("%v\n%s", err, p.Listing())
		}
		if !p.Native {
			last := p.Steps[len(p.Steps)-1]
			if last.Kind != Shl || last.Dst.Value != c {
				t.Errorf("%d: expected a trailing shift to the target, got %s", c, last)
			}
		}
	}
}

func TestMinusOne(t *testing.T) {
	p := compile(t, -1)
	if len(p.Steps) != 1 || p.Steps[0].String() != "t1 = 0 - n" {
		t.Errorf("Expected a single negation, got:\n%s", p.Listing())
	}
}

func TestPowerOfTwo(t *testing.T) {
	p := compile(t, 64)
	if len(p.Steps) != 1 || p.Steps[0].String() != "t1 = n << 6" {
		t.Errorf("Expected a single shift, got:\n%s", p.Listing())
	}
}

func TestTemporariesAssignedOnce(t *testing.T) {
	for c := int64(-127); c <= 127; c++ {
		if c == 0 || c == 1 {
			continue
		}
		p := compile(t, c)
		seen := map[string]bool{}
		for _, s := range p.Steps {
			if seen[s.Dst.Name] {
				t.Errorf("%d: %s assigned twice", c, s.Dst.Name)
			}
			if s.Dst.Name == p.Input {
				t.Errorf("%d: input parameter reassigned", c)
			}
			seen[s.Dst.Name] = true
		}
		if len(seen) != len(p.Temps) {
			t.Errorf("%d: %d temporaries declared, %d assigned", c, len(p.Temps), len(seen))
		}
	}
}

// TestSharedIntermediate builds 7 = (n<<3) - n and 9 = (n<<3) + n by hand:
// both branches produce 8 and must share its temporary.
func TestSharedIntermediate(t *testing.T) {
	ctx := search.NewContext(cost.Default())
	tab := ctx.Table()
	one, _ := tab.Lookup(1)

	seven := tab.LookupOrCreate(7)
	tab.Improve(seven, one, cost.ShiftSub, 2)
	nine := tab.LookupOrCreate(9)
	tab.Improve(nine, one, cost.ShiftAdd, 2)

	e := New(tab, "n")
	if _, err := e.Node(seven); err != nil {
		t.Fatalf("Node(7) failed: %v", err)
	}
	if _, err := e.Node(nine); err != nil {
		t.Fatalf("Node(9) failed: %v", err)
	}

	p := e.Program(9, 9, 4)
	want := []string{"t1 = n << 3", "t2 = t1 - n", "t3 = t1 + n"}
	if len(p.Steps) != len(want) {
		t.Fatalf("Expected %d steps, got:\n%s", len(want), p.Listing())
	}
	for i, w := range want {
		if p.Steps[i].String() != w {
			t.Errorf("step %d = %q, want %q", i, p.Steps[i].String(), w)
		}
	}
	if e.Symbol(8) != "t1" {
		t.Errorf("Expected 8 to stay bound to t1, got %s", e.Symbol(8))
	}
}

func TestSharedSubDerivation(t *testing.T) {
	ctx := search.NewContext(cost.Default())
	seven, ok := ctx.FindSequence(7, 8)
	if !ok {
		t.Fatal("Expected a sequence for 7")
	}
	twentyOne, ok := ctx.FindSequence(21, 8)
	if !ok {
		t.Fatal("Expected a sequence for 21")
	}

	e := New(ctx.Table(), "n")
	if _, err := e.Node(seven); err != nil {
		t.Fatal(err)
	}
	before := len(e.steps)
	if _, err := e.Node(twentyOne); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Node(twentyOne); err != nil {
		t.Fatal(err)
	}
	p := e.Program(21, 21, 4)
	if len(p.Steps) != before+2 {
		t.Errorf("Expected 21 to add exactly a shift and a subtraction, got:\n%s", p.Listing())
	}
	if got := p.Eval(3); got != 63 {
		t.Errorf("Expected 63, got %d", got)
	}
}

func TestUnresolvedNode(t *testing.T) {
	ctx := search.NewContext(cost.Default())
	id := ctx.Table().LookupOrCreate(11)

	_, err := New(ctx.Table(), "n").Node(id)
	if !errors.Is(err, ErrUnresolved) {
		t.Errorf("Expected ErrUnresolved, got %v", err)
	}
}

func TestShiftMismatch(t *testing.T) {
	e := New(search.NewContext(cost.Default()).Table(), "n")

	if err := e.Shift(12, 5, cost.Identity); !errors.Is(err, ErrShiftMismatch) {
		t.Errorf("Expected ErrShiftMismatch for 12 from 5, got %v", err)
	}
	if err := e.Shift(4, 0, cost.Identity); !errors.Is(err, ErrShiftMismatch) {
		t.Errorf("Expected ErrShiftMismatch from 0, got %v", err)
	}
	if err := e.Shift(-12, -3, cost.Identity); err != nil {
		t.Errorf("Expected -3 << 2 to work, got %v", err)
	}
}

func TestNativeProgram(t *testing.T) {
	p := Native(-113, "x", 8)
	if !p.Native || p.Cost != 8 {
		t.Errorf("Unexpected native program: %+v", p)
	}
	if err := p.Check(sampleInputs...); err != nil {
		t.Error(err)
	}
	if p.Steps[0].String() != "t1 = x * -113" {
		t.Errorf("Unexpected native step: %s", p.Steps[0])
	}
}

func TestListing(t *testing.T) {
	listing := compile(t, -82).Listing()
	for _, want := range []string{"t1 = n << 3; // shift_sub (8 = 1 << 3)", "t6 = n - t5; // shift_rev (-41 = 1 - 42)", "return t7; // cost 6"} {
		if !strings.Contains(listing, want) {
			t.Errorf("Expected listing to contain %q, got:\n%s", want, listing)
		}
	}
}
