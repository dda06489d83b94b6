package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/xyproto/mulgen/internal/cost"
	"github.com/xyproto/mulgen/internal/emit"
	"github.com/xyproto/mulgen/internal/search"
)

func program(t *testing.T, c int64) *emit.Program {
	t.Helper()
	ctx := search.NewContext(cost.Default())
	plan, err := ctx.Multiply(c)
	if errors.Is(err, search.ErrNoImprovingSequence) {
		return emit.Native(c, "n", plan.Baseline)
	}
	if err != nil {
		t.Fatalf("Multiply(%d) failed: %v", c, err)
	}
	p, err := emit.Compile(ctx.Table(), plan, "n")
	if err != nil {
		t.Fatalf("Compile(%d) failed: %v", c, err)
	}
	return p
}

const goldenC = `#include <assert.h>

// Multiply by -82 using the fewest operations
int multiply(int n) {
  int t1, t2, t3, t4, t5, t6, t7;
  t1 = n << 3;
  t2 = t1 - n;
  t3 = t2 << 2;
  t4 = t3 - t2;
  t5 = t4 << 1;
  t6 = n - t5;
  t7 = t6 << 1;
  return t7;
}

int main() {
  assert(multiply(1) == -82);
  assert(multiply(2) == -164);
  assert(multiply(3) == -246);
  assert(multiply(4) == -328);
  assert(multiply(5) == -410);
  assert(multiply(6) == -492);
}`

const goldenPython = "# Multiply by -82 using the fewest operations\n" +
	"def multiply(n: int):\n" +
	"\tt1 = n << 3\n" +
	"\tt2 = t1 - n\n" +
	"\tt3 = t2 << 2\n" +
	"\tt4 = t3 - t2\n" +
	"\tt5 = t4 << 1\n" +
	"\tt6 = n - t5\n" +
	"\tt7 = t6 << 1\n" +
	"\treturn t7\n" +
	"\n" +
	"assert(multiply(1) == -82)\n" +
	"assert(multiply(2) == -164)\n" +
	"assert(multiply(3) == -246)\n" +
	"assert(multiply(4) == -328)\n" +
	"assert(multiply(5) == -410)\n" +
	"assert(multiply(6) == -492)"

func TestGoldenFiles(t *testing.T) {
	p := program(t, -82)
	tests := []struct {
		lang Lang
		name string
		want string
	}{
		{LangC, "multiply.c", goldenC},
		{LangPython, "multiply.py", goldenPython},
	}
	for _, tt := range tests {
		files, err := Render(tt.lang, []*emit.Program{p}, Options{Harness: true})
		if err != nil {
			t.Fatalf("Render(%s) failed: %v", tt.lang, err)
		}
		if len(files) != 1 || files[0].Name != tt.name {
			t.Fatalf("Expected a single %s, got %v", tt.name, files)
		}
		if got := strings.TrimRight(files[0].Content, "\n"); got != tt.want {
			t.Errorf("%s output differs.\nExpected:\n%s\nGot:\n%s", tt.lang, tt.want, got)
		}
	}
}

func TestFuncName(t *testing.T) {
	tests := []struct {
		lang  Lang
		c     int64
		batch bool
		want  string
	}{
		{LangC, -82, false, "multiply"},
		{LangGo, -82, false, "multiply"},
		{LangC, 82, true, "multiply_82"},
		{LangC, -82, true, "multiply_m82"},
		{LangRust, -3, true, "multiply_m3"},
		{LangGo, 82, true, "Multiply82"},
		{LangGo, -82, true, "MultiplyM82"},
		{LangARM64, 7, true, "multiply_7"},
	}
	for _, tt := range tests {
		if got := FuncName(tt.lang, tt.c, tt.batch); got != tt.want {
			t.Errorf("FuncName(%s, %d, %v) = %q, want %q", tt.lang, tt.c, tt.batch, got, tt.want)
		}
	}
}

func TestParseLang(t *testing.T) {
	tests := []struct {
		in   string
		want Lang
	}{
		{"c", LangC},
		{"Go", LangGo},
		{"golang", LangGo},
		{"py", LangPython},
		{"rs", LangRust},
		{"aarch64", LangARM64},
		{"rv64", LangRiscv64},
		{"amd64", LangX86_64},
		{"x86-64", LangX86_64},
	}
	for _, tt := range tests {
		got, err := ParseLang(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLang(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseLang("cobol"); err == nil {
		t.Error("Expected an error for an unsupported language")
	}
	for _, l := range Langs {
		back, err := ParseLang(l.String())
		if err != nil || back != l {
			t.Errorf("Round trip of %s gave %v, %v", l, back, err)
		}
	}
}

func TestTemporariesDeclaredOnce(t *testing.T) {
	p := program(t, -82)
	for _, l := range []Lang{LangC, LangGo, LangRust} {
		b, _ := New(l)
		fn, err := b.Function(p, "multiply")
		if err != nil {
			t.Fatalf("%s: %v", l, err)
		}
		for _, temp := range p.Temps {
			var decl string
			switch l {
			case LangC:
				decl = "int " + strings.Join(p.Temps, ", ") + ";"
			case LangGo:
				decl = "var " + strings.Join(p.Temps, ", ") + " int"
			case LangRust:
				decl = "let " + temp + " ="
			}
			if n := strings.Count(fn, decl); n != 1 {
				t.Errorf("%s: expected %q once, found %d times:\n%s", l, decl, n, fn)
			}
		}
	}
}

func TestGoRendering(t *testing.T) {
	progs := []*emit.Program{program(t, 5), program(t, -82)}
	files, err := Render(LangGo, progs, Options{Batch: true, Unit: "consts", Package: "consts", Harness: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0].Name != "consts.go" || files[1].Name != "consts_test.go" {
		t.Fatalf("Unexpected files: %v", files)
	}
	src := files[0].Content
	for _, want := range []string{
		"// Code generated by mulgen. DO NOT EDIT.",
		"package consts",
		"func Multiply5(n int) int {",
		"func MultiplyM82(n int) int {",
		"\tvar t1, t2, t3, t4, t5, t6, t7 int\n",
		"\treturn t7\n",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("Expected %q in:\n%s", want, src)
		}
	}
	if !strings.Contains(files[1].Content, `{"MultiplyM82", MultiplyM82, -82},`) {
		t.Errorf("Expected the harness to list MultiplyM82:\n%s", files[1].Content)
	}
}

func TestRustRendering(t *testing.T) {
	files, err := Render(LangRust, []*emit.Program{program(t, -82)}, Options{Harness: true})
	if err != nil {
		t.Fatal(err)
	}
	src := files[0].Content
	for _, want := range []string{
		"pub fn multiply(n: i64) -> i64 {",
		"    let t6 = n - t5;\n",
		"    t7\n}",
		"assert_eq!(multiply(3), -246);",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("Expected %q in:\n%s", want, src)
		}
	}
}

func TestCBatchHeader(t *testing.T) {
	progs := []*emit.Program{program(t, 3), program(t, -3)}
	files, err := Render(LangC, progs, Options{Batch: true, Unit: "small-consts"})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[1].Name != "small-consts.h" {
		t.Fatalf("Expected a source and a header, got %v", files)
	}
	if !strings.HasPrefix(files[0].Content, "#include \"small-consts.h\"\n\n") {
		t.Errorf("Expected the unit to include its header:\n%s", files[0].Content)
	}
	h := files[1].Content
	for _, want := range []string{
		"#ifndef MULGEN_SMALL_CONSTS_H\n#define MULGEN_SMALL_CONSTS_H\n",
		"int multiply_3(int n);\n",
		"int multiply_m3(int n);\n",
		"#endif // MULGEN_SMALL_CONSTS_H\n",
	} {
		if !strings.Contains(h, want) {
			t.Errorf("Expected %q in header:\n%s", want, h)
		}
	}
}

func TestRenderNeedsBatchForSeveralPrograms(t *testing.T) {
	progs := []*emit.Program{program(t, 3), program(t, 5)}
	if _, err := Render(LangC, progs, Options{}); err == nil {
		t.Error("Expected two programs without batch naming to be rejected")
	}
	if _, err := Render(LangC, nil, Options{Batch: true}); err == nil {
		t.Error("Expected an empty program list to be rejected")
	}
}

func TestNativeRendering(t *testing.T) {
	p := emit.Native(-113, "n", 8)
	b, _ := New(LangC)
	fn, err := b.Function(p, "multiply")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(fn, "// Multiply by -113 using a multiply instruction") || !strings.Contains(fn, "  t1 = n * -113;\n") {
		t.Errorf("Unexpected native rendering:\n%s", fn)
	}
}

func TestCWidensLargeConstants(t *testing.T) {
	var c int64 = -search.MaxConstant
	p := program(t, c)
	if err := p.Check(DefaultInputs...); err != nil {
		t.Fatal(err)
	}
	files, err := Render(LangC, []*emit.Program{p}, Options{Harness: true})
	if err != nil {
		t.Fatal(err)
	}
	src := files[0].Content
	for _, want := range []string{
		"#include <assert.h>\n#include <stdint.h>\n\n",
		"int64_t multiply(int64_t n) {",
		"  int64_t " + strings.Join(p.Temps, ", ") + ";\n",
		"  assert(multiply(2) == -4294967294);\n",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("Expected %q in:\n%s", want, src)
		}
	}
	if strings.Contains(src, "int multiply(") {
		t.Errorf("Expected no 32-bit signature:\n%s", src)
	}

	native := emit.Native(1000000007, "n", 8)
	files, err = Render(LangC, []*emit.Program{native, program(t, 3)}, Options{Batch: true, Unit: "wide"})
	if err != nil {
		t.Fatal(err)
	}
	h := files[1].Content
	for _, want := range []string{"#include <stdint.h>\n", "int64_t multiply_1000000007(int64_t n);\n", "int64_t multiply_3(int64_t n);\n"} {
		if !strings.Contains(h, want) {
			t.Errorf("Expected %q in header:\n%s", want, h)
		}
	}
	if !strings.Contains(files[0].Content, "int64_t multiply_3(int64_t n) {") {
		t.Errorf("Expected one integer type across the unit:\n%s", files[0].Content)
	}
}

func TestCKeepsIntForSmallConstants(t *testing.T) {
	if got := cType([]*emit.Program{program(t, -82)}, DefaultInputs); got != "int" {
		t.Errorf("Expected int for -82, got %s", got)
	}
	if got := cType([]*emit.Program{program(t, 1<<28 + 1)}, DefaultInputs); got != "int64_t" {
		t.Errorf("Expected int64_t when 6 * c overflows 32 bits, got %s", got)
	}
}

func TestFileNamesFollowLanguage(t *testing.T) {
	p := program(t, 5)
	for _, l := range Langs {
		files, err := Render(l, []*emit.Program{p}, Options{Unit: "times5"})
		if err != nil {
			t.Fatalf("%s: %v", l, err)
		}
		if !strings.HasPrefix(files[0].Name, "times5") || !strings.HasSuffix(files[0].Name, l.Ext()) {
			t.Errorf("%s: unexpected file name %s", l, files[0].Name)
		}
		if l.IsAsm() != strings.HasSuffix(files[0].Name, ".s") {
			t.Errorf("%s: IsAsm disagrees with %s", l, files[0].Name)
		}
	}
}
