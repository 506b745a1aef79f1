package expr

import "testing"

type stubRegs map[string]uint32

func (s stubRegs) ReadRegisterByName(name string) (uint32, bool) {
	v, ok := s[name]
	return v, ok
}

type stubMem map[uint32]uint32

func (m stubMem) ReadMemByte(addr uint32) (uint32, error) {
	return m[addr], nil
}

func evalString(t *testing.T, s string, regs RegisterReader, mem MemReader) uint32 {
	t.Helper()
	toks, err := Lex(s, regs)
	if err != nil {
		t.Fatalf("lex(%q): %v", s, err)
	}
	v, err := Eval(mem, toks, 0, len(toks)-1)
	if err != nil {
		t.Fatalf("eval(%q): %v", s, err)
	}
	return v
}

func TestLexOrdersHexBeforeDec(t *testing.T) {
	toks, err := Lex("0x1f", nil)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if len(toks) != 1 || toks[0].Kind != DEC || toks[0].Text != "31" {
		t.Fatalf("got %+v, want single DEC token with value 31", toks)
	}
}

func TestLexNotEqualBeforeNot(t *testing.T) {
	toks, err := Lex("1!=2", nil)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if len(toks) != 3 || toks[1].Kind != NE {
		t.Fatalf("got %+v, want [DEC, NE, DEC]", toks)
	}
}

func TestLexRegisterResolution(t *testing.T) {
	regs := stubRegs{"sp": 0x7ffffff0}
	toks, err := Lex("$sp", regs)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if len(toks) != 1 || toks[0].Kind != DEC || toks[0].Text != "2147483632" {
		t.Fatalf("got %+v, want resolved DEC token", toks)
	}
}

func TestLexUnknownRegisterFails(t *testing.T) {
	if _, err := Lex("$zz", stubRegs{}); err == nil {
		t.Fatal("expected error for unresolvable register")
	}
}

func TestLexRejectsUnrecognizedInput(t *testing.T) {
	_, err := Lex("1 @ 2", nil)
	var lexErr *LexError
	if err == nil {
		t.Fatal("expected LexError")
	}
	if !errorsAs(err, &lexErr) {
		t.Fatalf("got %v, want *LexError", err)
	}
	if lexErr.Position != 2 {
		t.Fatalf("position = %d, want 2", lexErr.Position)
	}
}

func errorsAs(err error, target **LexError) bool {
	if e, ok := err.(*LexError); ok {
		*target = e
		return true
	}
	return false
}

func TestReclassifyUnaryDeref(t *testing.T) {
	toks, err := Lex("*4+1", nil)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if toks[0].Kind != DEREF {
		t.Fatalf("leading '*' should be DEREF, got %v", toks[0].Kind)
	}
}

func TestReclassifyUnaryRev(t *testing.T) {
	toks, err := Lex("1-2", nil)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if toks[1].Kind != MINUS {
		t.Fatalf("'-' between two values must stay binary MINUS, got %v", toks[1].Kind)
	}

	toks, err = Lex("-2", nil)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if toks[0].Kind != REV {
		t.Fatalf("leading '-' should be REV, got %v", toks[0].Kind)
	}
}

func TestEvalArithmeticPrecedence(t *testing.T) {
	if got := evalString(t, "1+2*3", nil, nil); got != 7 {
		t.Fatalf("1+2*3 = %d, want 7", got)
	}
	if got := evalString(t, "(1+2)*3", nil, nil); got != 9 {
		t.Fatalf("(1+2)*3 = %d, want 9", got)
	}
}

func TestEvalLeftAssociativity(t *testing.T) {
	if got := evalString(t, "10-2-3", nil, nil); got != 5 {
		t.Fatalf("10-2-3 = %d, want 5 (left-associative)", got)
	}
}

func TestEvalComparisonAndLogic(t *testing.T) {
	if got := evalString(t, "1==1&&2!=3", nil, nil); got != 1 {
		t.Fatalf("1==1&&2!=3 = %d, want 1", got)
	}
	if got := evalString(t, "1==2||3>=3", nil, nil); got != 1 {
		t.Fatalf("1==2||3>=3 = %d, want 1", got)
	}
}

func TestEvalNot(t *testing.T) {
	if got := evalString(t, "!0", nil, nil); got != 1 {
		t.Fatalf("!0 = %d, want 1", got)
	}
	if got := evalString(t, "!1", nil, nil); got != 0 {
		t.Fatalf("!1 = %d, want 0", got)
	}
}

func TestEvalDeref(t *testing.T) {
	mem := stubMem{0x80000000: 0x42}
	if got := evalString(t, "*0x80000000", nil, mem); got != 0x42 {
		t.Fatalf("*0x80000000 = %d, want 0x42", got)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	toks, err := Lex("1/0", nil)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	_, err = Eval(nil, toks, 0, len(toks)-1)
	if err != ErrDivByZero {
		t.Fatalf("got %v, want ErrDivByZero", err)
	}
}

func TestFullyParenthesizedRejectsAdjacentGroups(t *testing.T) {
	// "(1)+(2)" must NOT be treated as one fully-parenthesized range:
	// depth reaches zero after the first ")" (index 2), well before the
	// end of the range (index 6).
	toks, err := Lex("(1)+(2)", nil)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if fullyParenthesized(toks, 0, len(toks)-1) {
		t.Fatal("(1)+(2) must not be classified as fully parenthesized")
	}
	if got := evalString(t, "(1)+(2)", nil, nil); got != 3 {
		t.Fatalf("(1)+(2) = %d, want 3", got)
	}
}

func TestFullyParenthesizedAcceptsWrappedExpression(t *testing.T) {
	toks, err := Lex("(1+2)", nil)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if !fullyParenthesized(toks, 0, len(toks)-1) {
		t.Fatal("(1+2) should be classified as fully parenthesized")
	}
}
