package eval

import "testing"

func TestNormalizeStructure_CasingAndOrder(t *testing.T) {
	a := NormalizeStructure("red,0,50,0;BLUE,100,50,0;")
	b := NormalizeStructure("Blue,100,50,0;Red,0,50,0")
	if !a.Equal(b) {
		t.Fatalf("expected equal sets: %v vs %v", a, b)
	}
	if len(a) != 2 {
		t.Fatalf("len=%d want 2", len(a))
	}
	if _, ok := a["Red,0,50,0"]; !ok {
		t.Fatalf("missing canonical Red block: %v", a)
	}
}

func TestNormalizeStructure_Idempotent(t *testing.T) {
	inputs := []string{
		"red,0,50,0;BLUE,100,50,0;",
		"Red,0,50,0",
		"",
		"Green, 0 , 50 , 0 ;green,0,50,0",
	}
	for _, in := range inputs {
		once := NormalizeStructure(in)
		twice := NormalizeStructure(once.String())
		if !once.Equal(twice) {
			t.Fatalf("not idempotent for %q: %v vs %v", in, once, twice)
		}
	}
}

func TestNormalizeStructure_Duplicates(t *testing.T) {
	a := NormalizeStructure("Red,0,50,0;red,0,50,0;Red,0,50,0")
	if len(a) != 1 {
		t.Fatalf("duplicates should collapse, got %v", a)
	}
}

func TestNormalizeStructure_DropsMalformed(t *testing.T) {
	a := NormalizeStructure("Red,0,50;Blue,0,50,0,9;Green,0,50,0;;  ;")
	if len(a) != 1 {
		t.Fatalf("expected only the well-formed block, got %v", a)
	}
	if _, ok := a["Green,0,50,0"]; !ok {
		t.Fatalf("missing Green block: %v", a)
	}
}

func TestStructureSet_String(t *testing.T) {
	s := NormalizeStructure("blue,100,50,0;Red,0,50,0")
	if got := s.String(); got != "Blue,100,50,0;Red,0,50,0" {
		t.Fatalf("String()=%q", got)
	}
	if NormalizeStructure("").String() != "" {
		t.Fatalf("empty set should render empty")
	}
}
