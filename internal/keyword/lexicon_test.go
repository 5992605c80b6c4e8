package keyword

import (
	"testing"
)

func TestLexicon(t *testing.T) {
	lex, err := NewLexicon([]string{
		"Vacation policy: employees accrue vacation days monthly.",
		"The sick leave policy requires a doctor's note.",
	})
	if err != nil {
		t.Fatalf("NewLexicon: %v", err)
	}
	if lex.Len() == 0 {
		t.Fatal("expected terms")
	}
	if ok, _ := lex.ContainsTerm("vacation"); !ok {
		t.Error("vacation should be in the lexicon")
	}
	if ok, _ := lex.ContainsTerm("Vacation"); ok {
		t.Error("terms are lowercased")
	}
	if ok, _ := lex.ContainsTerm("the"); ok {
		t.Error("stop words should not be in the lexicon")
	}
	if freq, _ := lex.GetTermFrequency("policy"); freq != 2 {
		t.Errorf("policy frequency = %d, want 2", freq)
	}
	if freq, _ := lex.GetTermFrequency("vacation"); freq != 1 {
		t.Errorf("vacation frequency = %d, want 1 (chunk count)", freq)
	}
	if !lex.IsStopWord("the") || lex.IsStopWord("payroll") {
		t.Error("IsStopWord mismatch")
	}
}

func TestLexicon_WithSpellChecker(t *testing.T) {
	lex, err := NewLexicon([]string{"Reimbursement requests are filed in the finance portal."})
	if err != nil {
		t.Fatal(err)
	}
	sc, err := NewSpellChecker(lex)
	if err != nil {
		t.Fatal(err)
	}
	if got := sc.GetSuggestedQuery("the reimbursment portl"); got != "the reimbursement portal" {
		t.Errorf("GetSuggestedQuery = %q", got)
	}
}

func TestLexicon_Empty(t *testing.T) {
	lex, err := NewLexicon(nil)
	if err != nil {
		t.Fatal(err)
	}
	if lex.Len() != 0 {
		t.Errorf("Len = %d, want 0", lex.Len())
	}
}
