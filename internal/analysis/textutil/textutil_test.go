package textutil

import "testing"

func TestSentences(t *testing.T) {
	got := Sentences("First one. Second one?  Third!! trailing words")
	want := []string{"First one.", "Second one?", "Third!!", "trailing words"}
	if len(got) != len(want) {
		t.Fatalf("Sentences() = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
	if len(Sentences("   ")) != 0 {
		t.Error("blank text produced sentences")
	}
}

func TestWordsAndTerms(t *testing.T) {
	if n := len(Words("Scored 95 on the WISC-V, student's best.")); n != 8 {
		t.Errorf("Words() = %d tokens, want 8", n)
	}
	terms := Terms("Reading FLUENCY 42")
	if len(terms) != 2 || terms[0] != "reading" || terms[1] != "fluency" {
		t.Errorf("Terms() = %q", terms)
	}
}

func TestLetterStats(t *testing.T) {
	letters, upper := LetterStats("Ab C1")
	if letters != 3 || upper != 2 {
		t.Errorf("LetterStats = %d/%d", letters, upper)
	}
}

func TestDigitRatio(t *testing.T) {
	if r := DigitRatio("ab 12"); r != 0.5 {
		t.Errorf("DigitRatio = %v", r)
	}
	if DigitRatio("") != 0 {
		t.Error("empty ratio not 0")
	}
}
