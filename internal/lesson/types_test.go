package lesson

import "testing"

func TestLesson_Helpers(t *testing.T) {
	l := &Lesson{
		ID: "nn",
		Segments: []Segment{
			{ID: "intro", Type: SegmentLecture},
			{ID: "q1", Type: SegmentQuiz, Options: []Option{{Key: "A", Text: "a"}, {Key: "B", Text: "b"}}, Answer: "B"},
		},
	}

	if l.LastIndex() != 1 {
		t.Errorf("LastIndex() = %d, want 1", l.LastIndex())
	}
	if (&Lesson{}).LastIndex() != -1 {
		t.Error("LastIndex() of empty lesson should be -1")
	}

	seg, idx, ok := l.SegmentByID("q1")
	if !ok || idx != 1 {
		t.Fatalf("SegmentByID(q1) = %d, %v", idx, ok)
	}
	if !seg.HasOption("A") || seg.HasOption("C") {
		t.Error("HasOption() mismatch")
	}
	if seg.OptionText("B") != "b" {
		t.Errorf("OptionText(B) = %q, want b", seg.OptionText("B"))
	}
	if len(l.Quizzes()) != 1 {
		t.Errorf("Quizzes() = %d, want 1", len(l.Quizzes()))
	}
}

func TestNormalizeOptionKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"B", "B"},
		{"b", "B"},
		{" c ", "C"},
		{"Ｂ", "B"},
		{"ａ", "A"},
	}
	for _, tt := range tests {
		if got := NormalizeOptionKey(tt.in); got != tt.want {
			t.Errorf("NormalizeOptionKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
