package extract

import "testing"

func bold(text string) Paragraph {
	return Paragraph{Runs: []Run{{Text: text, Bold: true}}}
}

func TestSOPClassifier(t *testing.T) {
	c := NewSOPClassifier()
	tests := []struct {
		name string
		p    Paragraph
		want bool
	}{
		{"bold title", bold("Vacation Policy"), true},
		{"bold uppercase single word", bold("OVERVIEW"), true},
		{"bold single lowercase word", bold("Overview"), false},
		{"generic label", bold("Steps:"), false},
		{"owner prefix", bold("Owner: Payroll Team"), false},
		{"dialogue", bold("Hi [Name], this is Sam"), false},
		{"not bold", Paragraph{Runs: []Run{{Text: "Vacation Policy"}}}, false},
		{"heading style", Paragraph{Runs: []Run{{Text: "steps"}}, Style: "Heading2"}, true},
		{"empty", bold("   "), false},
		{"too long", bold(longTitle()), false},
		{"mixed runs", Paragraph{Runs: []Run{{Text: "Leave ", Bold: true}, {Text: "Policy"}}}, false},
		{"whitespace run ignored", Paragraph{Runs: []Run{{Text: "Leave Policy", Bold: true}, {Text: " "}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsHeading(tt.p); got != tt.want {
				t.Errorf("IsHeading(%q) = %v, want %v", tt.p.Text(), got, tt.want)
			}
		})
	}
}

func longTitle() string {
	s := ""
	for len(s) <= maxHeadingLength {
		s += "Long Title "
	}
	return s
}

func TestTextClassifier(t *testing.T) {
	c := TextClassifier{}
	tests := []struct {
		line string
		want bool
	}{
		{"# Expense Policy", true},
		{"###", false},
		{"REFUND PROCEDURE", true},
		{"Refund procedure", false},
		{"2024-01-01", false},
		{"A sentence that is long enough to be ordinary body text, even if it has CAPS.", false},
	}
	for _, tt := range tests {
		p := Paragraph{Runs: []Run{{Text: tt.line}}}
		if got := c.IsHeading(p); got != tt.want {
			t.Errorf("IsHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestHeadingText(t *testing.T) {
	if got := headingText("## Travel "); got != "Travel" {
		t.Errorf("headingText = %q", got)
	}
}
