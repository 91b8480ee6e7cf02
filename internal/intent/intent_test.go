package intent

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want Intent
	}{
		{"I'd like to book an appointment", Appointment},
		{"Can I SCHEDULE something?", Appointment},
		{"What time do you close?", Hours},
		{"are you open on sunday", Hours},
		{"How much is a cleaning?", Pricing},
		{"what are your fees", Pricing},
		{"Let me speak to a human", Message},
		{"please call me back", Message},
		{"I have a question about my order", General},
		{"", General},
		{"   ", General},
		{"the store reopened", General},
		{"appointments", Appointment},
		{"I booked last week and need to change it", Appointment},
		{"what are your prices", Pricing},
		{"what are your rates", Pricing},
		{"are you closed on holidays", Hours},
		{"any messages for me", Message},
		{"my visit was unscheduled", General},
	}
	for _, tc := range cases {
		if got := Classify(tc.in); got != tc.want {
			t.Fatalf("Classify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClassify_TieBreakOrder(t *testing.T) {
	// appointment beats hours beats pricing beats message
	if got := Classify("what time can I book and how much"); got != Appointment {
		t.Fatalf("expected appointment, got %q", got)
	}
	if got := Classify("how much, and what time do you open"); got != Hours {
		t.Fatalf("expected hours, got %q", got)
	}
	if got := Classify("price? or leave a message"); got != Pricing {
		t.Fatalf("expected pricing, got %q", got)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	in := "Hi, I want to book, what's the price"
	first := Classify(in)
	for i := 0; i < 100; i++ {
		if Classify(in) != first {
			t.Fatalf("classification changed between calls")
		}
	}
}
