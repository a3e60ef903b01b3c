package dates

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		parsed bool
	}{
		{in: "June 28, 2025", want: "2025-06-28", parsed: true},
		{in: "Jun 28 2025", want: "2025-06-28", parsed: true},
		{in: "Jun. 28th, 2025", want: "2025-06-28", parsed: true},
		{in: "28 June 2025", want: "2025-06-28", parsed: true},
		{in: "2025-06-28", want: "2025-06-28", parsed: true},
		{in: "06/28/2025", want: "2025-06-28", parsed: true},
		{in: "28/06/2025", want: "2025-06-28", parsed: true},
		{in: "05/06/2025", want: "2025-05-06", parsed: true},
		{in: "6-28-25", want: "2025-06-28", parsed: true},
		{in: "Sept 3, 2024", want: "2024-09-03", parsed: true},
		{in: "Smarch 40, 2025", want: "Smarch 40, 2025", parsed: false},
	}
	for _, tc := range cases {
		got, ok := Normalize(tc.in)
		if ok != tc.parsed || got != tc.want {
			t.Fatalf("Normalize(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.parsed)
		}
	}
}
