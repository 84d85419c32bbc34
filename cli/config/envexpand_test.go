package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("SEAM_SET", "value")
	t.Setenv("SEAM_EMPTY", "")

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"set variable", "key: ${SEAM_SET}", "key: value"},
		{"unset variable", "key: ${SEAM_UNSET_XYZ}", "key: "},
		{"unset with default", "key: ${SEAM_UNSET_XYZ:-fallback}", "key: fallback"},
		{"empty uses default", "key: ${SEAM_EMPTY:-fallback}", "key: fallback"},
		{"set ignores default", "key: ${SEAM_SET:-fallback}", "key: value"},
		{"multiple expansions", "${SEAM_SET}/${SEAM_SET}", "value/value"},
		{"no pattern", "plain text $SEAM_SET", "plain text $SEAM_SET"},
		{"default with url", "url: ${SEAM_UNSET_XYZ:-https://example.com}", "url: https://example.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExpandEnv(tc.input); got != tc.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
