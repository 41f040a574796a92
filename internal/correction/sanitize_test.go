package correction

import "testing"

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		original string
		want     string
	}{
		{
			name:     "clean text passes through",
			in:       "Hello world",
			original: "helo wrld",
			want:     "Hello world",
		},
		{
			name:     "truncates at echoed context marker",
			in:       "Hello world\nRecent context:\nfoo",
			original: "orig",
			want:     "Hello world",
		},
		{
			name:     "truncates at dictionary marker",
			in:       "Result line\nUser dictionary terms: a, b",
			original: "orig",
			want:     "Result line",
		},
		{
			name:     "truncates at chinese marker",
			in:       "结果文本\n最近上下文：\n- 旧的",
			original: "orig",
			want:     "结果文本",
		},
		{
			name:     "strips code fence",
			in:       "```\nFenced output\n```",
			original: "orig",
			want:     "Fenced output",
		},
		{
			name:     "strips corrected label",
			in:       "Corrected text: the real output",
			original: "orig",
			want:     "the real output",
		},
		{
			name:     "strips chinese label",
			in:       "修正后文本：真正的输出",
			original: "orig",
			want:     "真正的输出",
		},
		{
			name:     "empty after cleaning falls back",
			in:       "Recent context:\neverything echoed",
			original: "the original words",
			want:     "the original words",
		},
		{
			name:     "marker mid-line does not truncate",
			in:       "talking about Recent context: as a phrase",
			original: "orig",
			want:     "talking about Recent context: as a phrase",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Sanitize(tc.in, tc.original); got != tc.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
