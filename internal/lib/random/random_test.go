package random

import "testing"

func TestNewHexString(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		wantLen int
	}{
		{
			name:    "NonceSize",
			size:    16,
			wantLen: 32,
		},
		{
			name:    "Empty",
			size:    0,
			wantLen: 0,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewHexString(tc.size)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(got) != tc.wantLen {
				t.Errorf("unexpected length, want: %d, got: %d", tc.wantLen, len(got))
			}
		})
	}
}

func TestNewHexStringUnique(t *testing.T) {
	a, err := NewHexString(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b, err := NewHexString(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a == b {
		t.Errorf("expected distinct values, got %q twice", a)
	}
}
