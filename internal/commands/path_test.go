package commands

import "testing"

func TestNormalizePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"  ", ""},
		{"/", ""},
		{"숲", "숲"},
		{"/숲/", "숲"},
		{"숲//동굴", "숲/동굴"},
		{" 숲 / 동굴 ", "숲/동굴"},
		{"숲/동굴/샘", "숲/동굴/샘"},
	}
	for _, tc := range cases {
		if got := NormalizePath(tc.in); got != tc.want {
			t.Fatalf("NormalizePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPathParent(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"숲", ""},
		{"숲/동굴", "숲"},
		{"숲/동굴/샘", "숲/동굴"},
	}
	for _, tc := range cases {
		if got := PathParent(tc.in); got != tc.want {
			t.Fatalf("PathParent(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPathLast(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"숲", "숲"},
		{"숲/동굴", "동굴"},
		{"/숲/동굴/", "동굴"},
	}
	for _, tc := range cases {
		if got := PathLast(tc.in); got != tc.want {
			t.Fatalf("PathLast(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildUserLabel(t *testing.T) {
	cases := []struct {
		name     string
		handle   string
		nickname string
		mode     string
		want     string
	}{
		{"hidden with nickname", "alice", "앨리스", "hidden", "앨리스"},
		{"hidden without nickname", "alice", "", "hidden", "alice"},
		{"parens with nickname", "alice", "앨리스", "parens", "앨리스(@alice)"},
		{"parens without nickname", "alice", "", "parens", "@alice"},
		{"replace with nickname", "alice", "앨리스", "replace", "앨리스"},
		{"replace without nickname", "alice", "", "replace", "alice"},
		{"whitespace nickname", "alice", "  ", "hidden", "alice"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BuildUserLabel(tc.handle, tc.nickname, tc.mode); got != tc.want {
				t.Fatalf("BuildUserLabel = %q, want %q", got, tc.want)
			}
		})
	}
}
