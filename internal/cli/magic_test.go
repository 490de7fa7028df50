package cli

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/matzehuels/tikzcell/pkg/errors"
)

func TestMagicCommand(t *testing.T) {
	tc := newTestCLI(t, "")
	tc.stdin = strings.NewReader(circle)

	if err := tc.run("magic", "--line", `-s 2 -x '\usepackage{amsmath}'`); err != nil {
		t.Fatalf("magic error: %v", err)
	}

	var got struct {
		Data     map[string]string         `json:"data"`
		Metadata map[string]map[string]int `json:"metadata"`
	}
	if err := json.Unmarshal(tc.out.Bytes(), &got); err != nil {
		t.Fatalf("stdout is not display data JSON: %v (%q)", err, tc.out.String())
	}
	png, err := base64.StdEncoding.DecodeString(got.Data["image/png"])
	if err != nil || string(png) != string(tc.exe.PNG) {
		t.Errorf("image/png should carry the rendered PNG (err %v)", err)
	}
	if got.Metadata["image/png"]["width"] != 40 {
		t.Errorf("metadata = %v, want width 40", got.Metadata)
	}

	calls := tc.exe.Calls()
	if calls[1].Args[1] != "600" {
		t.Errorf("density = %s, want 600", calls[1].Args[1])
	}
	tc.assertNoWorkspaces(t)
}

func TestMagicCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		cell string
		line string
		code errors.Code
	}{
		{"unknown option", circle, "--bogus", errors.ErrCodeInvalidInput},
		{"stray argument", circle, "-s 2 extra", errors.ErrCodeInvalidInput},
		{"unbalanced quote", circle, `-x 'oops`, errors.ErrCodeInvalidInput},
		{"empty cell", "  ", "", errors.ErrCodeEmptyContent},
		{"bad border", circle, "-b wide", errors.ErrCodeInvalidBorder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestCLI(t, "")
			tc.stdin = strings.NewReader(tt.cell)
			err := tc.run("magic", "--line", tt.line)
			if !errors.Is(err, tt.code) {
				t.Errorf("magic error = %v, want %s", err, tt.code)
			}
			if tc.out.Len() != 0 {
				t.Errorf("stdout should stay empty on error, got %q", tc.out.String())
			}
		})
	}
}
