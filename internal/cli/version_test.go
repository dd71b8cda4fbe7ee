package cli

import (
	"bytes"
	"testing"

	"dial-chat/internal/version"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.String() != "dial-chat "+version.Version+"\n" {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
