package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestNewRootCmdRegistersSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	if cmd.Use != "studyforge" {
		t.Fatalf("Use = %q, want studyforge", cmd.Use)
	}
	want := map[string]bool{"serve": false, "generate": false, "migrate": false, "version": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestGenerateRequiresIDs(t *testing.T) {
	cmd := NewGenerateCmd()
	for _, name := range []string{"preference-id", "user-id"} {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			t.Fatalf("--%s flag not found", name)
		}
		if _, ok := flag.Annotations[cobra.BashCompOneRequiredFlag]; !ok {
			t.Errorf("--%s should be required", name)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3", "abc123")
	t.Cleanup(func() { SetVersion("dev", "none") })

	var out bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)
	if !strings.Contains(out.String(), "1.2.3") || !strings.Contains(out.String(), "abc123") {
		t.Fatalf("unexpected version output %q", out.String())
	}
}
