package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestWindowFlagsOptions(t *testing.T) {
	w := windowFlags{granularity: "yearly", from: "2024-01-01", to: "2025-01-01"}
	opts, err := w.options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Type != "yearly" || opts.From == nil || opts.To == nil || opts.From.Year() != 2024 {
		t.Fatalf("unexpected options %+v", opts)
	}

	if _, err := (&windowFlags{from: "01/02/2024"}).options(); err == nil {
		t.Fatal("malformed --from should fail")
	}
	if _, err := (&windowFlags{to: "tomorrow"}).options(); err == nil {
		t.Fatal("malformed --to should fail")
	}
}

func TestVersionCommandSkipsConfig(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "version: dev") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"serve": false, "report": false, "export": false, "version": false}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("command %s not registered", name)
		}
	}
}
