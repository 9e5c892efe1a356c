package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Kowayz/ytb-story-horro-gen/internal/history"
)

func TestWriteRuns(t *testing.T) {
	started := time.Date(2024, 10, 31, 23, 0, 0, 0, time.UTC)
	runs := []history.Run{
		{RunID: "r2", Stage: "DONE", Title: "The Midnight Visitor", DurationSec: 61.4, PublishURL: "https://www.youtube.com/watch?v=x", StartedAt: started},
		{RunID: "r1", Stage: "ERROR", FailedStage: "ASSEMBLING", Title: "Footsteps", StartedAt: started},
	}

	var buf bytes.Buffer
	if err := writeRuns(&buf, runs); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "RUN") {
		t.Errorf("missing header: %q", lines[0])
	}
	for _, want := range []string{"r2", "DONE", "1m1s", "watch?v=x"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("line %q missing %q", lines[1], want)
		}
	}
	if !strings.Contains(lines[2], "ERROR (ASSEMBLING)") {
		t.Errorf("failed run should name its stage: %q", lines[2])
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"generate", "story", "serve", "runs", "publish", "version"}
	for _, name := range want {
		c, _, err := rootCmd.Find([]string{name})
		if err != nil || c.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
	for _, flag := range []string{"id", "max-scenes", "reuse", "publish"} {
		if generateCmd.Flags().Lookup(flag) == nil {
			t.Errorf("generate is missing --%s", flag)
		}
	}
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("root is missing --config")
	}
}
