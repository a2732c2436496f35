package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"slidecue/internal/runstore"
	"slidecue/internal/testsupport"
)

func seedRun(t *testing.T, env *cliTestEnv) *runstore.Run {
	t.Helper()
	store := testsupport.MustOpenStore(t, env.cfg)
	ctx := context.Background()

	run, err := store.Begin(ctx, "/videos/week1.mp4", "/decks/week1.pdf")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	run.Status = runstore.StatusCompleted
	run.PageCount = 2
	run.MergedPath = "/out/week1_merged.srt"
	run.FinishedAt = run.CreatedAt.Add(90 * time.Second)
	run.Transitions = []runstore.Transition{
		{Ordinal: 1, SlideNumber: 1, FrameNumber: 30, Timestamp: time.Second, Reason: "definite_hash"},
		{Ordinal: 2, SlideNumber: 2, FrameNumber: 1800, Timestamp: time.Minute, Reason: "text_corroborated"},
	}
	if err := store.Record(ctx, run); err != nil {
		t.Fatalf("Record: %v", err)
	}
	return run
}

func TestRunsListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	run := seedRun(t, env)

	out, _, err := runCLI(t, []string{"runs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, run.ID)
	requireContains(t, out, "/videos/week1.mp4")
	requireContains(t, out, string(runstore.StatusCompleted))

	out, _, err = runCLI(t, []string{"runs", "show", run.ID}, env.configPath)
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	requireContains(t, out, "/out/week1_merged.srt")
	requireContains(t, out, "0:01:00.000")
	requireContains(t, out, "text_corroborated")

	out, _, err = runCLI(t, []string{"runs", "show", run.ID, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("runs show --json: %v", err)
	}
	var decoded runstore.Run
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if decoded.ID != run.ID || len(decoded.Transitions) != 2 {
		t.Fatalf("unexpected run: %+v", decoded)
	}
}

func TestRunsListEmptyAndUnknownRun(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"runs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	if _, _, err := runCLI(t, []string{"runs", "show", "missing"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown run")
	}
}
