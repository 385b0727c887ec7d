package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"yliproxy/internal/converter"
	"yliproxy/internal/startup"
	"yliproxy/internal/store"
)

type cliTestEnv struct {
	config *startup.Config
	ctx    *commandContext
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	cfg := &startup.Config{
		DataPath:     base,
		PublicURL:    "https://media.example.com",
		FFmpegBin:    "ffmpeg-not-installed",
		DownloadDir:  filepath.Join(base, "downloads"),
		ConvertedDir: filepath.Join(base, "converted"),
		ThumbnailDir: filepath.Join(base, "converted", "thumbs"),
	}

	ctx := newCommandContext()
	ctx.loadConfig = func() (*startup.Config, error) { return cfg, nil }
	return &cliTestEnv{config: cfg, ctx: ctx}
}

func (e *cliTestEnv) writeArtifact(t *testing.T, id string, created time.Time) {
	t.Helper()
	if err := os.MkdirAll(e.config.ConvertedDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(e.config.ConvertedDir, id+".mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, created, created); err != nil {
		t.Fatal(err)
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand(e.ctx)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

func TestConvertCachedURL(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeArtifact(t, "clip", time.Now())

	stdout, _, err := env.run(t, "convert", "https://cdn.example.com/a/clip.webm")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if stdout != "https://media.example.com/clip.mp4\n" {
		t.Errorf("stdout = %q, want bare URL", stdout)
	}
}

func TestConvertLocalFileCached(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeArtifact(t, "holiday", time.Now())

	src := filepath.Join(t.TempDir(), "holiday.mov")
	if err := os.WriteFile(src, []byte("movie"), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := env.run(t, "convert", src)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if strings.TrimSpace(stdout) != "https://media.example.com/holiday.mp4" {
		t.Errorf("stdout = %q", stdout)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("local source was removed: %v", err)
	}
}

func TestConvertReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeArtifact(t, "ok", time.Now())

	stdout, stderr, err := env.run(t, "convert", "https://x.example.com/dir/", "https://x.example.com/ok.mp4")
	if err == nil {
		t.Fatal("expected error when a conversion fails")
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("error = %v", err)
	}
	if !strings.Contains(stderr, "https://x.example.com/dir/") {
		t.Errorf("stderr = %q, want failing reference", stderr)
	}
	if stdout != "https://media.example.com/ok.mp4\n" {
		t.Errorf("stdout = %q, want the successful URL only", stdout)
	}
}

func TestConvertRequiresArgs(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := env.run(t, "convert"); err == nil {
		t.Error("expected error without arguments")
	}
}

func TestConvertRespectsLock(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeArtifact(t, "clip", time.Now())

	lock, err := store.AcquireLock(env.config.DataPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lock.Release() }()

	_, _, err = env.run(t, "convert", "https://cdn.example.com/clip.mp4")
	if !errors.Is(err, store.ErrLocked) {
		t.Errorf("err = %v, want ErrLocked", err)
	}
	if err != nil && !strings.Contains(err.Error(), "/api/convert") {
		t.Errorf("err = %v, want a hint about the running server", err)
	}
}

func TestConvertHelpMentionsLock(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := env.run(t, "convert", "--help")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"locks DATA_PATH", "yliproxy server", "POST /api/convert"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help missing %q:\n%s", want, stdout)
		}
	}
}

func TestListBare(t *testing.T) {
	env := setupCLITestEnv(t)
	now := time.Now()
	env.writeArtifact(t, "older", now.Add(-time.Hour))
	env.writeArtifact(t, "newer", now)

	stdout, _, err := env.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := "https://media.example.com/newer.mp4\nhttps://media.example.com/older.mp4\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := env.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := env.run(t, "--log-level", "loud", "list"); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestPrintResult(t *testing.T) {
	res := converter.Result{ID: "clip", URL: "https://media.example.com/clip.mp4", Cached: true}

	var bare bytes.Buffer
	printResult(&bare, "https://x/clip.webm", res, false)
	if bare.String() != res.URL+"\n" {
		t.Errorf("bare = %q", bare.String())
	}

	var decorated bytes.Buffer
	printResult(&decorated, "https://x/clip.webm", res, true)
	for _, want := range []string{"cached", "https://x/clip.webm", res.URL} {
		if !strings.Contains(decorated.String(), want) {
			t.Errorf("decorated output %q missing %q", decorated.String(), want)
		}
	}
}

func TestPrintTable(t *testing.T) {
	st := store.New(t.TempDir(), t.TempDir(), "https://media.example.com")
	artifacts := []store.Artifact{
		{ID: "clip", Filename: "clip.mp4", CreatedAt: time.Now(), Size: 2048, HasThumbnail: true},
	}

	var buf bytes.Buffer
	if err := printTable(&buf, st, artifacts); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"https://media.example.com/clip.mp4", "2.0 KiB", "yes"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := printTable(&buf, st, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No artifacts") {
		t.Errorf("empty table = %q", buf.String())
	}
}

func TestIsTerminalBuffer(t *testing.T) {
	if isTerminal(&bytes.Buffer{}) {
		t.Error("buffer reported as terminal")
	}
}
