package enhance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"astropipe/internal/logging"
	"astropipe/internal/services"
	"astropipe/internal/services/cosmic"
	"astropipe/internal/stage"
)

type recordingConn struct {
	lines []string
	fail  map[string]bool
}

func (c *recordingConn) Connect(context.Context) error { return nil }

func (c *recordingConn) Cmd(_ context.Context, args ...string) error {
	line := strings.Join(args, " ")
	c.lines = append(c.lines, line)
	if c.fail[args[0]] {
		return errors.New("command failed")
	}
	return nil
}

func (c *recordingConn) Log(context.Context, string)                     {}
func (c *recordingConn) UpdateProgress(context.Context, string, float64) {}
func (c *recordingConn) Close() error                                    { return nil }

func testEnv(t *testing.T, workdir string) (*stage.Env, *recordingConn) {
	t.Helper()
	conn := &recordingConn{}
	env := &stage.Env{
		WorkDir:   workdir,
		Conn:      conn,
		Logger:    logging.NewNop(),
		Processed: stage.NewProcessedSet(),
	}
	return env, conn
}

func writeImage(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("image"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSubskyProducesDerivedArtifact(t *testing.T) {
	workdir := t.TempDir()
	writeImage(t, workdir, "m31.fit")

	env, conn := testEnv(t, workdir)
	h := SubskyHandler{Smooth: "0.5"}
	if err := h.Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}

	want := []string{
		"load m31.fit",
		"subsky -rbf -samples=20 -tolerance=1.0 -smooth=0.5",
		"save m31_b0.5.fit",
	}
	if len(conn.lines) != len(want) {
		t.Fatalf("lines = %v, want %v", conn.lines, want)
	}
	for i := range want {
		if conn.lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, conn.lines[i], want[i])
		}
	}
	if !env.Processed.Contains("m31_b0.5.fit") {
		t.Error("derived artifact not recorded as processed")
	}
}

func TestStagesSkipArtifactsProducedThisRun(t *testing.T) {
	workdir := t.TempDir()
	writeImage(t, workdir, "m31.fit")
	writeImage(t, workdir, "m31_b0.5.fit")

	env, conn := testEnv(t, workdir)
	env.Processed.Add("m31_b0.5.fit")

	if err := (SharpenHandler{}).Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, line := range conn.lines {
		if strings.Contains(line, "m31_b0.5.fit") && strings.HasPrefix(line, "load") {
			t.Errorf("fresh artifact reprocessed: %q", line)
		}
	}
	if !env.Processed.Contains("m31_rl.fit") {
		t.Error("sharpened artifact not recorded")
	}
}

func TestSharpenIssuesTwoDeconvolutionPasses(t *testing.T) {
	workdir := t.TempDir()
	writeImage(t, workdir, "ngc7000.fits")

	env, conn := testEnv(t, workdir)
	if err := (SharpenHandler{}).Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}
	joined := strings.Join(conn.lines, "\n")
	first := strings.Index(joined, "rl -gdstep=0.0003 -iters=40 -alpha=3000 -tv")
	second := strings.Index(joined, "rl -gdstep=0.0002 -iters=40 -alpha=3000 -tv")
	if first < 0 || second < 0 || second < first {
		t.Errorf("deconvolution passes wrong or out of order:\n%s", joined)
	}
}

func TestPerFileFailureContinuesWithNextFile(t *testing.T) {
	workdir := t.TempDir()
	writeImage(t, workdir, "a.fit")
	writeImage(t, workdir, "b.fit")

	env, conn := testEnv(t, workdir)
	conn.fail = map[string]bool{"subsky": true}
	var failed []string
	env.OnFileFailure = func(file string, err error) { failed = append(failed, file) }

	if err := (SubskyHandler{Smooth: "0.5"}).Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(failed) != 2 {
		t.Fatalf("failed files = %v, want both inputs", failed)
	}
	loads := 0
	for _, line := range conn.lines {
		if strings.HasPrefix(line, "load ") {
			loads++
		}
	}
	if loads != 2 {
		t.Errorf("loads = %d, want 2 (continue after failure)", loads)
	}
}

func TestGraxpertStretchAndColorCommands(t *testing.T) {
	workdir := t.TempDir()
	writeImage(t, workdir, "m31.fit")

	cases := []struct {
		handler stage.Handler
		want    string
		derived string
	}{
		{GraxpertBackgroundHandler{Smoothing: "0.5"}, "pyscript GraXpert-AI.py -gpu -bge -smoothing 0.5", "m31_gb0.5.fit"},
		{GraxpertDenoiseHandler{Strength: "0.8"}, "pyscript GraXpert-AI.py -gpu -denoise -strength 0.8", "m31_gd0.8.fit"},
		{GraxpertSharpenHandler{Strength: "0.3"}, "pyscript GraXpert-AI.py -gpu -deconv_stellar -strength 0.3", "m31_gs0.3.fit"},
		{ColorCalibrateHandler{}, "pcc", "m31_cc.fit"},
		{ColorCalibrateHandler{Catalog: "gaia"}, "spcc -catalog=gaia", "m31_cc.fit"},
		{StretchHandler{Linked: true}, "autostretch -linked", "m31_st.fit"},
	}
	for _, tc := range cases {
		env, conn := testEnv(t, workdir)
		if err := tc.handler.Execute(context.Background(), env); err != nil {
			t.Fatalf("%s: %v", tc.handler.Request().Label(), err)
		}
		joined := strings.Join(conn.lines, "\n")
		if !strings.Contains(joined, tc.want) {
			t.Errorf("%s: missing %q in:\n%s", tc.handler.Request().Label(), tc.want, joined)
		}
		if !strings.Contains(joined, "save "+tc.derived) {
			t.Errorf("%s: missing save of %q in:\n%s", tc.handler.Request().Label(), tc.derived, joined)
		}
	}
}

// fakeExecutor simulates a Cosmic Clarity run by writing the staged
// input back to the output directory and emitting progress lines.
type fakeExecutor struct {
	inputDir  string
	outputDir string
	calls     int
	fail      bool

	// strayOutput, when set, is an extra file dropped into the output
	// directory alongside the real result.
	strayOutput string
}

func (f *fakeExecutor) Run(_ context.Context, _ string, _ []string, onLine func(string)) error {
	f.calls++
	onLine("Processing: 50.0%")
	onLine("some tool output")
	if f.fail {
		return errors.New("exit status 1")
	}
	inputs, err := os.ReadDir(f.inputDir)
	if err != nil {
		return err
	}
	for _, entry := range inputs {
		data, err := os.ReadFile(filepath.Join(f.inputDir, entry.Name()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(f.outputDir, entry.Name()), data, 0o644); err != nil {
			return err
		}
	}
	if f.strayOutput != "" {
		if err := os.WriteFile(filepath.Join(f.outputDir, f.strayOutput), []byte("stray"), 0o644); err != nil {
			return err
		}
	}
	onLine("100%")
	return nil
}

func cosmicFixture(t *testing.T, tool cosmic.Tool, fail bool) (*cosmic.Client, *fakeExecutor, string) {
	t.Helper()
	suite := t.TempDir()
	inputDir := filepath.Join(suite, "input")
	outputDir := filepath.Join(suite, "output")
	for _, dir := range []string{inputDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	exec := &fakeExecutor{inputDir: inputDir, outputDir: outputDir, fail: fail}
	client := cosmic.New(tool, t.TempDir(),
		cosmic.WithExecutablePath(filepath.Join(suite, "cc")),
		cosmic.WithExecutor(exec))
	return client, exec, inputDir
}

func TestCosmicSharpenMovesOutputUnderDerivedName(t *testing.T) {
	workdir := t.TempDir()
	writeImage(t, workdir, "m31.fit")
	client, exec, inputDir := cosmicFixture(t, cosmic.ToolSharpen, false)

	env, _ := testEnv(t, workdir)
	h := CosmicSharpenHandler{Client: client, Params: cosmic.SharpenParams{Mode: "Stellar Only", StellarAmount: "0.7"}}
	if err := h.Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if exec.calls != 1 {
		t.Fatalf("tool invoked %d times, want 1", exec.calls)
	}

	derived := "m31_sstellaronly-0.7-0-0.fit"
	if _, err := os.Stat(filepath.Join(workdir, derived)); err != nil {
		t.Fatalf("missing derived artifact %s: %v", derived, err)
	}
	if !env.Processed.Contains(derived) {
		t.Error("derived artifact not recorded as processed")
	}
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("input dir not drained: %d entries", len(entries))
	}
}

func TestSecondIdenticalInvocationIssuesNoHostCalls(t *testing.T) {
	workdir := t.TempDir()
	writeImage(t, workdir, "m31.fit")
	writeImage(t, workdir, "m31_b0.5.fit")

	env, conn := testEnv(t, workdir)
	if err := (SubskyHandler{Smooth: "0.5"}).Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(conn.lines) != 0 {
		t.Fatalf("host commands issued for existing artifact: %v", conn.lines)
	}
	if !env.Processed.Contains("m31_b0.5.fit") {
		t.Error("existing artifact not recorded as processed")
	}
}

func TestCosmicRerunSkipsInputsWithExistingOutput(t *testing.T) {
	workdir := t.TempDir()
	writeImage(t, workdir, "m31.fit")
	client, exec, _ := cosmicFixture(t, cosmic.ToolSharpen, false)
	h := CosmicSharpenHandler{Client: client, Params: cosmic.SharpenParams{Mode: "Stellar Only", StellarAmount: "0.7"}}

	env, _ := testEnv(t, workdir)
	if err := h.Execute(context.Background(), env); err != nil {
		t.Fatalf("first run: %v", err)
	}
	rerun, _ := testEnv(t, workdir)
	if err := h.Execute(context.Background(), rerun); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if exec.calls != 1 {
		t.Fatalf("tool invoked %d times across two identical runs, want 1", exec.calls)
	}
}

func TestCosmicStrayOutputDoesNotClobberResult(t *testing.T) {
	workdir := t.TempDir()
	writeImage(t, workdir, "m31.fit")
	client, exec, _ := cosmicFixture(t, cosmic.ToolSharpen, false)
	exec.strayOutput = "zz-leftover.fit"

	env, _ := testEnv(t, workdir)
	h := CosmicSharpenHandler{Client: client, Params: cosmic.SharpenParams{Mode: "Stellar Only", StellarAmount: "0.7"}}
	if err := h.Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(workdir, "m31_sstellaronly-0.7-0-0.fit"))
	if err != nil {
		t.Fatalf("missing derived artifact: %v", err)
	}
	if string(data) != "image" {
		t.Errorf("derived artifact content = %q, want staged input content", data)
	}
	if _, err := os.Stat(filepath.Join(workdir, "zz-leftover.fit")); err == nil {
		t.Error("stray tool output leaked into the working directory")
	}
}

func TestCosmicDenoiseToolFailureIsPerFile(t *testing.T) {
	workdir := t.TempDir()
	writeImage(t, workdir, "a.fit")
	writeImage(t, workdir, "b.fit")
	client, exec, _ := cosmicFixture(t, cosmic.ToolDenoise, true)

	env, _ := testEnv(t, workdir)
	var failed []string
	env.OnFileFailure = func(file string, err error) { failed = append(failed, file) }

	h := CosmicDenoiseHandler{Client: client, Params: cosmic.DenoiseParams{Mode: "full", Strength: "0.6"}}
	if err := h.Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(failed) != 2 {
		t.Fatalf("failed files = %v, want both", failed)
	}
	if exec.calls != 2 {
		t.Errorf("tool invoked %d times, want 2", exec.calls)
	}
}

func TestCosmicMissingConfIsFatalBeforeAnyFileWork(t *testing.T) {
	workdir := t.TempDir()
	writeImage(t, workdir, "m31.fit")

	client := cosmic.New(cosmic.ToolDenoise, t.TempDir())
	env, _ := testEnv(t, workdir)
	h := CosmicDenoiseHandler{Client: client, Params: cosmic.DenoiseParams{Mode: "full"}}

	err := h.Execute(context.Background(), env)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
	if !services.Fatal(err) {
		t.Error("missing conf must be fatal")
	}
	entries, readErr := os.ReadDir(workdir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 1 {
		t.Errorf("workdir mutated before configuration check: %d entries", len(entries))
	}
}

func TestCosmicInvalidModeAbortsStageOnly(t *testing.T) {
	workdir := t.TempDir()
	client, _, _ := cosmicFixture(t, cosmic.ToolSharpen, false)

	env, _ := testEnv(t, workdir)
	h := CosmicSharpenHandler{Client: client, Params: cosmic.SharpenParams{Mode: "bogus"}}
	err := h.Execute(context.Background(), env)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if services.Fatal(err) {
		t.Error("parameter error must not abort the whole run")
	}
}
