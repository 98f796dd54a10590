package preprocess

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"astropipe/internal/logging"
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
		return context.DeadlineExceeded
	}
	return nil
}

func (c *recordingConn) Log(context.Context, string)                     {}
func (c *recordingConn) UpdateProgress(context.Context, string, float64) {}
func (c *recordingConn) Close() error                                    { return nil }

func testEnv(t *testing.T, workdir string) (*stage.Env, *recordingConn) {
	t.Helper()
	conn := &recordingConn{}
	return &stage.Env{
		WorkDir:   workdir,
		Conn:      conn,
		Logger:    logging.NewNop(),
		Processed: stage.NewProcessedSet(),
	}, conn
}

func writeFrame(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("frame"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func defaultOptions() Options {
	return Options{
		Extension:        "fit",
		BackgroundFilter: "100%",
		RoundFilter:      "100%",
		StarsFilter:      "100%",
		WFWHMFilter:      "100%",
		Feather:          "0",
	}
}

func TestCalibrateBuildsMastersAndCalibratesLights(t *testing.T) {
	workdir := t.TempDir()
	writeFrame(t, filepath.Join(workdir, "biases", "bias_001.fit"))
	writeFrame(t, filepath.Join(workdir, "flats", "flat_001.fit"))
	writeFrame(t, filepath.Join(workdir, "darks", "dark_001.fit"))
	writeFrame(t, filepath.Join(workdir, "lights", "light_001.fit"))

	env, conn := testEnv(t, workdir)
	h := CalibrateHandler{Opts: defaultOptions()}
	if err := h.Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}

	joined := strings.Join(conn.lines, "\n")
	for _, want := range []string{
		"convert bias -out=../process",
		"stack bias rej 3 3 -nonorm",
		"calibrate flat -bias=bias_stacked",
		"stack pp_flat rej 3 3 -norm=mul",
		"stack dark rej 3 3 -nonorm",
		"calibrate light -dark=dark_stacked -flat=pp_flat_stacked -cc=dark -cfa -equalize_cfa",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing command %q in:\n%s", want, joined)
		}
	}
}

func TestCalibrateSkipsExistingMasters(t *testing.T) {
	workdir := t.TempDir()
	writeFrame(t, filepath.Join(workdir, "biases", "bias_001.fit"))
	writeFrame(t, filepath.Join(workdir, "lights", "light_001.fit"))
	writeFrame(t, filepath.Join(workdir, "process", "bias_stacked.fit"))

	env, conn := testEnv(t, workdir)
	h := CalibrateHandler{Opts: defaultOptions()}
	if err := h.Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, line := range conn.lines {
		if strings.HasPrefix(line, "convert bias") {
			t.Errorf("bias master rebuilt despite existing stack: %q", line)
		}
	}
}

func TestCalibrateNoCalibrationConvertsOnly(t *testing.T) {
	workdir := t.TempDir()
	writeFrame(t, filepath.Join(workdir, "lights", "light_001.fit"))

	opts := defaultOptions()
	opts.NoCalibration = true
	env, conn := testEnv(t, workdir)
	if err := (CalibrateHandler{Opts: opts}).Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}

	joined := strings.Join(conn.lines, "\n")
	if !strings.Contains(joined, "convert pp_light -out=../process") {
		t.Errorf("expected direct pp_light conversion, got:\n%s", joined)
	}
	if strings.Contains(joined, "calibrate light") {
		t.Errorf("calibration ran despite being disabled:\n%s", joined)
	}
}

func TestCalibrateRejectsMissingSession(t *testing.T) {
	workdir := t.TempDir()
	writeFrame(t, filepath.Join(workdir, "lights", "light_001.fit"))

	opts := defaultOptions()
	opts.Sessions = []string{filepath.Join(workdir, "missing")}
	env, _ := testEnv(t, workdir)
	err := (CalibrateHandler{Opts: opts}).Execute(context.Background(), env)
	if err == nil {
		t.Fatal("expected error for missing session directory")
	}
}

func TestMergeSessionRenumbersFrames(t *testing.T) {
	primary := t.TempDir()
	secondary := t.TempDir()
	for _, name := range []string{"pp_light_00001.fit", "pp_light_00002.fit"} {
		writeFrame(t, filepath.Join(primary, name))
	}
	for _, name := range []string{"pp_light_00001.fit", "pp_light_00002.fit", "pp_light_00003.fit"} {
		writeFrame(t, filepath.Join(secondary, name))
	}

	moved, err := mergeSession(primary, secondary, "fit")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if moved != 3 {
		t.Fatalf("moved = %d, want 3", moved)
	}
	for _, name := range []string{
		"pp_light_00001.fit", "pp_light_00002.fit",
		"pp_light_00003.fit", "pp_light_00004.fit", "pp_light_00005.fit",
	} {
		if _, err := os.Stat(filepath.Join(primary, name)); err != nil {
			t.Errorf("missing merged frame %s: %v", name, err)
		}
	}
	entries, err := os.ReadDir(secondary)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("secondary session still holds %d entries", len(entries))
	}
}

func TestRegisterWithoutPlateSolveRunsTwoPass(t *testing.T) {
	workdir := t.TempDir()
	env, conn := testEnv(t, workdir)
	opts := defaultOptions()
	opts.BackgroundFilter = "90%"

	if err := (RegisterHandler{Opts: opts}).Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}
	joined := strings.Join(conn.lines, "\n")
	if !strings.Contains(joined, "register pp_light -2pass") {
		t.Errorf("missing 2-pass registration:\n%s", joined)
	}
	if !strings.Contains(joined, "seqapplyreg pp_light -filter-bkg=90% -filter-nbstars=100% -filter-round=100% -filter-wfwhm=100% -flat=pp_flat_stacked") {
		t.Errorf("unexpected seqapplyreg line:\n%s", joined)
	}
	if strings.Contains(joined, "-framing=max") {
		t.Errorf("max framing without plate solving:\n%s", joined)
	}
}

func TestRegisterPlateSolvedUsesMaxFraming(t *testing.T) {
	workdir := t.TempDir()
	env, conn := testEnv(t, workdir)
	opts := defaultOptions()
	opts.PlateSolve = true
	opts.DrizzleScale = "2"

	if err := (RegisterHandler{Opts: opts}).Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}
	joined := strings.Join(conn.lines, "\n")
	if strings.Contains(joined, "-2pass") {
		t.Errorf("2-pass registration on a plate-solved sequence:\n%s", joined)
	}
	for _, want := range []string{
		"-framing=max",
		"-kernel=square -drizzle -scale=2 -pixfrac=0.5",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
}

func TestPlateSolveCommand(t *testing.T) {
	workdir := t.TempDir()
	env, conn := testEnv(t, workdir)
	opts := defaultOptions()
	opts.PlateSolve = true
	opts.FocalLength = "540"
	opts.ExtractBackground = true

	if err := (PlateSolveHandler{Opts: opts}).Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}
	joined := strings.Join(conn.lines, "\n")
	if !strings.Contains(joined, "seqplatesolve bkg_pp_light -nocache -catalog=nomad -force -disto=ps_distortion -focal=540") {
		t.Errorf("unexpected seqplatesolve line:\n%s", joined)
	}
}

func TestStackCommandEncodesFilters(t *testing.T) {
	workdir := t.TempDir()
	env, conn := testEnv(t, workdir)
	opts := defaultOptions()
	opts.Feather = "5"
	opts.DrizzleScale = "2"

	if err := (StackHandler{Opts: opts}).Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}
	joined := strings.Join(conn.lines, "\n")
	if !strings.Contains(joined, "stack r_pp_light rej 3 3 -norm=addscale -output_norm -rgb_equal -maximize -filter-included -weight=wfwhm -feather=5") {
		t.Errorf("unexpected stack line:\n%s", joined)
	}
	if !strings.Contains(joined, "-out=../_b100%-s100%-r100%-w100%-z2-f5-$LIVETIME:%d$s") {
		t.Errorf("unexpected output name:\n%s", joined)
	}
}

func TestStackMarkerIsEmpty(t *testing.T) {
	if !(StackHandler{Opts: defaultOptions()}).Marker().Empty() {
		t.Fatal("stack must not carry a completion marker")
	}
}

func TestRegisterMarkerIsEmpty(t *testing.T) {
	if !(RegisterHandler{Opts: defaultOptions()}).Marker().Empty() {
		t.Fatal("register must not carry a completion marker")
	}
}

func TestPlateSolveMarkerIsRegisteredSequence(t *testing.T) {
	marker := (PlateSolveHandler{Opts: defaultOptions()}).Marker()
	want := filepath.Join("process", "r_pp_light_.seq")
	if len(marker.Candidates) != 1 || marker.Candidates[0] != want {
		t.Fatalf("marker = %v, want %s", marker.Candidates, want)
	}
}

func TestHandlersRespectOptions(t *testing.T) {
	opts := defaultOptions()
	opts.ExtractBackground = true
	opts.PlateSolve = true

	kinds := make([]stage.Kind, 0, 5)
	for _, h := range stage.Sort(Handlers(opts)) {
		kinds = append(kinds, h.Request().Kind)
	}
	want := []stage.Kind{
		stage.KindCalibrate, stage.KindBackgroundExtract,
		stage.KindPlateSolve, stage.KindRegister, stage.KindStack,
	}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
}
