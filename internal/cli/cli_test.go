package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/storyflow/pkg/flow"
	"github.com/matzehuels/storyflow/pkg/simulate"
	"github.com/matzehuels/storyflow/pkg/story"
)

const goodStory = `{
  "title": "good",
  "fragments": [
    {"fragment_id": "start", "content": "Lucien wakes.", "character": "Lucien", "reward_besitos": 10,
     "decisions": [{"text": "left", "next_fragment": "left"}, {"text": "right", "next_fragment": "right"}]},
    {"fragment_id": "left", "content": "A garden.", "character": "Diana", "required_besitos": 20, "decisions": []},
    {"fragment_id": "right", "content": "A vault.", "character": "Diana", "required_role": "vip", "decisions": []}
  ]
}`

const brokenStory = `{
  "title": "broken",
  "fragments": [
    {"fragment_id": "start", "content": "hi", "decisions": [{"text": "go", "next_fragment": "gone"}]},
    {"fragment_id": "island", "content": "nobody comes here", "decisions": []}
  ]
}`

func writeStory(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "story.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// runCLI executes the root command with args and returns what the command
// wrote as machine output (JSON, DOT on stdout).
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	prev := stdout
	stdout = io.Discard
	t.Cleanup(func() { stdout = prev })

	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.out = &out
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := runCLI(t, "validate", "--json", writeStory(t, goodStory))
	if err != nil {
		t.Fatalf("validate good story: %v", err)
	}
	var res flow.ValidationResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if !res.IsValid || res.Stats.TotalFragments != 3 {
		t.Errorf("result = %+v", res)
	}

	out, err = runCLI(t, "validate", "--json", writeStory(t, brokenStory))
	if !errors.Is(err, ErrInvalidStory) {
		t.Fatalf("err = %v, want ErrInvalidStory", err)
	}
	res = flow.ValidationResult{}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Stats.BrokenConnections != 1 || res.Stats.OrphanedFragments != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestValidateMissingFile(t *testing.T) {
	_, err := runCLI(t, "validate", filepath.Join(t.TempDir(), "nope.json"))
	if err == nil || errors.Is(err, ErrInvalidStory) {
		t.Errorf("err = %v, want a load error", err)
	}
}

func TestLimitFlagsPerCommand(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	tests := []struct {
		command string
		paths   bool
		cycles  bool
	}{
		{"validate", false, true},
		{"analyze", true, false},
		{"paths", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			cmd, _, err := root.Find([]string{tt.command})
			if err != nil {
				t.Fatal(err)
			}
			if got := cmd.Flags().Lookup("max-paths") != nil; got != tt.paths {
				t.Errorf("--max-paths registered = %v, want %v", got, tt.paths)
			}
			if got := cmd.Flags().Lookup("max-cycles") != nil; got != tt.cycles {
				t.Errorf("--max-cycles registered = %v, want %v", got, tt.cycles)
			}
		})
	}

	if _, err := runCLI(t, "validate", "--max-cycles", "1", "--json", writeStory(t, goodStory)); err != nil {
		t.Errorf("validate --max-cycles: %v", err)
	}
}

func TestAnalyzeCommand(t *testing.T) {
	out, err := runCLI(t, "analyze", "--json", writeStory(t, goodStory))
	if err != nil {
		t.Fatal(err)
	}
	var rep flow.FlowReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.TerminalFragments != 2 || rep.FragmentsByCharacter[story.CharacterDiana] != 2 {
		t.Errorf("report = %+v", rep)
	}
}

func TestPathsCommand(t *testing.T) {
	out, err := runCLI(t, "paths", "--json", "--simulate", writeStory(t, goodStory))
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Paths flow.PathStats        `json:"paths"`
		Runs  []simulate.PathResult `json:"playthroughs"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got.Paths.TotalPaths != 2 || len(got.Runs) != 2 {
		t.Fatalf("paths = %+v, runs = %d", got.Paths, len(got.Runs))
	}
	// Default reader: 100 besitos, normal role. The vault needs vip.
	var ok int
	for _, r := range got.Runs {
		if r.Success {
			ok++
		}
	}
	if ok != 1 {
		t.Errorf("%d successful playthroughs, want 1", ok)
	}
}

func TestSimulateCommand(t *testing.T) {
	path := writeStory(t, goodStory)

	out, err := runCLI(t, "simulate", "--json", path, "start", "left")
	if err != nil {
		t.Fatal(err)
	}
	var res simulate.PathResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Final.Besitos != 80 {
		t.Errorf("final besitos = %d, want 80", res.Final.Besitos)
	}

	_, err = runCLI(t, "simulate", path, "start", "right")
	if !errors.Is(err, ErrInvalidStory) {
		t.Errorf("blocked path: err = %v", err)
	}
	if _, err := runCLI(t, "simulate", "--role", "vip", path, "start", "right"); err != nil {
		t.Errorf("vip path: %v", err)
	}
	if _, err := runCLI(t, "simulate", "--role", "admin", path, "start"); err == nil {
		t.Error("unknown role accepted")
	}
}

func TestNewFragmentCommand(t *testing.T) {
	out, err := runCLI(t, "new-fragment", "--id", "garden", "--character", "Diana", "--role", "premium")
	if err != nil {
		t.Fatal(err)
	}
	var f story.Fragment
	if err := json.Unmarshal([]byte(out), &f); err != nil {
		t.Fatal(err)
	}
	if f.ID != "garden" || f.Character != story.CharacterDiana || f.RequiredRole != story.RolePremium || f.Level != 1 {
		t.Errorf("fragment = %+v", f)
	}

	out, err = runCLI(t, "new-fragment")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"fragment_id": "fragment_`) {
		t.Errorf("generated id missing:\n%s", out)
	}
}

func TestCachePathUsesConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")
	cacheDir := filepath.Join(dir, "reports")
	if err := os.WriteFile(cfg, []byte("[cache]\ndir = \""+filepath.ToSlash(cacheDir)+"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := runCLI(t, "--config", cfg, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != filepath.ToSlash(cacheDir) {
		t.Errorf("cache path = %q, want %q", out, cacheDir)
	}
}

func TestExplicitConfigMustExist(t *testing.T) {
	_, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "cache", "path")
	if err == nil {
		t.Error("missing --config file accepted")
	}
}

func TestServerConfigFlagsOverrideFile(t *testing.T) {
	c := New(io.Discard, LogInfo)
	c.Config.Server.Addr = ":7000"
	c.Config.Server.StoriesDir = "/srv/stories"
	c.Config.Preview.StartBesitos = 5

	cfg := c.serverConfig(serveOpts{addr: ":9000", corsOrigins: []string{"http://localhost:5173"}})
	if cfg.Addr != ":9000" || cfg.StoriesDir != "/srv/stories" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.Preview.Besitos != 5 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestCompletionCommand(t *testing.T) {
	out, err := runCLI(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "storyflow") {
		t.Error("bash completion does not mention storyflow")
	}
	if _, err := runCLI(t, "completion", "tcsh"); err == nil {
		t.Error("unsupported shell accepted")
	}
}
