package cli

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoadConfigWithPath_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voicebot", "config.yaml")
	cfg, err := LoadConfigWithPath("voicebot", path)
	if err != nil {
		t.Fatalf("LoadConfigWithPath() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not created: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q; want %q", cfg.Path(), path)
	}
	if cfg.Dir() != filepath.Dir(path) {
		t.Errorf("Dir() = %q; want %q", cfg.Dir(), filepath.Dir(path))
	}
	if len(cfg.Contexts) != 0 {
		t.Errorf("Contexts = %v; want empty", cfg.Contexts)
	}
}

func TestConfig_Contexts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadConfigWithPath("voicebot", path)
	if err != nil {
		t.Fatalf("LoadConfigWithPath() error = %v", err)
	}

	local := &Context{Endpoint: "ws://localhost:8000/ws"}
	local.SetExtra("drain_delay", "500ms")
	if err := cfg.AddContext("local", local); err != nil {
		t.Fatalf("AddContext() error = %v", err)
	}
	if err := cfg.AddContext("lab", &Context{Endpoint: "wss://lab.example.com/ws"}); err != nil {
		t.Fatalf("AddContext() error = %v", err)
	}
	if err := cfg.UseContext("local"); err != nil {
		t.Fatalf("UseContext() error = %v", err)
	}
	if err := cfg.UseContext("missing"); err == nil {
		t.Error("UseContext(missing) = nil; want error")
	}

	reloaded, err := LoadConfigWithPath("voicebot", path)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if got := reloaded.ListContexts(); !slices.Equal(got, []string{"lab", "local"}) {
		t.Errorf("ListContexts() = %v; want [lab local]", got)
	}
	ctx, err := reloaded.ResolveContext("")
	if err != nil {
		t.Fatalf("ResolveContext() error = %v", err)
	}
	if ctx.Name != "local" || ctx.Endpoint != "ws://localhost:8000/ws" {
		t.Errorf("current = %+v; want local", ctx)
	}
	if got := ctx.GetExtra("drain_delay"); got != "500ms" {
		t.Errorf("GetExtra(drain_delay) = %q; want 500ms", got)
	}

	if err := reloaded.DeleteContext("local"); err != nil {
		t.Fatalf("DeleteContext() error = %v", err)
	}
	if reloaded.CurrentContext != "" {
		t.Errorf("CurrentContext = %q after deleting it; want empty", reloaded.CurrentContext)
	}
	if _, err := reloaded.GetCurrentContext(); err == nil {
		t.Error("GetCurrentContext() = nil error; want error")
	}
	if err := reloaded.DeleteContext("local"); err == nil {
		t.Error("DeleteContext(local) twice = nil; want error")
	}
}

func TestLoadConfigWithPath_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("contexts: [\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigWithPath("voicebot", path); err == nil {
		t.Error("LoadConfigWithPath(invalid) = nil error; want error")
	}
}

func TestContext_Extra(t *testing.T) {
	ctx := &Context{Name: "test"}
	if got := ctx.GetExtra("key"); got != "" {
		t.Errorf("GetExtra on nil map = %q; want empty", got)
	}
	ctx.SetExtra("reconnect_delay", "2s")
	ctx.SetExtra("input_device", "3")
	ctx.SetExtra("bad_int", "x")

	d, ok, err := ctx.ExtraDuration("reconnect_delay")
	if err != nil || !ok || d != 2*time.Second {
		t.Errorf("ExtraDuration() = %v, %v, %v; want 2s, true, nil", d, ok, err)
	}
	if _, ok, err := ctx.ExtraDuration("missing"); ok || err != nil {
		t.Errorf("ExtraDuration(missing) = %v, %v; want false, nil", ok, err)
	}
	n, ok, err := ctx.ExtraInt("input_device")
	if err != nil || !ok || n != 3 {
		t.Errorf("ExtraInt() = %v, %v, %v; want 3, true, nil", n, ok, err)
	}
	if _, _, err := ctx.ExtraInt("bad_int"); err == nil {
		t.Error("ExtraInt(bad_int) = nil error; want error")
	}

	ctx.SetExtra("input_device", "")
	if _, ok := ctx.Extra["input_device"]; ok {
		t.Error("SetExtra with empty value kept the key")
	}
}

func TestLoadConfigIfExists(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if cfg := LoadConfigIfExists("voicebot"); cfg != nil {
		t.Fatalf("LoadConfigIfExists() = %+v; want nil for missing file", cfg)
	}
	if _, err := os.Stat(filepath.Join(home, DefaultBaseDir)); !os.IsNotExist(err) {
		t.Errorf("LoadConfigIfExists created %s", DefaultBaseDir)
	}

	cfg, err := LoadConfig("voicebot")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if err := cfg.AddContext("local", &Context{Endpoint: "ws://localhost:8000/ws"}); err != nil {
		t.Fatal(err)
	}
	got := LoadConfigIfExists("voicebot")
	if got == nil || got.Contexts["local"] == nil {
		t.Errorf("LoadConfigIfExists() = %+v; want config with context local", got)
	}
}
