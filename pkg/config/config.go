package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// RuntimeConfig holds derived runtime values that other packages may query
// at runtime (populated during startup after merging env+file).
type RuntimeConfig struct {
	BackendKeys map[string]struct{}
	SigningKeys map[string]struct{}
}

var (
	runtimeMu  sync.RWMutex
	runtimeCfg *RuntimeConfig
)

// SetRuntime sets the canonical runtime config used by the running server.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtimeCfg = rc
}

// GetBackendKeys returns a copy of configured backend keys.
func GetBackendKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	out := map[string]struct{}{}
	if runtimeCfg == nil || runtimeCfg.BackendKeys == nil {
		return out
	}
	for k := range runtimeCfg.BackendKeys {
		out[k] = struct{}{}
	}
	return out
}

// GetSigningKeys returns a copy of configured signing keys. Signed user
// identity headers are verified against every key in this set.
func GetSigningKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	out := map[string]struct{}{}
	if runtimeCfg == nil || runtimeCfg.SigningKeys == nil {
		return out
	}
	for k := range runtimeCfg.SigningKeys {
		out[k] = struct{}{}
	}
	return out
}

// Addr returns the listen address from server.address and server.port.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if c.Server.Port > 0 {
		host := addr
		if h, _, err := net.SplitHostPort(addr); err == nil {
			host = h
		}
		return net.JoinHostPort(host, strconv.Itoa(c.Server.Port))
	}
	if addr == "" {
		return ":8080"
	}
	return addr
}

// Load parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &c, nil
}

// ParseCommandFlags parses process flags and reports which were set
// explicitly so callers can apply flag-wins precedence.
func ParseCommandFlags() (addr string, dbPath string, cfgPath string, setFlags map[string]bool) {
	a := flag.String("addr", ":8080", "listen address")
	d := flag.String("db", "./data", "path to message store directory")
	c := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *a, *d, *c, setFlags
}

// ResolveConfigPath picks the config path: explicit flag wins, then
// COURIER_CONFIG, then ./courier.yaml when present.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet && flagPath != "" {
		return flagPath
	}
	if p := strings.TrimSpace(os.Getenv("COURIER_CONFIG")); p != "" {
		return p
	}
	if _, err := os.Stat("./courier.yaml"); err == nil {
		return "./courier.yaml"
	}
	return flagPath
}

// Effective is the merged configuration the server actually runs with,
// plus where its address and db path came from.
type Effective struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // "flags", "config", or "env"
}

// ResolveEffective merges the config file, env overrides and explicit
// flags into the configuration the process runs with. Explicitly set
// flags win over everything; env overrides win over the file.
func ResolveEffective(addr, db, cfgPath string, setFlags map[string]bool) (Effective, error) {
	path := ResolveConfigPath(cfgPath, setFlags["config"])
	cfg, envUsed, err := LoadEffective(path)
	if err != nil {
		return Effective{}, err
	}
	eff := Effective{Config: cfg, Addr: cfg.Addr(), DBPath: cfg.Server.DBPath, Source: "config"}
	if envUsed {
		eff.Source = "env"
		eff.Addr = cfg.Addr()
		eff.DBPath = cfg.Server.DBPath
	}
	if setFlags["addr"] {
		eff.Addr = addr
		eff.Source = "flags"
	}
	if setFlags["db"] || eff.DBPath == "" {
		eff.DBPath = db
		if setFlags["db"] {
			eff.Source = "flags"
		}
	}
	return eff, nil
}

// LoadEffective loads the config file (when present) and applies env
// overrides on top. It returns the merged config and whether any env
// override was used.
func LoadEffective(path string) (*Config, bool, error) {
	cfg := &Config{}
	if path != "" {
		if c, err := Load(path); err == nil {
			cfg = c
		} else if !os.IsNotExist(err) {
			return nil, false, err
		}
	}
	envUsed := applyEnvOverrides(cfg)
	return cfg, envUsed, nil
}

// applyEnvOverrides mutates cfg from COURIER_* environment variables and
// reports whether any were present.
func applyEnvOverrides(cfg *Config) bool {
	used := false
	if v := os.Getenv("COURIER_SERVER_ADDR"); v != "" {
		cfg.Server.Address = v
		cfg.Server.Port = 0
		used = true
	}
	if v := os.Getenv("COURIER_SERVER_DB_PATH"); v != "" {
		cfg.Server.DBPath = v
		used = true
	}
	if v := os.Getenv("COURIER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
		used = true
	}
	if v := os.Getenv("COURIER_API_BACKEND_KEYS"); v != "" {
		cfg.Security.APIKeys.Backend = splitList(v)
		used = true
	}
	if v := os.Getenv("COURIER_API_FRONTEND_KEYS"); v != "" {
		cfg.Security.APIKeys.Frontend = splitList(v)
		used = true
	}
	if v := os.Getenv("COURIER_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Security.CORS.AllowedOrigins = splitList(v)
		used = true
	}
	if v := os.Getenv("COURIER_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Security.RateLimit.RPS = f
			used = true
		}
	}
	if v := os.Getenv("COURIER_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.RateLimit.Burst = n
			used = true
		}
	}
	if v := os.Getenv("COURIER_PIPELINE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Workers = n
			used = true
		}
	}
	if v := os.Getenv("COURIER_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Queue.Capacity = n
			used = true
		}
	}
	return used
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
