package config

import (
	"flag"
	"strings"
	"time"
)

// normalizeEnvKey converts an env var name into a koanf key by stripping the
// MEDIASRV_ prefix (env.Provider only filters on it and passes the full name
// through) and case folding the rest, e.g. MEDIASRV_MAX_TASKS -> max_tasks.
// Every field in Config is a flat top-level key, so nothing else is needed.
func normalizeEnvKey(k string) string {
	return strings.ToLower(strings.TrimPrefix(k, "MEDIASRV_"))
}

// flagValues holds the flag package's own bound destinations. FlagSet
// registers them and applyFlagOverrides copies the explicitly set ones into
// a Config, switching on each flag's name.
type flagValues struct {
	httpPort        int
	maxTasks        int
	maxQueue        int
	checkInterval   time.Duration
	timeout         time.Duration
	listenAddr      string
	chunkSize       uint
	logLevel        string
	logDir          string
	recordAll       bool
	recordDir       string
	hookStdioFormat string
	hookTimeout     string
	hookConcurrency int
	configPath      string
}

// FlagSet registers every Config field as a flag on a new FlagSet, so
// cmd/mediasrv can parse os.Args and pass the result to Load.
func FlagSet(name string) (*flag.FlagSet, *flagValues) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	d := Default()
	v := &flagValues{}

	fs.IntVar(&v.httpPort, "http-port", d.HTTPPort, "HTTP control surface listen port")
	fs.IntVar(&v.maxTasks, "max-tasks", d.MaxTasks, "Maximum concurrently executing tasks")
	fs.IntVar(&v.maxQueue, "max-queue", d.MaxQueue, "Maximum waiting-queue length (0 = unbounded)")
	fs.DurationVar(&v.checkInterval, "check-interval", d.CheckInterval, "Stall watchdog poll interval")
	fs.DurationVar(&v.timeout, "timeout", d.Timeout, "Stall watchdog timeout")
	fs.StringVar(&v.listenAddr, "listen", d.ListenAddr, "RTMP ingest listen address")
	fs.UintVar(&v.chunkSize, "chunk-size", d.ChunkSize, "Initial outbound RTMP chunk size")
	fs.StringVar(&v.logLevel, "log-level", d.LogLevel, "Log level: debug|info|warn|error")
	fs.StringVar(&v.logDir, "log-dir", d.LogDir, "Directory for log file output (empty = stdout)")
	fs.BoolVar(&v.recordAll, "record-all", d.RecordAll, "Enable recording of all streams to -record-dir")
	fs.StringVar(&v.recordDir, "record-dir", d.RecordDir, "Directory to write recordings")
	fs.StringVar(&v.hookStdioFormat, "hook-stdio-format", d.HookStdioFormat, "Hook stdio output format: json|env (empty=disabled)")
	fs.StringVar(&v.hookTimeout, "hook-timeout", d.HookTimeout, "Timeout for hook execution")
	fs.IntVar(&v.hookConcurrency, "hook-concurrency", d.HookConcurrency, "Maximum concurrent hook executions")
	fs.StringVar(&v.configPath, "config", "", "Path to a YAML config file")

	return fs, v
}

// applyFlagOverrides copies only the flags fs.Visit reports as explicitly
// set, so an unset flag never clobbers the env/YAML/default layers beneath
// it.
func applyFlagOverrides(cfg *Config, fs *flag.FlagSet, v *flagValues) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http-port":
			cfg.HTTPPort = v.httpPort
		case "max-tasks":
			cfg.MaxTasks = v.maxTasks
		case "max-queue":
			cfg.MaxQueue = v.maxQueue
		case "check-interval":
			cfg.CheckInterval = v.checkInterval
		case "timeout":
			cfg.Timeout = v.timeout
		case "listen":
			cfg.ListenAddr = v.listenAddr
		case "chunk-size":
			cfg.ChunkSize = v.chunkSize
		case "log-level":
			cfg.LogLevel = v.logLevel
		case "log-dir":
			cfg.LogDir = v.logDir
		case "record-all":
			cfg.RecordAll = v.recordAll
		case "record-dir":
			cfg.RecordDir = v.recordDir
		case "hook-stdio-format":
			cfg.HookStdioFormat = v.hookStdioFormat
		case "hook-timeout":
			cfg.HookTimeout = v.hookTimeout
		case "hook-concurrency":
			cfg.HookConcurrency = v.hookConcurrency
		}
	})
}

// ConfigPath returns the -config flag's bound value.
func (v *flagValues) ConfigPath() string { return v.configPath }
