package registry

import "log/slog"

// PullOption configures a Pull operation.
type PullOption func(*pullConfig)

type pullConfig struct {
	validate bool
	maxSize  int64
	logger   *slog.Logger
}

// PullWithValidate controls whether the pulled archive is opened to verify
// its header before it is moved into place. Enabled by default.
func PullWithValidate(validate bool) PullOption {
	return func(cfg *pullConfig) {
		cfg.validate = validate
	}
}

// PullWithMaxSize rejects archive layers larger than limit bytes.
// A limit of zero or less disables the check.
func PullWithMaxSize(limit int64) PullOption {
	return func(cfg *pullConfig) {
		cfg.maxSize = limit
	}
}

// PullWithLogger sets the logger for pull operations.
func PullWithLogger(logger *slog.Logger) PullOption {
	return func(cfg *pullConfig) {
		cfg.logger = logger
	}
}

func (cfg *pullConfig) log() *slog.Logger {
	if cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return cfg.logger
}
