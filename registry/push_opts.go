package registry

import "log/slog"

// PushOption configures a Push operation.
type PushOption func(*pushConfig)

type pushConfig struct {
	tags        []string
	annotations map[string]string
	logger      *slog.Logger
}

// PushWithTags applies additional tags to the pushed manifest.
func PushWithTags(tags ...string) PushOption {
	return func(cfg *pushConfig) {
		cfg.tags = append(cfg.tags, tags...)
	}
}

// PushWithAnnotations sets custom manifest annotations.
//
// The file count and header length annotations are always set and take
// precedence over values supplied here.
func PushWithAnnotations(annotations map[string]string) PushOption {
	return func(cfg *pushConfig) {
		if cfg.annotations == nil {
			cfg.annotations = make(map[string]string, len(annotations))
		}
		for k, v := range annotations {
			cfg.annotations[k] = v
		}
	}
}

// PushWithLogger sets the logger for push operations.
func PushWithLogger(logger *slog.Logger) PushOption {
	return func(cfg *pushConfig) {
		cfg.logger = logger
	}
}

func (cfg *pushConfig) log() *slog.Logger {
	if cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return cfg.logger
}
