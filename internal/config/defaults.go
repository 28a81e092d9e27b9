package config

const (
	defaultConfigPath               = "~/.config/equipqr/config.toml"
	defaultDataDir                  = "~/.local/share/equipqr"
	defaultLogDir                   = "~/.local/share/equipqr/logs"
	defaultBackendTimeoutSeconds    = 15
	defaultBackendRequestsPerSecond = 5
	defaultBackendBurst             = 10
	defaultBackendHealthPath        = "/rest/v1/"
	defaultQueueStore               = StoreSQLite
	defaultQueueMaxRetries          = 5
	defaultQueueBackoffBaseSeconds  = 2
	defaultQueueBackoffMaxSeconds   = 300
	defaultQueueMaxPayloadBytes     = 512 * 1024
	defaultQueueMaxItems            = 500
	defaultProbeIntervalSeconds     = 15
	defaultProbeTimeoutSeconds      = 5
	defaultProbeFailureThreshold    = 2
	defaultAPIBind                  = "127.0.0.1:7489"
	defaultSyncSchedule             = "@every 5m"
	defaultNotifyRequestTimeout     = 10
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Supported queue store backends.
const (
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Backend: Backend{
			TimeoutSeconds:    defaultBackendTimeoutSeconds,
			RequestsPerSecond: defaultBackendRequestsPerSecond,
			Burst:             defaultBackendBurst,
			HealthPath:        defaultBackendHealthPath,
		},
		Queue: Queue{
			Store:              defaultQueueStore,
			MaxRetries:         defaultQueueMaxRetries,
			BackoffBaseSeconds: defaultQueueBackoffBaseSeconds,
			BackoffMaxSeconds:  defaultQueueBackoffMaxSeconds,
			MaxPayloadBytes:    defaultQueueMaxPayloadBytes,
			MaxItems:           defaultQueueMaxItems,
		},
		Connectivity: Connectivity{
			ProbeIntervalSeconds: defaultProbeIntervalSeconds,
			ProbeTimeoutSeconds:  defaultProbeTimeoutSeconds,
			FailureThreshold:     defaultProbeFailureThreshold,
		},
		Daemon: Daemon{
			APIBind:      defaultAPIBind,
			SyncSchedule: defaultSyncSchedule,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			SyncFailures:   true,
			BackOnline:     false,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
