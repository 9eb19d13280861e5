package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config       *Config
	disableWatch bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithoutWatcher disables the media directory watcher. Uploads through
// the API still work; files dropped on disk are only picked up at the
// next startup sync.
func WithoutWatcher() Option {
	return func(a *application) {
		a.disableWatch = true
	}
}
