package intentguard

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	configPath   string
	subject      string
	reportPath   string
	registryPath string
	theta        float64
	recording    bool
	onDrift      func(DriftEvent)
}

// WithConfigFile sets the engine configuration file to load. Default is
// ~/.intentguard/config.yaml; a missing file means built-in defaults.
func WithConfigFile(path string) Option {
	return func(c *clientConfig) { c.configPath = path }
}

// WithSubject sets the identity the client evaluates. Default "agent".
func WithSubject(name string) Option {
	return func(c *clientConfig) { c.subject = name }
}

// WithReport sets the path to the trust-debt report.
func WithReport(path string) Option {
	return func(c *clientConfig) { c.reportPath = path }
}

// WithRegistry sets the path to a requirement overlay YAML file.
func WithRegistry(path string) Option {
	return func(c *clientConfig) { c.registryPath = path }
}

// WithTheta overrides the overlap threshold.
func WithTheta(theta float64) Option {
	return func(c *clientConfig) { c.theta = theta }
}

// WithoutRecording disables the decision ledger, the gap ledger, and heat
// tracking. Evaluation still happens; nothing is written.
func WithoutRecording() Option {
	return func(c *clientConfig) { c.recording = false }
}

// WithDriftHandler sets the callback fired when consecutive denials reach
// the drift threshold.
func WithDriftHandler(fn func(DriftEvent)) Option {
	return func(c *clientConfig) { c.onDrift = fn }
}

// WrapOption configures a single Wrap call.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	caller string
}

// WrapWithCaller attributes calls from this wrap to a named caller.
// Default is the subject itself.
func WrapWithCaller(name string) WrapOption {
	return func(w *wrapConfig) { w.caller = name }
}
