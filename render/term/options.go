package term

// Option configures rendering behavior.
type Option func(*config)

type config struct {
	osc8     bool
	softWrap bool
}

// WithOSC8 enables or disables OSC 8 hyperlinks. When disabled, link
// destinations are printed after the link text.
func WithOSC8(enabled bool) Option {
	return func(cfg *config) {
		cfg.osc8 = enabled
	}
}

// WithSoftWrap breaks words and code lines wider than the output.
func WithSoftWrap(enabled bool) Option {
	return func(cfg *config) {
		cfg.softWrap = enabled
	}
}
