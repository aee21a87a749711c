package compiler

// Settings tune one compilation run.
type Settings struct {
	// FailOnAddressOutOfRange makes a segment that outgrows the device an
	// error instead of a warning.
	FailOnAddressOutOfRange bool
	// MaxErrors stops the run after this many errors. Zero means no limit.
	MaxErrors int
	// WarnIfInOutCanBeUsed reports lds and sts on I/O mapped addresses.
	WarnIfInOutCanBeUsed bool
}

// DefaultSettings returns the settings used by the command line tool.
func DefaultSettings() Settings {
	return Settings{
		FailOnAddressOutOfRange: true,
		MaxErrors:               100,
		WarnIfInOutCanBeUsed:    true,
	}
}
