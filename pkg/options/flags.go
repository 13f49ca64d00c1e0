package options

import "github.com/spf13/pflag"

// NamedFlagSets stores named flag sets in registration order.
type NamedFlagSets struct {
	// Order is the order in which the flag sets were added.
	Order []string
	// FlagSets maps a name to its flag set.
	FlagSets map[string]*pflag.FlagSet
}

// FlagSet returns the flag set with the given name, creating it on
// first use.
func (nfs *NamedFlagSets) FlagSet(name string) *pflag.FlagSet {
	if nfs.FlagSets == nil {
		nfs.FlagSets = map[string]*pflag.FlagSet{}
	}
	if _, ok := nfs.FlagSets[name]; !ok {
		nfs.FlagSets[name] = pflag.NewFlagSet(name, pflag.ExitOnError)
		nfs.Order = append(nfs.Order, name)
	}
	return nfs.FlagSets[name]
}

// CliOptions is the interface an application options struct implements
// to participate in flag registration, config unmarshalling and
// validation.
type CliOptions interface {
	// Flags returns the flags grouped by section.
	Flags() NamedFlagSets
	// Complete fills in defaults derived from other options.
	Complete() error
	// Validate checks the options.
	Validate() error
}
