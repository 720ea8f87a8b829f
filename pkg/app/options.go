package app

import (
	cliflag "k8s.io/component-base/cli/flag"
)

// NamedFlagSetOptions is implemented by the option set of a command. Flags
// are grouped by section in the help output; Complete fills derived fields
// and Validate reports every invalid value at once.
type NamedFlagSetOptions interface {
	Flags() cliflag.NamedFlagSets
	Complete() error
	Validate() error
}
