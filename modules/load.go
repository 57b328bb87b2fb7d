package modules

import (
	"github.com/cabflow/cabflow/pkg/application"
)

// Load registers the given modules on the application, in order.
func Load(app application.Application, mods ...application.Module) error {
	for _, module := range mods {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
