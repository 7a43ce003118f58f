package app

import (
	"github.com/questdeck/questdeck/internal/module"
	"github.com/questdeck/questdeck/internal/modules/game"
)

// NewModules creates the list of active modules. This is the single source
// of truth for which features are enabled.
func NewModules(deps *Dependencies) []module.Module {
	return []module.Module{
		game.New(game.Dependencies{
			Publisher:  deps.Publisher,
			Subscriber: deps.Subscriber,
			Store:      deps.Store,
			Systems:    deps.Systems,
			Bridge:     deps.Bridge,
			Config:     deps.Cfg,
		}),
	}
}
