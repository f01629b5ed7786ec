package app

import (
	"github.com/vk/cookgrid/internal/registry"
	"github.com/vk/cookgrid/modules/env_vars"
	"github.com/vk/cookgrid/modules/geometry"
	"github.com/vk/cookgrid/modules/group"
	"github.com/vk/cookgrid/modules/http_request"
	"github.com/vk/cookgrid/modules/numeric"
	"github.com/vk/cookgrid/modules/print"
	"github.com/vk/cookgrid/modules/socketio_request"
	"github.com/vk/cookgrid/modules/vector"
)

// CoreModules returns every module compiled into the cookgrid binary.
func CoreModules() []registry.Module {
	return []registry.Module{
		&numeric.Module{},
		&vector.Module{},
		&geometry.Module{},
		&group.Module{},
		&print.Module{},
		&env_vars.Module{},
		&http_request.Module{},
		&socketio_request.Module{},
	}
}
