package app

import (
	"github.com/vk/modgrid/internal/registry"
	"github.com/vk/modgrid/units/console"
	"github.com/vk/modgrid/units/discord"
	"github.com/vk/modgrid/units/httpapi"
	"github.com/vk/modgrid/units/redisstore"
	"github.com/vk/modgrid/units/socketio"
)

// coreUnits is the definitive list of unit factories compiled into the
// modgrid binary.
var coreUnits = []registry.Module{
	&console.Module{},
	&httpapi.Module{},
	&socketio.Module{},
	&discord.Module{},
	&redisstore.Module{},
}
