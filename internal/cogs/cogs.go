// Package cogs links the built-in extensions into the binary. Importing it
// registers cogs.core, cogs.owner and cogs.testing in the default catalog.
package cogs

import (
	_ "cogbot/internal/cogs/core"
	_ "cogbot/internal/cogs/owner"
	_ "cogbot/internal/cogs/testcog"
)

// Builtin lists the paths of the built-in extensions in load order.
var Builtin = []string{"cogs.core", "cogs.owner", "cogs.testing"}
