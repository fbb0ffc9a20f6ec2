// Package all imports all supported catalog backends.
//
// Import this package for its side effects to register every backend:
//
//	import (
//		"github.com/git-pkgs/condamigrate"
//		_ "github.com/git-pkgs/condamigrate/all"
//	)
//
//	// Now all backends are available
//	backends := condamigrate.SupportedBackends()
//	// ["anaconda", "conda", "mamba"]
package all

import (
	_ "github.com/git-pkgs/condamigrate/internal/catalog/anaconda"
	_ "github.com/git-pkgs/condamigrate/internal/catalog/conda"
)
