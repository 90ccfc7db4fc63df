// Package appfs embeds the app's non-Go assets.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
