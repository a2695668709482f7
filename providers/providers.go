// Package providers registers every provider with the default registry.
package providers

import (
	_ "github.com/alanbriolat/tiktok-archiver/provider/direct"
	_ "github.com/alanbriolat/tiktok-archiver/provider/tiktok"
	_ "github.com/alanbriolat/tiktok-archiver/provider/youtube"
)
