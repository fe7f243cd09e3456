package clubsite

import "embed"

// EmbeddedAssets contains the static assets shipped with the site and
// served under /assets/: site.css, reveal.js, loadmore.js, chat.js and
// favicon.svg.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
