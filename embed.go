package spacetraveling

import "embed"

// EmbeddedAssets contains static assets shipped with the site:
// style.css, loadmore.js, logo.svg
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
