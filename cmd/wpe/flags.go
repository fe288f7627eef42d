package main

import "time"

// GlobalFlags holds persistent flags shared by all subcommands.
type GlobalFlags struct {
	ConfigPath string // empty means ~/.config/wpe/config.toml
}

// ClientFlags holds daemon connection flags for client subcommands.
type ClientFlags struct {
	APIUrl     string
	APITimeout time.Duration
}
