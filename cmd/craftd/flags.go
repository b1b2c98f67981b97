package main

import "time"

// Flag structs to decouple cobra from logic for testing.

type GlobalFlags struct {
	ConfigPath string
}

// APIFlags holds daemon connection settings shared by remote commands.
type APIFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

type StopFlags struct {
	APIFlags
	Force bool
}

type ConsoleFlags struct {
	APIFlags
	Lines int
}

type ServeFlags struct {
	ConfigPath string
	Daemonize  bool
	PidFile    string
	LogFile    string
}
