package main

import (
	"github.com/alecthomas/kong"
)

type globalOptions struct {
	ConfigFile       string `name:"config.file" type:"existingfile" help:"Configuration file to load."`
	ConfigExpandEnv  bool   `name:"config.expand-env" help:"Expand environment variables in the configuration file."`
	LogLevel         string `default:"info" enum:"debug,info,warn,error" help:"Only log messages at or above this level."`
	LogFormat        string `default:"logfmt" enum:"logfmt,json" help:"Log output format."`
	AllowInefficient bool   `name:"allow-inefficient-queries" help:"Evaluate filters and ordering in memory when the store cannot, for every table."`
}

var cli struct {
	globalOptions

	Query   queryCmd   `cmd:"" help:"Print the rows of a table matching a filter."`
	Count   countCmd   `cmd:"" help:"Count the rows of a table matching a filter."`
	Delete  deleteCmd  `cmd:"" help:"Delete the rows of a table matching a filter and report what is left."`
	Explain explainCmd `cmd:"" help:"Show how a filter would be split between the store and memory."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("kvplan-cli"),
		kong.Description("Plan and run filtered queries against a partitioned table loaded from a dataset file."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(&cli.globalOptions)
	ctx.FatalIfErrorf(err)
}
