package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runQuery(env *cliEnv, method string, param interface{}, stdout, stderr io.Writer) int {
	result, err := env.client.call(method, param, false, nil)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	printJSONResult(stdout, result)
	return 0
}

func runOwnerQuery(env *cliEnv, method, field string, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintf(stderr, "Error: expected a single %s argument\n", field)
		return 1
	}
	return runQuery(env, method, map[string]string{field: strings.TrimSpace(args[0])}, stdout, stderr)
}

func runEvents(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("events", stderr)
	var (
		owner     string
		record    string
		eventType string
		after     uint64
		limit     int
	)
	fs.StringVar(&owner, "owner", "", "filter by owner address")
	fs.StringVar(&record, "record", "", "filter by stake record address")
	fs.StringVar(&eventType, "type", "", "filter by event type (e.g. stake.locked)")
	fs.Uint64Var(&after, "after", 0, "return events with an id greater than this")
	fs.IntVar(&limit, "limit", 0, "maximum number of events")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	param := map[string]interface{}{}
	if owner != "" {
		param["owner"] = owner
	}
	if record != "" {
		param["record"] = record
	}
	if eventType != "" {
		param["type"] = eventType
	}
	if after > 0 {
		param["afterId"] = after
	}
	if limit > 0 {
		param["limit"] = limit
	}
	return runQuery(env, "stake_listEvents", param, stdout, stderr)
}
